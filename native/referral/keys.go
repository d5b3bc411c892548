package referral

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"refchain/crypto"
)

const (
	seedProgram     = "referral_program"
	seedParticipant = "participant"
	seedVault       = "vault"
	seedTokenVault  = "token_vault"

	linkScheme = "https://"
	linkPath   = "/ref/"
)

// ProgramAddress derives the address of the program created by authority with
// the given salt.
func ProgramAddress(authority [20]byte, salt uint64) [20]byte {
	var saltBytes [8]byte
	binary.BigEndian.PutUint64(saltBytes[:], salt)
	return crypto.DeriveAddress(seedProgram, authority[:], saltBytes[:])
}

// ParticipantAddress derives the unique participant record for owner in program.
func ParticipantAddress(program, owner [20]byte) [20]byte {
	return crypto.DeriveAddress(seedParticipant, program[:], owner[:])
}

// VaultAddress derives the native escrow bound to program.
func VaultAddress(program [20]byte) [20]byte {
	return crypto.DeriveAddress(seedVault, program[:])
}

// TokenVaultAddress derives the token escrow bound to program.
func TokenVaultAddress(program [20]byte) [20]byte {
	return crypto.DeriveAddress(seedTokenVault, program[:])
}

// RenderReferralLink writes "https://<domain>/ref/<owner>" into a zero-padded
// fixed buffer.
func RenderReferralLink(domain string, owner [20]byte) ([ReferralLinkSize]byte, error) {
	var buf [ReferralLinkSize]byte
	link := linkScheme + domain + linkPath + crypto.MustAddress(owner).String()
	if len(link) > ReferralLinkSize {
		return buf, fmt.Errorf("referral: link exceeds %d bytes", ReferralLinkSize)
	}
	copy(buf[:], link)
	return buf, nil
}

// ParseReferralLink extracts the owner address from a rendered referral link.
// Trailing zero padding is ignored.
func ParseReferralLink(raw []byte) ([20]byte, error) {
	link := string(bytes.TrimRight(raw, "\x00"))
	if !strings.HasPrefix(link, linkScheme) {
		return [20]byte{}, fmt.Errorf("referral: malformed link %q", link)
	}
	idx := strings.LastIndex(link, linkPath)
	if idx < len(linkScheme) {
		return [20]byte{}, fmt.Errorf("referral: malformed link %q", link)
	}
	return crypto.ParseRaw(link[idx+len(linkPath):])
}

func validateServiceDomain(domain string) error {
	trimmed := strings.TrimSpace(domain)
	if trimmed == "" || strings.ContainsAny(trimmed, "/ \t\x00") {
		return fmt.Errorf("referral: invalid service domain %q", domain)
	}
	var zero [20]byte
	if _, err := RenderReferralLink(trimmed, zero); err != nil {
		return err
	}
	return nil
}
