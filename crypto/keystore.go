package crypto

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	// ErrKeystoreExists is returned when WriteKeystore would replace a file
	// without being asked to.
	ErrKeystoreExists = errors.New("crypto: keystore file already exists")
	// ErrKeystoreMismatch is returned when the address recorded in a keystore
	// is not the address of the key it decrypts to.
	ErrKeystoreMismatch = errors.New("crypto: keystore address does not match its key")
)

// Scrypt cost used for new keystores. Tests lower it.
var (
	keystoreScryptN = keystore.StandardScryptN
	keystoreScryptP = keystore.StandardScryptP
)

// keystoreHeader is the unencrypted part of a v3 keystore file.
type keystoreHeader struct {
	Address string `json:"address"`
	Version int    `json:"version"`
}

// WriteKeystore encrypts key into a v3 keystore file at path and returns the
// ref address it controls. The file is written to a temporary sibling and
// renamed into place with 0600 permissions.
func WriteKeystore(path string, key *PrivateKey, passphrase string, overwrite bool) (Address, error) {
	if key == nil {
		return Address{}, errors.New("crypto: nil private key")
	}
	if strings.TrimSpace(path) == "" {
		return Address{}, errors.New("crypto: empty keystore path")
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return Address{}, fmt.Errorf("%w: %s", ErrKeystoreExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Address{}, err
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Address{}, err
	}

	addr := key.PubKey().Address()
	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Id:         uuid.New(),
		Address:    ethcommon.Address(addr.Raw()),
		PrivateKey: key.PrivateKey,
	}, passphrase, keystoreScryptN, keystoreScryptP)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: encrypt keystore: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".refchain-keystore-*")
	if err != nil {
		return Address{}, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encrypted); err != nil {
		tmp.Close()
		return Address{}, err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return Address{}, err
	}
	if err := tmp.Close(); err != nil {
		return Address{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// KeystoreAddress returns the ref address recorded in the keystore at path
// without decrypting it.
func KeystoreAddress(path string) (Address, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Address{}, err
	}
	return keystoreAddress(path, data)
}

// OpenKeystore decrypts the keystore at path and checks that the key derives
// the address the file declares.
func OpenKeystore(path, passphrase string) (*PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	declared, err := keystoreAddress(path, data)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt %s: %w", path, err)
	}
	key := &PrivateKey{PrivateKey: decrypted.PrivateKey}
	if derived := key.PubKey().Address(); derived.Raw() != declared.Raw() {
		return nil, fmt.Errorf("%w: %s declares %s, key is %s", ErrKeystoreMismatch, path, declared, derived)
	}
	return key, nil
}

func keystoreAddress(path string, data []byte) (Address, error) {
	var header keystoreHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return Address{}, fmt.Errorf("crypto: parse keystore %s: %w", path, err)
	}
	if header.Version != 3 {
		return Address{}, fmt.Errorf("crypto: keystore %s has unsupported version %d", path, header.Version)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(header.Address, "0x"))
	if err != nil || len(raw) != AddressLength {
		return Address{}, fmt.Errorf("crypto: keystore %s has malformed address %q", path, header.Address)
	}
	return NewAddress(RefPrefix, raw), nil
}
