package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"refchain/core/types"
	"refchain/crypto"
	"refchain/rpc"
)

// loadTemplate decodes a YAML template into out, rejecting unknown keys.
func loadTemplate(path string, out interface{}) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("-f template file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// send signs payload as txType with the next nonce of the key's account and
// submits it.
func (a *app) send(ctx context.Context, keyFile string, txType types.TxType, payload interface{}) error {
	key, err := a.loadKey(keyFile)
	if err != nil {
		return err
	}
	var chainID string
	if err := a.client.call(ctx, "referral_chainId", &chainID); err != nil {
		return err
	}
	sender := key.PubKey().Address().String()
	var account types.Account
	if err := a.client.call(ctx, "referral_getAccount", &account, sender); err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	tx := &types.Transaction{ChainID: chainID, Type: txType, Nonce: account.Nonce, Data: data}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	var receipt rpc.ReceiptResult
	if err := a.client.call(ctx, "referral_sendTransaction", &receipt, tx); err != nil {
		return err
	}
	return a.print(receipt)
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) createProgram(ctx context.Context, args []string) error {
	fs := newFlagSet("create-program")
	keyFile := fs.String("key", "", "Authority keystore")
	file := fs.String("f", "", "Program template (YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var payload types.CreateProgramPayload
	if err := loadTemplate(*file, &payload); err != nil {
		return err
	}
	return a.send(ctx, *keyFile, types.TxTypeCreateProgram, payload)
}

func (a *app) initEscrow(ctx context.Context, args []string) error {
	fs := newFlagSet("init-escrow")
	keyFile := fs.String("key", "", "Authority keystore")
	program := fs.String("program", "", "Program address")
	mint := fs.String("mint", "", "Token mint address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAddresses(map[string]string{"program": *program, "mint": *mint}); err != nil {
		return err
	}
	return a.send(ctx, *keyFile, types.TxTypeInitTokenEscrow, types.InitTokenEscrowPayload{Program: *program, Mint: *mint})
}

func (a *app) deposit(ctx context.Context, args []string) error {
	fs := newFlagSet("deposit")
	keyFile := fs.String("key", "", "Authority keystore")
	program := fs.String("program", "", "Program address")
	asset := fs.String("asset", "native", "Asset to deposit")
	amount := fs.Uint64("amount", 0, "Amount to deposit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAddresses(map[string]string{"program": *program}); err != nil {
		return err
	}
	if *amount == 0 {
		return errors.New("--amount must be greater than zero")
	}
	if _, err := types.ParseAsset(*asset); err != nil {
		return err
	}
	return a.send(ctx, *keyFile, types.TxTypeDepositFunds, types.DepositPayload{Program: *program, Asset: *asset, Amount: *amount})
}

func (a *app) updateSettings(ctx context.Context, args []string) error {
	fs := newFlagSet("update-settings")
	keyFile := fs.String("key", "", "Authority keystore")
	file := fs.String("f", "", "Settings template (YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var payload types.UpdateSettingsPayload
	if err := loadTemplate(*file, &payload); err != nil {
		return err
	}
	if err := requireAddresses(map[string]string{"program": payload.Program}); err != nil {
		return err
	}
	return a.send(ctx, *keyFile, types.TxTypeUpdateSettings, payload)
}

func (a *app) deactivate(ctx context.Context, args []string) error {
	fs := newFlagSet("deactivate")
	keyFile := fs.String("key", "", "Authority keystore")
	program := fs.String("program", "", "Program address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAddresses(map[string]string{"program": *program}); err != nil {
		return err
	}
	return a.send(ctx, *keyFile, types.TxTypeDeactivateProgram, types.ProgramRefPayload{Program: *program})
}

func (a *app) join(ctx context.Context, args []string) error {
	fs := newFlagSet("join")
	keyFile := fs.String("key", "", "User keystore")
	program := fs.String("program", "", "Program address")
	referrer := fs.String("referrer", "", "Referring participant address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAddresses(map[string]string{"program": *program}); err != nil {
		return err
	}
	if strings.TrimSpace(*referrer) == "" {
		return a.send(ctx, *keyFile, types.TxTypeJoin, types.JoinPayload{Program: *program})
	}
	if err := requireAddresses(map[string]string{"referrer": *referrer}); err != nil {
		return err
	}
	return a.send(ctx, *keyFile, types.TxTypeJoinThroughReferral, types.JoinPayload{Program: *program, Referrer: *referrer})
}

func (a *app) claim(ctx context.Context, args []string) error {
	fs := newFlagSet("claim")
	keyFile := fs.String("key", "", "Participant owner keystore")
	program := fs.String("program", "", "Program address")
	participant := fs.String("participant", "", "Participant address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAddresses(map[string]string{"program": *program, "participant": *participant}); err != nil {
		return err
	}
	return a.send(ctx, *keyFile, types.TxTypeClaim, types.ClaimPayload{Program: *program, Participant: *participant})
}

func requireAddresses(values map[string]string) error {
	for name, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("--%s is required", name)
		}
		if _, err := crypto.DecodeAddress(value); err != nil {
			return fmt.Errorf("invalid %s address: %w", name, err)
		}
	}
	return nil
}
