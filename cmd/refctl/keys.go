package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"refchain/crypto"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) keygen(_ context.Context, args []string) error {
	fs := newFlagSet("keygen")
	out := fs.String("out", "wallet.json", "Path of the keystore file to write")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*out); err == nil && !*force {
		return fmt.Errorf("keystore %s already exists; pass --force to overwrite", *out)
	}

	pass, err := a.newPassphrase()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	addr, err := crypto.WriteKeystore(*out, key, pass, *force)
	if err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	fmt.Fprintf(a.out, "Generated new key and saved to %s\n", *out)
	fmt.Fprintf(a.out, "Address: %s\n", addr)
	return nil
}

// address prints the account of a keystore without unlocking it.
func (a *app) address(_ context.Context, args []string) error {
	fs := newFlagSet("address")
	keyFile := fs.String("key", "", "Keystore file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := keystorePath(*keyFile)
	if err != nil {
		return err
	}
	addr, err := crypto.KeystoreAddress(path)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, addr.String())
	return nil
}

func keystorePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("--key is required")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("keystore %s not found. run refctl keygen first", path)
		}
		return "", err
	}
	return path, nil
}

func (a *app) loadKey(path string) (*crypto.PrivateKey, error) {
	path, err := keystorePath(path)
	if err != nil {
		return nil, err
	}
	pass, err := a.passphrase()
	if err != nil {
		return nil, err
	}
	key, err := crypto.OpenKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unlock keystore %s: %w", path, err)
	}
	return key, nil
}
