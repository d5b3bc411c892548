package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"refchain/cmd/internal/passphrase"
)

const passphraseEnv = "REFCTL_PASSPHRASE"

type app struct {
	client *client
	out    io.Writer
	errOut io.Writer

	// passphrase unlocks existing keystores; newPassphrase protects new ones.
	passphrase    func() (string, error)
	newPassphrase func() (string, error)
}

type command struct {
	usage string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"keygen":          {usage: "keygen [--out wallet.json]", run: (*app).keygen},
	"address":         {usage: "address --key <keystore>", run: (*app).address},
	"create-program":  {usage: "create-program --key <keystore> -f program.yaml", run: (*app).createProgram},
	"init-escrow":     {usage: "init-escrow --key <keystore> --program <addr> --mint <addr>", run: (*app).initEscrow},
	"deposit":         {usage: "deposit --key <keystore> --program <addr> --amount <n> [--asset native|token:<hex>]", run: (*app).deposit},
	"update-settings": {usage: "update-settings --key <keystore> -f settings.yaml", run: (*app).updateSettings},
	"deactivate":      {usage: "deactivate --key <keystore> --program <addr>", run: (*app).deactivate},
	"join":            {usage: "join --key <keystore> --program <addr> [--referrer <participant>]", run: (*app).join},
	"claim":           {usage: "claim --key <keystore> --program <addr> --participant <addr>", run: (*app).claim},
	"program":         {usage: "program <addr>", run: (*app).program},
	"participant":     {usage: "participant <participant> | participant <program> <owner>", run: (*app).participant},
	"claimable":       {usage: "claimable <participant>", run: (*app).claimable},
	"account":         {usage: "account <addr> [asset]", run: (*app).account},
	"events":          {usage: "events [--program <addr>] [--participant <addr>] [--type <type>] [--after <seq>] [--limit <n>]", run: (*app).events},
	"mint":            {usage: "mint --recipient <addr> --amount <n> [--asset <asset>] [--reference <id>]", run: (*app).mint},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	endpoint, token, rest, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(rest) < 1 {
		printUsage(stderr)
		return 1
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", rest[0])
		printUsage(stderr)
		return 1
	}

	a := &app{
		client:        newClient(endpoint, token, &http.Client{Timeout: 15 * time.Second}),
		out:           stdout,
		errOut:        stderr,
		passphrase:    passphrase.NewSource(passphraseEnv).Get,
		newPassphrase: passphrase.NewSource(passphraseEnv).WithConfirmation().Get,
	}
	if err := cmd.run(a, context.Background(), rest[1:]); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("REFCHAIN_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// applyGlobalFlags strips --rpc and --token from anywhere in args.
func applyGlobalFlags(args []string) (string, string, []string, error) {
	endpoint := defaultRPCEndpoint()
	token := strings.TrimSpace(os.Getenv("REFCHAIN_RPC_TOKEN"))
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc" || arg == "--token":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("missing value for %s", arg)
			}
			if arg == "--rpc" {
				endpoint = args[i+1]
			} else {
				token = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--rpc="):
			endpoint = strings.TrimPrefix(arg, "--rpc=")
		case strings.HasPrefix(arg, "--token="):
			token = strings.TrimPrefix(arg, "--token=")
		default:
			out = append(out, arg)
		}
	}
	return endpoint, token, out, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: refctl [--rpc <url>] [--token <jwt>] <command> [flags]")
	fmt.Fprintln(w, "Commands:")
	for _, name := range []string{
		"keygen", "address", "create-program", "init-escrow", "deposit", "update-settings",
		"deactivate", "join", "claim", "program", "participant", "claimable", "account", "events", "mint",
	} {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}
