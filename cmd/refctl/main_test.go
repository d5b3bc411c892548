package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"refchain/core"
	"refchain/crypto"
	"refchain/native/referral"
	"refchain/rpc"
	"refchain/storage"
)

const (
	testSecret = "refctl-secret"
	testIssuer = "refctl-tests"
)

func newTestEndpoint(t *testing.T) string {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, core.NodeConfig{ChainID: "refctl-test"})
	require.NoError(t, err)
	server, err := rpc.NewServer(node, nil, rpc.ServerConfig{
		Auth: rpc.AuthConfig{HMACSecret: testSecret, Issuer: testIssuer},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   testIssuer,
		"scope": rpc.AdminScope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestCreateAndFundProgram(t *testing.T) {
	t.Setenv(passphraseEnv, "correct horse battery staple")
	endpoint := newTestEndpoint(t)
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "authority.json")

	out, errOut, code := runCLI(t, "--rpc", endpoint, "keygen", "--out", keyFile)
	require.Zero(t, code, errOut)
	require.Contains(t, out, "Address: ")
	authorityStr := strings.TrimSpace(out[strings.Index(out, "Address: ")+len("Address: "):])
	authority, err := crypto.DecodeAddress(authorityStr)
	require.NoError(t, err)

	_, errOut, code = runCLI(t, "--rpc", endpoint, "keygen", "--out", keyFile)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "already exists")

	// The address is read from the keystore header, so no passphrase is needed.
	t.Setenv(passphraseEnv, "")
	out, errOut, code = runCLI(t, "address", "--key", keyFile)
	require.Zero(t, code, errOut)
	require.Equal(t, authorityStr, strings.TrimSpace(out))
	t.Setenv(passphraseEnv, "correct horse battery staple")

	out, errOut, code = runCLI(t, "--rpc", endpoint, "--token", adminToken(t),
		"mint", "--recipient", authorityStr, "--amount", "1000", "--reference", "seed")
	require.Zero(t, code, errOut)
	require.Contains(t, out, `"balance": 1000`)

	template := filepath.Join(dir, "program.yaml")
	require.NoError(t, os.WriteFile(template, []byte(`salt: 3
fixedRewardAmount: 50
lockedPeriod: 604800
earlyRedemptionFeeBps: 500
baseReward: 50
tier1Threshold: 3
tier1Reward: 75
tier2Threshold: 10
tier2Reward: 100
maxRewardCap: 5000
`), 0o644))
	out, errOut, code = runCLI(t, "--rpc", endpoint, "create-program", "--key", keyFile, "-f", template)
	require.Zero(t, code, errOut)
	var receipt rpc.ReceiptResult
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	require.Equal(t, "create_program", receipt.Type)
	require.Equal(t, authorityStr, receipt.From)

	program := crypto.MustAddress(referral.ProgramAddress(authority.Raw(), 3)).String()
	_, errOut, code = runCLI(t, "--rpc", endpoint, "deposit", "--key", keyFile, "--program", program, "--amount", "400")
	require.Zero(t, code, errOut)

	out, errOut, code = runCLI(t, "--rpc", endpoint, "program", program)
	require.Zero(t, code, errOut)
	var view rpc.ProgramResult
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Equal(t, uint64(400), view.TotalAvailable)
	require.Equal(t, uint64(400), view.EscrowBalance)

	out, errOut, code = runCLI(t, "--rpc", endpoint, "account", authorityStr)
	require.Zero(t, code, errOut)
	require.Contains(t, out, `"nonce": 2`)
	require.Contains(t, out, `"balance": 600`)
}

func TestRPCErrorsAreReported(t *testing.T) {
	endpoint := newTestEndpoint(t)
	_, errOut, code := runCLI(t, "--rpc", endpoint, "program", crypto.MustAddress([20]byte{0x09}).String())
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "rpc error")
	require.Contains(t, errOut, `"kind":"state"`)

	_, errOut, code = runCLI(t, "--rpc", endpoint, "mint", "--recipient", crypto.MustAddress([20]byte{0x01}).String(), "--amount", "1")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "missing bearer token")
}

func TestTemplateRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("salt: 1\nbogus: true\n"), 0o644))
	var payload struct {
		Salt uint64 `yaml:"salt"`
	}
	require.Error(t, loadTemplate(path, &payload))
}

func TestGlobalFlagsAndUsage(t *testing.T) {
	endpoint, token, rest, err := applyGlobalFlags([]string{"program", "--rpc=http://node:9000", "--token", "abc", "x"})
	require.NoError(t, err)
	require.Equal(t, "http://node:9000", endpoint)
	require.Equal(t, "abc", token)
	require.Equal(t, []string{"program", "x"}, rest)

	_, _, _, err = applyGlobalFlags([]string{"--rpc"})
	require.Error(t, err)

	_, errOut, code := runCLI(t, "nope")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unknown command")
	require.Contains(t, errOut, "create-program")

	require.Equal(t, "http://node:9000/rpc", newClient("http://node:9000/", "", nil).endpoint)
}
