package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/stretchr/testify/require"
)

func lightScrypt(t *testing.T) {
	t.Helper()
	n, p := keystoreScryptN, keystoreScryptP
	keystoreScryptN, keystoreScryptP = keystore.LightScryptN, keystore.LightScryptP
	t.Cleanup(func() { keystoreScryptN, keystoreScryptP = n, p })
}

func TestKeystoreRoundTrip(t *testing.T) {
	lightScrypt(t)
	path := filepath.Join(t.TempDir(), "nested", "wallet.json")
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr, err := WriteKeystore(path, key, "secret", false)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), addr.String())
	require.Equal(t, RefPrefix, addr.Prefix())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	recorded, err := KeystoreAddress(path)
	require.NoError(t, err)
	require.Equal(t, addr.String(), recorded.String())

	opened, err := OpenKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), opened.Bytes())

	_, err = OpenKeystore(path, "wrong")
	require.ErrorIs(t, err, keystore.ErrDecrypt)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteKeystoreKeepsExistingFile(t *testing.T) {
	lightScrypt(t)
	path := filepath.Join(t.TempDir(), "wallet.json")
	first, err := GeneratePrivateKey()
	require.NoError(t, err)
	second, err := GeneratePrivateKey()
	require.NoError(t, err)

	_, err = WriteKeystore(path, first, "secret", false)
	require.NoError(t, err)
	_, err = WriteKeystore(path, second, "secret", false)
	require.ErrorIs(t, err, ErrKeystoreExists)

	opened, err := OpenKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, first.Bytes(), opened.Bytes())

	addr, err := WriteKeystore(path, second, "secret", true)
	require.NoError(t, err)
	require.Equal(t, second.PubKey().Address().String(), addr.String())
}

func TestOpenKeystoreRejectsForeignAddress(t *testing.T) {
	lightScrypt(t)
	path := filepath.Join(t.TempDir(), "wallet.json")
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	_, err = WriteKeystore(path, key, "secret", false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	doc["address"] = "00000000000000000000000000000000000000ff"
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = OpenKeystore(path, "secret")
	require.ErrorIs(t, err, ErrKeystoreMismatch)
}

func TestKeystoreAddressRejectsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"not-json":    "{",
		"old-version": `{"address":"00000000000000000000000000000000000000ff","version":1}`,
		"short":       `{"address":"00ff","version":3}`,
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := KeystoreAddress(path)
		require.Error(t, err, name)
	}
}
