package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/Priya8975/harmony-node/internal/auth"
	"github.com/Priya8975/harmony-node/internal/credential"
	"github.com/Priya8975/harmony-node/internal/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestWriteKeyPair(t *testing.T) {
	dir := t.TempDir()

	privPath, pubPath, err := writeKeyPair(dir, 1024, false)
	require.NoError(t, err)

	key, err := signature.LoadPrivateKey(privPath)
	require.NoError(t, err)
	pubData, err := os.ReadFile(pubPath)
	require.NoError(t, err)
	pub, err := signature.ParsePublicKey(pubData)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	info, err := os.Stat(privPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteKeyPair_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := writeKeyPair(dir, 1024, false)
	require.NoError(t, err)

	_, _, err = writeKeyPair(dir, 1024, false)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = writeKeyPair(dir, 1024, true)
	assert.NoError(t, err)
}

func TestEncryptCommand(t *testing.T) {
	dir := t.TempDir()
	privPath, pubPath, err := writeKeyPair(dir, 1024, false)
	require.NoError(t, err)

	out, err := execute(t, "encrypt", "--public-key", pubPath, "alice", "s3cret!Pw")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	key, err := signature.LoadPrivateKey(privPath)
	require.NoError(t, err)
	dec := credential.NewDecryptor(key)

	user, err := dec.Decrypt(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	pass, err := dec.Decrypt(lines[1])
	require.NoError(t, err)
	assert.Equal(t, "s3cret!Pw", pass)
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--org", "7", "--secret", "test-secret", "--issuer", "node-a", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewAuthority("test-secret", "node-a").Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.OrganizationID)
	assert.Equal(t, strconv.Itoa(7), claims.Subject)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	tokenSecret = ""

	_, err := execute(t, "token", "--org", "7")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValueOrEnv(t *testing.T) {
	t.Setenv("HARMONYCTL_TEST", "from-env")
	assert.Equal(t, "flag", valueOrEnv("flag", "HARMONYCTL_TEST"))
	assert.Equal(t, "from-env", valueOrEnv("", "HARMONYCTL_TEST"))
}
