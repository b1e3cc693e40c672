// Package credential protects data source credentials: at rest in the
// database, and in transit from an organization registering its data source.
package credential

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
)

// Vault encrypts data source passwords for storage with AES-256-CBC. The key
// is derived from the configured passphrase and the IV from the owning
// organization id, so a ciphertext only decrypts for the organization it
// was written for.
type Vault struct {
	key []byte
}

// NewVault derives the storage key from passphrase.
func NewVault(passphrase string) *Vault {
	sum := sha256.Sum256([]byte(passphrase))
	return &Vault{key: sum[:]}
}

// Encrypt returns the ciphertext of password for organizationID.
func (v *Vault) Encrypt(password string, organizationID int64) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	plain := pad([]byte(password), aes.BlockSize)
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv(organizationID)).CryptBlocks(out, plain)
	return out, nil
}

// Decrypt reverses Encrypt.
func (v *Vault) Decrypt(ciphertext []byte, organizationID int64) (string, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv(organizationID)).CryptBlocks(out, ciphertext)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func iv(organizationID int64) []byte {
	sum := md5.Sum([]byte(strconv.FormatInt(organizationID, 10)))
	return sum[:]
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

// Decryptor opens values that a registering organization encrypted with
// this node's public key (RSA-OAEP, SHA-1, base64).
type Decryptor struct {
	key *rsa.PrivateKey
}

func NewDecryptor(key *rsa.PrivateKey) *Decryptor {
	return &Decryptor{key: key}
}

// Decrypt decodes and decrypts one base64 value.
func (d *Decryptor) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding value: %w", err)
	}
	plain, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, d.key, raw, nil)
	if err != nil {
		return "", fmt.Errorf("decrypting value: %w", err)
	}
	return string(plain), nil
}

// EncryptForNode is the sender's side of Decryptor.Decrypt. harmonyctl and
// tests use it to prepare data source registrations.
func EncryptForNode(pub *rsa.PublicKey, value string) (string, error) {
	raw, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, []byte(value), nil)
	if err != nil {
		return "", fmt.Errorf("encrypting value: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
