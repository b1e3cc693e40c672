// Package signature signs outbound requests with HTTP message signatures
// (RSASSA-PKCS1-v1_5 over SHA-256) so counterparts can check that the method,
// authority, path and body were produced by the holder of this node's key.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// Label names the single signature carried in signature-input and signature.
	Label = "sig1"
	// Algorithm is the alg parameter of signature-input.
	Algorithm = "rsa-v1_5-sha256"

	digestLabel = "sha-256"
)

// Header names set by Sign.
const (
	HeaderContentDigest  = "Content-Digest"
	HeaderSignatureInput = "Signature-Input"
	HeaderSignature      = "Signature"
)

// Headers are the signing headers for one request. ContentDigest is empty
// when the request has no body.
type Headers struct {
	ContentDigest  string
	SignatureInput string
	Signature      string
}

// Apply sets the headers on h.
func (s Headers) Apply(h http.Header) {
	if s.ContentDigest != "" {
		h.Set(HeaderContentDigest, s.ContentDigest)
	}
	h.Set(HeaderSignatureInput, s.SignatureInput)
	h.Set(HeaderSignature, s.Signature)
}

// Signer holds the node's private key. It is safe for concurrent use.
type Signer struct {
	key *rsa.PrivateKey
	now func() time.Time
}

// NewSigner creates a signer for key.
func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key, now: time.Now}
}

// WithClock returns a copy of the signer that reads creation times from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	return &Signer{key: s.key, now: now}
}

// PublicKey returns the public half of the signing key.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// Sign produces the signing headers for a request with the given method,
// target and body. body is the exact byte sequence that will be sent.
func (s *Signer) Sign(method string, target *url.URL, body []byte) (Headers, error) {
	if target == nil {
		return Headers{}, fmt.Errorf("signing request: nil target url")
	}

	var digest string
	if len(body) > 0 {
		digest = ContentDigest(body)
	}

	input := SignatureInput(digest != "", s.now())
	base := SignatureBase(method, target, digest)

	hashed := sha256.Sum256([]byte(base))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hashed[:])
	if err != nil {
		return Headers{}, fmt.Errorf("signing request: %w", err)
	}

	return Headers{
		ContentDigest:  digest,
		SignatureInput: input,
		Signature:      fmt.Sprintf("%s=:%s:", Label, base64.StdEncoding.EncodeToString(sig)),
	}, nil
}

// ContentDigest returns the content-digest header value for body.
func ContentDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s=:%s:", digestLabel, base64.StdEncoding.EncodeToString(sum[:]))
}

// SignatureInput returns the signature-input header value. The
// content-digest component is listed only when withDigest is true.
func SignatureInput(withDigest bool, created time.Time) string {
	components := `"@method" "@authority" "@path"`
	if withDigest {
		components += ` "content-digest"`
	}
	return fmt.Sprintf(`%s=(%s);created=%d;alg="%s"`, Label, components, created.UnixMilli(), Algorithm)
}

// SignatureBase returns the canonical string that is signed. digest is the
// content-digest header value, or empty when the request has no body.
func SignatureBase(method string, target *url.URL, digest string) string {
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}

	lines := []string{
		`"@method": ` + strings.ToLower(method),
		`"@authority": ` + target.Hostname(),
		`"@path": ` + path,
	}
	if digest != "" {
		lines = append(lines, `"content-digest": `+digest)
	}
	return strings.Join(lines, "\n")
}

// Verify checks a signature header value produced by Sign against the
// signature base of the request. Counterparts use it; the node itself
// only signs.
func Verify(pub *rsa.PublicKey, method string, target *url.URL, digest, signatureHeader string) error {
	prefix := Label + "=:"
	if !strings.HasPrefix(signatureHeader, prefix) || !strings.HasSuffix(signatureHeader, ":") {
		return fmt.Errorf("malformed signature header")
	}
	encoded := strings.TrimSuffix(strings.TrimPrefix(signatureHeader, prefix), ":")
	sig, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	hashed := sha256.Sum256([]byte(SignatureBase(method, target, digest)))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed[:], sig); err != nil {
		return fmt.Errorf("verifying signature: %w", err)
	}
	return nil
}

// LoadPrivateKey reads a PEM encoded RSA private key (PKCS#1 or PKCS#8).
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey decodes a PEM encoded RSA private key (PKCS#1 or PKCS#8).
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, not RSA", parsed)
	}
	return key, nil
}

// ParsePublicKey decodes a PEM encoded RSA public key (PKIX or PKCS#1).
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", parsed)
	}
	return key, nil
}

// GenerateKeyPair creates an RSA key pair and returns both halves PEM encoded
// (PKCS#1 private key, PKIX public key).
func GenerateKeyPair(bits int) (privatePEM, publicPEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("generating key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("encoding public key: %w", err)
	}

	privatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	publicPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privatePEM, publicPEM, nil
}
