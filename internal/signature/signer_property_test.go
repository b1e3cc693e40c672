package signature

import (
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// A receiver that recomputes digest, signature-input and signature base from
// the same method, URL and body must arrive at byte-identical values.
func TestSign_RecomputableByReceiver(t *testing.T) {
	signer := setupTestSigner(t)
	created := signer.now()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("headers match independent recomputation", prop.ForAll(
		func(host, path, body string) bool {
			if host == "" {
				return true
			}
			target, err := url.Parse("https://" + host + ".example/" + path)
			if err != nil {
				return true
			}

			h, err := signer.Sign("post", target, []byte(body))
			if err != nil {
				return false
			}

			var digest string
			if body != "" {
				digest = ContentDigest([]byte(body))
			}
			if h.ContentDigest != digest {
				return false
			}
			if h.SignatureInput != SignatureInput(body != "", created) {
				return false
			}
			return Verify(signer.PublicKey(), "post", target, digest, h.Signature) == nil
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestSignatureInput_Components(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("content-digest is listed only with a body", prop.ForAll(
		func(ms int64, withDigest bool) bool {
			input := SignatureInput(withDigest, time.UnixMilli(ms))
			if strings.Contains(input, `"content-digest"`) != withDigest {
				return false
			}
			return strings.Contains(input, fmt.Sprintf(";created=%d;", ms)) &&
				strings.HasSuffix(input, `alg="rsa-v1_5-sha256"`)
		},
		gen.Int64Range(0, 1<<42),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
