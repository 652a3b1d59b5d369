package openpayments

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yaronf/httpsign"
)

const signatureName = "sig1"

// ParsePrivateKey decodes a PKCS#8 PEM Ed25519 key.
func ParsePrivateKey(pemBytes []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("private key: no PEM block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	edKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key: expected ed25519, got %T", key)
	}
	return edKey, nil
}

// Signer adds HTTP message signature headers (Content-Digest, Signature-Input,
// Signature) the way Open Payments servers verify client requests.
type Signer struct {
	keyID string
	key   ed25519.PrivateKey
}

// NewSigner creates a Signer for the key registered under keyID on the
// client's wallet address.
func NewSigner(keyID string, key ed25519.PrivateKey) *Signer {
	return &Signer{keyID: keyID, key: key}
}

// components lists what an Open Payments server expects covered: the target,
// the GNAP token when present, and the body headers when there is a body.
func components(req *http.Request, hasBody bool) httpsign.Fields {
	names := []string{"@method", "@target-uri"}
	if req.Header.Get("Authorization") != "" {
		names = append(names, "authorization")
	}
	if hasBody {
		names = append(names, "content-digest", "content-length", "content-type")
	}
	return httpsign.Headers(names...)
}

// Sign mutates req in place. The body, if any, is read and restored.
func (s *Signer) Sign(req *http.Request) error {
	hasBody := req.Body != nil && req.Body != http.NoBody
	if hasBody {
		digest, err := httpsign.GenerateContentDigestHeader(&req.Body, []string{httpsign.DigestSha512})
		if err != nil {
			return fmt.Errorf("content digest: %w", err)
		}
		req.Header.Set("Content-Digest", digest)
		req.Header.Set("Content-Length", strconv.FormatInt(req.ContentLength, 10))
	}

	cfg := httpsign.NewSignConfig().SignAlg(false).SetKeyID(s.keyID)
	signer, err := httpsign.NewEd25519Signer(s.key, cfg, components(req, hasBody))
	if err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	input, signature, err := httpsign.SignRequest(signatureName, *signer, req)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Signature-Input", input)
	req.Header.Set("Signature", signature)
	return nil
}
