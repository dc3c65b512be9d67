package adapters

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"

	"placet/internal/release"
)

// LocalSigner signs attachments with a key from a PKCS#12 bundle: the signed
// artifact is written next to the original under the deterministic signed
// name, with a detached RSA-PSS signature alongside it. It exists for
// single-binary and test deployments; production wires the organization's
// signing service behind the same port.
type LocalSigner struct {
	key *rsa.PrivateKey
}

// NewLocalSigner loads the signing key from a PKCS#12 bundle.
func NewLocalSigner(bundlePath, password string) (*LocalSigner, error) {
	raw, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("read signing bundle: %w", err)
	}
	key, _, err := pkcs12.Decode(raw, password)
	if err != nil {
		return nil, fmt.Errorf("decode signing bundle: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing bundle key is %T, want *rsa.PrivateKey", key)
	}
	return &LocalSigner{key: rsaKey}, nil
}

func (s *LocalSigner) Sign(ctx context.Context, attachment release.Attachment) (release.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return release.Attachment{}, err
	}

	content, err := os.ReadFile(attachment.Path)
	if err != nil {
		return release.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}

	digest := sha256.Sum256(content)
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], nil)
	if err != nil {
		return release.Attachment{}, fmt.Errorf("sign attachment: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return release.Attachment{}, err
	}

	signedPath := release.SignedPath(attachment.Path)
	if err := os.WriteFile(signedPath, content, 0o600); err != nil {
		return release.Attachment{}, fmt.Errorf("write signed attachment: %w", err)
	}
	if err := os.WriteFile(signedPath+".sig", sig, 0o600); err != nil {
		return release.Attachment{}, fmt.Errorf("write signature: %w", err)
	}

	return release.Attachment{Path: signedPath, ContentType: attachment.ContentType}, nil
}

// UnconfiguredSigner fails every signing request. Deployments without a
// signing collaborator keep the pipeline fail-closed for restricted content.
type UnconfiguredSigner struct{}

func (UnconfiguredSigner) Sign(context.Context, release.Attachment) (release.Attachment, error) {
	return release.Attachment{}, fmt.Errorf("no signing collaborator configured")
}
