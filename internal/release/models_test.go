package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignedPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report_signed.pdf"},
		{"/mail/out/report.pdf", "/mail/out/report_signed.pdf"},
		{"archive.tar.gz", "archive.tar_signed.gz"},
		{"noext", "noext_signed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignedPath(tt.in))
	}
}

func TestSignedPathIdempotentDetection(t *testing.T) {
	a := Attachment{Path: "report.pdf"}
	assert.False(t, a.IsSigned())

	signedOnce := Attachment{Path: SignedPath(a.Path)}
	assert.True(t, signedOnce.IsSigned())

	// The naming rule and detection agree, so a second pipeline run leaves
	// the attachment untouched.
	assert.Equal(t, "report_signed.pdf", signedOnce.Path)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, Attachment{Path: "a.pdf"}.IsPDF())
	assert.True(t, Attachment{Path: "a.PDF"}.IsPDF())
	assert.True(t, Attachment{Path: "a.bin", ContentType: "application/pdf"}.IsPDF())
	assert.False(t, Attachment{Path: "a.txt", ContentType: "text/plain"}.IsPDF())
}
