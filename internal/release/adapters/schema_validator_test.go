package adapters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"placet/internal/release"
)

func validPayload() release.EmailPayload {
	return release.EmailPayload{
		To:      "user@example.com",
		Subject: "Quarterly statement",
		Body:    "Your statement is attached.",
		Attachments: []release.Attachment{
			{Path: "/mail/out/report.pdf", ContentType: "application/pdf"},
		},
	}
}

func TestSchemaValidator(t *testing.T) {
	v := NewSchemaValidator()

	tests := []struct {
		name    string
		mutate  func(*release.EmailPayload)
		wantErr string
	}{
		{
			name:   "valid payload",
			mutate: func(p *release.EmailPayload) {},
		},
		{
			name:   "no attachments is valid",
			mutate: func(p *release.EmailPayload) { p.Attachments = nil },
		},
		{
			name:    "missing recipient",
			mutate:  func(p *release.EmailPayload) { p.To = "" },
			wantErr: "recipient is required",
		},
		{
			name:    "malformed recipient",
			mutate:  func(p *release.EmailPayload) { p.To = "not-an-address" },
			wantErr: "not a valid address",
		},
		{
			name:    "missing subject",
			mutate:  func(p *release.EmailPayload) { p.Subject = "" },
			wantErr: "subject is required",
		},
		{
			name:    "oversized subject",
			mutate:  func(p *release.EmailPayload) { p.Subject = strings.Repeat("a", 256) },
			wantErr: "subject exceeds",
		},
		{
			name:    "missing body",
			mutate:  func(p *release.EmailPayload) { p.Body = "" },
			wantErr: "body is required",
		},
		{
			name:    "oversized body",
			mutate:  func(p *release.EmailPayload) { p.Body = strings.Repeat("a", 512*1024+1) },
			wantErr: "body exceeds",
		},
		{
			name: "too many attachments",
			mutate: func(p *release.EmailPayload) {
				p.Attachments = make([]release.Attachment, 17)
				for i := range p.Attachments {
					p.Attachments[i] = release.Attachment{Path: "/mail/out/a.pdf"}
				}
			},
			wantErr: "at most 16 attachments",
		},
		{
			name: "empty attachment path",
			mutate: func(p *release.EmailPayload) {
				p.Attachments = []release.Attachment{{Path: ""}}
			},
			wantErr: "path is required",
		},
		{
			name: "traversing attachment path",
			mutate: func(p *release.EmailPayload) {
				p.Attachments = []release.Attachment{{Path: "/mail/out/../../etc/passwd"}}
			},
			wantErr: "must not traverse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)
			vr := v.Validate(p)
			if tt.wantErr == "" {
				assert.True(t, vr.Valid, "errors: %v", vr.Errors)
				assert.Empty(t, vr.Errors)
				return
			}
			assert.False(t, vr.Valid)
			assert.Contains(t, strings.Join(vr.Errors, "; "), tt.wantErr)
		})
	}
}

func TestValidatorCollectsAllErrors(t *testing.T) {
	v := NewSchemaValidator()
	vr := v.Validate(release.EmailPayload{})
	assert.False(t, vr.Valid)
	assert.Len(t, vr.Errors, 3)
}
