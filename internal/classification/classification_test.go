package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "placet/pkg/domain-errors"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   Classification
		want Controls
	}{
		{
			name: "internal requires access restriction and audit only",
			in:   Internal,
			want: Controls{AccessRestriction: true, AuditLogging: true},
		},
		{
			name: "confidential adds information transfer",
			in:   Confidential,
			want: Controls{AccessRestriction: true, InformationTransfer: true, AuditLogging: true},
		},
		{
			name: "restricted requires everything",
			in:   Restricted,
			want: Controls{AccessRestriction: true, InformationTransfer: true, ElectronicMessaging: true, AuditLogging: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_UnknownClassification(t *testing.T) {
	_, err := Resolve(Classification("public"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = Resolve(Classification(""))
	require.Error(t, err, "empty label must not resolve; defaulting belongs to the ingress validator")
}

func TestParse(t *testing.T) {
	c, err := Parse("confidential")
	require.NoError(t, err)
	assert.Equal(t, Confidential, c)

	_, err = Parse("top-secret")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
