package passphrase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "bharatconnect/pkg/errors"
)

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name       string
		policy     Policy
		passphrase string
		wantErr    bool
	}{
		{"default accepts eight chars", DefaultPolicy(), "correct-pass", false},
		{"default rejects short", DefaultPolicy(), "short", true},
		{"blank rejected", DefaultPolicy(), "         ", true},
		{"runes not bytes", DefaultPolicy(), "पासवर्ड१२", false},
		{"custom min length", Policy{MinLength: 16}, "correct-pass", true},
		{"zero min length falls back to default", Policy{}, "1234567", true},
		{"common rejected when enabled", Policy{MinLength: 8, RejectCommon: true}, "mypassword99", true},
		{"common allowed by default", DefaultPolicy(), "mypassword99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.passphrase)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, StrengthWeak, Rate("abc"))
	assert.Equal(t, StrengthWeak, Rate("password"))
	assert.Equal(t, StrengthVeryStrong, Rate("Monsoon-Chai-2024!"))
	assert.Equal(t, "very strong", StrengthVeryStrong.String())
}
