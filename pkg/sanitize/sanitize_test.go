package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "bharatconnect/pkg/errors"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"firebase uid", "k3J9xYq2LmVn8RtPz0AbCdEf1Gh2", false},
		{"uuid", "0b6f2a1e-3c4d-4e5f-8a9b-0c1d2e3f4a5b", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"slash", "users/alice", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"reserved", "__name__", true},
		{"newline", "alice\n", true},
		{"inner space", "ali ce", true},
		{"too long", strings.Repeat("a", 129), true},
		{"max length", strings.Repeat("a", 128), false},
		{"invalid utf8", "ali\xffce", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("user id", tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStripControlCharacters(t *testing.T) {
	assert.Equal(t, "alicebob", StripControlCharacters("alice\x00\nbob\x7f"))
}
