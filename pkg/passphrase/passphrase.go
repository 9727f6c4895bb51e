package passphrase

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "bharatconnect/pkg/errors"
)

// DefaultMinLength is the shortest passphrase accepted for a backup
const DefaultMinLength = 8

// Strength is a coarse passphrase strength rating shown to users
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthMedium
	StrengthStrong
	StrengthVeryStrong
)

// Policy defines what a backup passphrase must satisfy. Backups are protected by
// the KDF work factor, so only length is enforced; common-phrase rejection is
// opt-in.
type Policy struct {
	MinLength    int
	RejectCommon bool
}

// DefaultPolicy returns the default backup passphrase policy
func DefaultPolicy() Policy {
	return Policy{MinLength: DefaultMinLength}
}

// Validate checks passphrase against the policy. Length is counted in runes.
func (p Policy) Validate(passphrase string) error {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = DefaultMinLength
	}

	if strings.TrimSpace(passphrase) == "" {
		return apperrors.ValidationError("passphrase is required")
	}
	if utf8.RuneCountInString(passphrase) < minLen {
		return apperrors.ValidationError(fmt.Sprintf("passphrase must be at least %d characters", minLen))
	}
	if p.RejectCommon && isCommonPattern(passphrase) {
		return apperrors.ValidationError("passphrase contains common patterns and is not secure")
	}
	return nil
}

// Rate returns a strength rating from length and character variety
func Rate(passphrase string) Strength {
	score := 0

	n := utf8.RuneCountInString(passphrase)
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	if n >= 16 {
		score++
	}

	var hasLower, hasUpper, hasNumber, hasOther bool
	for _, r := range passphrase {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasOther = true
		}
	}
	for _, ok := range []bool{hasLower, hasUpper, hasNumber, hasOther} {
		if ok {
			score++
		}
	}

	if isCommonPattern(passphrase) {
		score -= 2
	}

	switch {
	case score <= 2:
		return StrengthWeak
	case score <= 4:
		return StrengthMedium
	case score <= 5:
		return StrengthStrong
	}
	return StrengthVeryStrong
}

// String returns a human-readable description of the strength
func (s Strength) String() string {
	switch s {
	case StrengthWeak:
		return "weak"
	case StrengthMedium:
		return "medium"
	case StrengthStrong:
		return "strong"
	case StrengthVeryStrong:
		return "very strong"
	default:
		return "unknown"
	}
}

func isCommonPattern(passphrase string) bool {
	lower := strings.ToLower(passphrase)

	common := []string{
		"password", "123456", "12345678", "qwerty",
		"abc123", "letmein", "111111", "iloveyou",
		"trustno1", "welcome", "admin", "asdfgh", "zxcvbn",
	}
	for _, c := range common {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}
