package auth

import (
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var strengthLabels = [...]string{"", "Fraca", "Razoável", "Boa", "Forte"}

// Strength rates a password from 0 to 4.
type Strength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// PasswordStrength counts the satisfied criteria: length of at least six,
// an upper-case ASCII letter, a digit and a symbol.
func PasswordStrength(pw string) Strength {
	var long, upper, digit, symbol bool
	long = len([]rune(pw)) >= MinPasswordLength
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case !(r >= 'a' && r <= 'z'):
			symbol = true
		}
	}
	score := 0
	for _, ok := range []bool{long, upper, digit, symbol} {
		if ok {
			score++
		}
	}
	return Strength{Score: score, Label: strengthLabels[score]}
}

// FirstName returns the first word of a full name.
func FirstName(name string) string {
	fields := strings.FieldsFunc(name, unicode.IsSpace)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
