package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordStrength(t *testing.T) {
	cases := map[string]Strength{
		"":       {0, ""},
		"abc":    {0, ""},
		"abcdef": {1, "Fraca"},
		"Abcdef": {2, "Razoável"},
		"Abcde1": {3, "Boa"},
		"Abcd1!": {4, "Forte"},
		"1!":     {2, "Razoável"},
		"çãoabc": {2, "Razoável"},
	}
	for pw, want := range cases {
		require.Equal(t, want, PasswordStrength(pw), pw)
	}
}

func TestFirstName(t *testing.T) {
	require.Equal(t, "Ana", FirstName("  Ana Maria Souza"))
	require.Equal(t, "", FirstName("   "))
}
