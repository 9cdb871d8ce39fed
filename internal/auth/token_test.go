package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

var tokenNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSigner() Signer {
	return Signer{Secret: []byte("test-secret"), Issuer: "lanches-api", Audience: "lanches-web"}
}

func TestSignAndParseRoundTrip(t *testing.T) {
	s := testSigner()
	raw, exp, err := s.Sign("u-1", "ana@example.com", true, tokenNow, time.Hour)
	require.NoError(t, err)
	require.Equal(t, tokenNow.Add(time.Hour), exp)

	claims, err := s.Parse(raw, tokenNow.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "ana@example.com", claims.Email)
	require.True(t, claims.Remember)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	s := testSigner()
	raw, _, err := s.Sign("u-1", "ana@example.com", false, tokenNow, time.Minute)
	require.NoError(t, err)
	_, err = s.Parse(raw, tokenNow.Add(2*time.Minute))
	require.Error(t, err)
}

func TestParseRejectsForeignSecretAndAudience(t *testing.T) {
	s := testSigner()
	raw, _, err := s.Sign("u-1", "ana@example.com", false, tokenNow, time.Hour)
	require.NoError(t, err)

	other := s
	other.Secret = []byte("another")
	_, err = other.Parse(raw, tokenNow)
	require.Error(t, err)

	other = s
	other.Audience = "admin"
	_, err = other.Parse(raw, tokenNow)
	require.Error(t, err)
}

func TestParseRejectsUnexpectedAlgorithm(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("u-1").Claim(claimEmail, "a@b.c").Expiration(tokenNow.Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS512, []byte("test-secret")))
	require.NoError(t, err)

	_, err = testSigner().Parse(string(signed), tokenNow)
	require.ErrorContains(t, err, "unexpected token algorithm")
}
