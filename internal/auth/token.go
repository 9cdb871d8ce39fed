package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	claimEmail    = "email"
	claimRemember = "remember"
)

// Claims is what an access token asserts about its bearer.
type Claims struct {
	UserID    string
	Email     string
	Remember  bool
	ExpiresAt time.Time
}

// TokenValidator checks issuer, audience, expiry and algorithm of parsed tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate ensures tok satisfies the configured constraints at now.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	options = append(options, jwt.WithRequiredClaim(claimEmail))
	return jwt.Validate(tok, options...)
}

// Signer issues and verifies HS256 access tokens.
type Signer struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

func (s Signer) validator() TokenValidator {
	return TokenValidator{Issuer: s.Issuer, Audience: s.Audience, ClockSkew: s.ClockSkew, Algorithm: jwa.HS256}
}

// Sign issues a token for the account valid for ttl from now.
func (s Signer) Sign(userID, email string, remember bool, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	token, err := jwt.NewBuilder().
		Subject(userID).
		Issuer(s.Issuer).
		Audience([]string{s.Audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.ClockSkew)).
		Expiration(expiresAt).
		Claim(claimEmail, email).
		Claim(claimRemember, remember).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies the signature and claims of raw.
func (s Signer) Parse(raw string, now time.Time) (Claims, error) {
	algorithm, err := extractTokenAlgorithm(raw)
	if err != nil {
		return Claims{}, err
	}
	v := s.validator()
	if algorithm != v.Algorithm {
		return Claims{}, fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	parsed, err := jwt.ParseString(raw, jwt.WithKey(algorithm, s.Secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, err
	}
	if err := v.Validate(parsed, algorithm, now); err != nil {
		return Claims{}, err
	}
	c := Claims{UserID: parsed.Subject(), ExpiresAt: parsed.Expiration()}
	if email, ok := parsed.PrivateClaims()[claimEmail].(string); ok {
		c.Email = email
	}
	if remember, ok := parsed.PrivateClaims()[claimRemember].(bool); ok {
		c.Remember = remember
	}
	if c.UserID == "" || c.Email == "" {
		return Claims{}, errors.New("auth: token missing subject")
	}
	return c, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
