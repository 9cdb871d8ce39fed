// Package address resolves Brazilian postal codes (CEP) into street
// addresses.
package address

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidCEP is returned before any lookup when the input does not
	// contain exactly eight digits.
	ErrInvalidCEP = errors.New("address: cep must have 8 digits")
	// ErrNotFound is returned when the provider knows no such CEP.
	ErrNotFound = errors.New("address: cep not found")
	// ErrTransport wraps provider and network failures.
	ErrTransport = errors.New("address: lookup failed")
)

// Result is a resolved address.
type Result struct {
	CEP      string `json:"cep"`
	Street   string `json:"street"`
	District string `json:"district"`
	City     string `json:"city"`
	State    string `json:"state"`
}

// Provider looks up a normalized CEP.
type Provider interface {
	Lookup(ctx context.Context, cep string) (Result, error)
}

// NormalizeCEP strips every non-digit and requires eight digits.
func NormalizeCEP(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cep := b.String()
	if len(cep) != 8 {
		return "", ErrInvalidCEP
	}
	return cep, nil
}

// FormatCEP renders eight digits as 00000-000. Other inputs are returned unchanged.
func FormatCEP(cep string) string {
	if len(cep) != 8 {
		return cep
	}
	return cep[:5] + "-" + cep[5:]
}

// Static serves lookups from a fixed table.
type Static map[string]Result

// Lookup implements Provider.
func (s Static) Lookup(_ context.Context, cep string) (Result, error) {
	res, ok := s[cep]
	if !ok {
		return Result{}, ErrNotFound
	}
	return res, nil
}
