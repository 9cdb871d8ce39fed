package address

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/obs"
)

// Service validates input and maps provider failures to user-facing errors.
type Service struct {
	Provider Provider
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewService constructs a lookup service.
func NewService(p Provider, logger zerolog.Logger) *Service {
	return &Service{Provider: p, Logger: logger, Now: time.Now}
}

// Lookup normalizes raw and resolves it. Invalid input never reaches the provider.
func (s *Service) Lookup(ctx context.Context, raw string) (Result, error) {
	cep, err := NormalizeCEP(raw)
	if err != nil {
		obs.ObserveCEPLookup("invalid", 0)
		return Result{}, common.ValidationError("INVALID_CEP", "CEP inválido (8 dígitos)", err)
	}
	start := s.Now()
	res, err := s.Provider.Lookup(ctx, cep)
	elapsed := obs.DurationMillis(s.Now().Sub(start))
	switch {
	case err == nil:
		obs.ObserveCEPLookup("found", elapsed)
		return res, nil
	case errors.Is(err, ErrNotFound):
		obs.ObserveCEPLookup("not_found", elapsed)
		return Result{}, common.NotFoundError("CEP_NOT_FOUND", "CEP não encontrado", err)
	default:
		obs.ObserveCEPLookup("error", elapsed)
		s.Logger.Warn().Err(err).Str("cep", cep).Msg("cep_lookup_failed")
		return Result{}, common.TransportError("CEP_LOOKUP_FAILED", "Erro ao buscar CEP. Preencha manualmente.", err)
	}
}
