package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/lanches-api/internal/resilience"
)

// DefaultViaCEPURL is the public ViaCEP endpoint.
const DefaultViaCEPURL = "https://viacep.com.br/ws"

// ViaCEP queries viacep.com.br.
type ViaCEP struct {
	HTTP    resilience.HTTPClient
	BaseURL string
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

// notFound reports ViaCEP's error marker, sent as true or "true".
func (r viaCEPResponse) notFound() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Lookup issues GET <base>/<cep>/json/.
func (v ViaCEP) Lookup(ctx context.Context, cep string) (Result, error) {
	base := strings.TrimRight(v.BaseURL, "/")
	if base == "" {
		base = DefaultViaCEPURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", base, cep), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := v.HTTP.Do(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Only the erro marker means not found; any other non-2xx is a failed lookup.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	var body viaCEPResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("%w: decode: %v", ErrTransport, err)
	}
	if body.notFound() {
		return Result{}, ErrNotFound
	}
	return Result{
		CEP:      cep,
		Street:   body.Logradouro,
		District: body.Bairro,
		City:     body.Localidade,
		State:    strings.ToUpper(body.UF),
	}, nil
}
