package address

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/resilience"
)

func TestNormalizeCEP(t *testing.T) {
	cep, err := NormalizeCEP("96200-000")
	require.NoError(t, err)
	require.Equal(t, "96200000", cep)
	require.Equal(t, "96200-000", FormatCEP(cep))

	_, err = NormalizeCEP("1234")
	require.ErrorIs(t, err, ErrInvalidCEP)
	_, err = NormalizeCEP("123456789")
	require.ErrorIs(t, err, ErrInvalidCEP)
}

func newViaCEP(t *testing.T, handler http.HandlerFunc) (ViaCEP, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return ViaCEP{
		HTTP:    resilience.HTTPClient{Client: srv.Client(), Target: "viacep", Timeout: time.Second},
		BaseURL: srv.URL + "/ws",
	}, &calls
}

func TestViaCEPFound(t *testing.T) {
	v, _ := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws/96200000/json/", r.URL.Path)
		_, _ = w.Write([]byte(`{"cep":"96200-000","logradouro":"Rua Marechal Floriano","bairro":"Centro","localidade":"Rio Grande","uf":"rs"}`))
	})
	res, err := v.Lookup(context.Background(), "96200000")
	require.NoError(t, err)
	require.Equal(t, Result{CEP: "96200000", Street: "Rua Marechal Floriano", District: "Centro", City: "Rio Grande", State: "RS"}, res)
}

func TestViaCEPErroMarker(t *testing.T) {
	for _, body := range []string{`{"erro": true}`, `{"erro": "true"}`} {
		v, _ := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := v.Lookup(context.Background(), "00000000")
		require.ErrorIs(t, err, ErrNotFound, body)
	}
}

func TestViaCEPTransportFailure(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		v, _ := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := v.Lookup(context.Background(), "96200000")
		require.ErrorIs(t, err, ErrTransport, status)
		require.NotErrorIs(t, err, ErrNotFound, status)
	}
}

func TestServiceRejectsInvalidBeforeLookup(t *testing.T) {
	v, calls := newViaCEP(t, func(w http.ResponseWriter, r *http.Request) {})
	svc := NewService(v, zerolog.Nop())
	_, err := svc.Lookup(context.Background(), "123")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "INVALID_CEP", appErr.Code)
	require.EqualValues(t, 0, atomic.LoadInt32(calls))
}

type failingProvider struct{ err error }

func (f failingProvider) Lookup(context.Context, string) (Result, error) { return Result{}, f.err }

func TestServiceMapsErrors(t *testing.T) {
	svc := NewService(failingProvider{err: ErrNotFound}, zerolog.Nop())
	_, err := svc.Lookup(context.Background(), "96200-000")
	appErr, _ := common.AsAppError(err)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)

	svc = NewService(failingProvider{err: errors.New("dial tcp: timeout")}, zerolog.Nop())
	_, err = svc.Lookup(context.Background(), "96200-000")
	appErr, _ = common.AsAppError(err)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	require.Equal(t, "Erro ao buscar CEP. Preencha manualmente.", appErr.Message)
}

func TestHandlerLookup(t *testing.T) {
	svc := NewService(Static{"96200000": {CEP: "96200000", City: "Rio Grande", State: "RS"}}, zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/address/cep/{cep}", NewHandler(svc).Lookup)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/address/cep/96200-000", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "Rio Grande"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/address/cep/11111111", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
