package checkout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/pix"
)

const testClientID = "6f1c2b4e-9a7d-4c1e-8d55-3f2a1b0c9e77"

type envelope struct {
	Data   json.RawMessage   `json:"data"`
	Notice *common.Notice    `json:"notice"`
	Error  *common.ErrorBody `json:"error"`
}

func newRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(common.ClientCookie{}.Middleware)
	r.Route("/checkout", NewHandler(svc).Routes)
	return r
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(common.ClientIDHeader, testClientID)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestCheckoutHTTPFlow(t *testing.T) {
	f := newFixture(t, time.Hour)
	h := newRouter(f.svc)
	ctx := t.Context()
	_, err := f.carts.AddItem(ctx, testClientID, "X-Burger", dec("23.50"), "")
	require.NoError(t, err)

	rr := call(t, h, http.MethodPost, "/checkout/open", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = call(t, h, http.MethodPost, "/checkout/next", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(t, h, http.MethodPut, "/checkout/address", `{"cep":"96200-000","street":"Rua A","number":"1","district":"Centro","city":"Rio Grande"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env := decode(t, rr)
	require.Equal(t, "Preencha o campo obrigatório", env.Error.Message)

	rr = call(t, h, http.MethodPut, "/checkout/address", `{"cep":"96200-000","street":"Rua A","number":"1","district":"Centro","city":"Rio Grande","state":"rs"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = call(t, h, http.MethodPost, "/checkout/next", "")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "WRONG_STEP", decode(t, rr).Error.Code)

	rr = call(t, h, http.MethodPost, "/checkout/payment/pix", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sel struct {
		Step      Step `json:"step"`
		Selection struct {
			Pix struct {
				CopyPaste string `json:"copyPaste"`
			} `json:"pix"`
		} `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &sel))
	require.Equal(t, StepPayment, sel.Step)
	require.NoError(t, pix.Verify(sel.Selection.Pix.CopyPaste))
	parsed, err := pix.Parse(sel.Selection.Pix.CopyPaste)
	require.NoError(t, err)
	require.Equal(t, "28.50", parsed.Amount)

	rr = call(t, h, http.MethodGet, "/checkout/pix/qrcode.png?size=128", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = call(t, h, http.MethodPost, "/checkout/pix/confirm", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = call(t, h, http.MethodGet, "/checkout/confirmation", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var receipt Receipt
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &receipt))
	require.Equal(t, 12345, receipt.OrderNumber)
	require.Equal(t, "28.50", receipt.Total)

	rr = call(t, h, http.MethodGet, "/checkout/receipt.pdf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "pedido-12345.pdf")

	rr = call(t, h, http.MethodPost, "/checkout/finish", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Obrigado pela compra! Logo chegará até você.", decode(t, rr).Notice.Message)
}

func TestCheckoutHTTPErrors(t *testing.T) {
	f := newFixture(t, time.Hour)
	h := newRouter(f.svc)

	rr := call(t, h, http.MethodPost, "/checkout/open", "")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "EMPTY_CART", decode(t, rr).Error.Code)

	rr = call(t, h, http.MethodGet, "/checkout/pix", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = call(t, h, http.MethodGet, "/checkout/cash/suggestions", "")
	require.Equal(t, http.StatusOK, rr.Code)
}
