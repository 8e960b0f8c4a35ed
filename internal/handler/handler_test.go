package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltstore/pricing-api/internal/domain/auth"
	"github.com/voltstore/pricing-api/internal/domain/catalog"
	"github.com/voltstore/pricing-api/internal/domain/orderprofit"
	"github.com/voltstore/pricing-api/internal/domain/rates"
)

// --- Stub repositories ---

type stubRatesRepo struct {
	table rates.RateTable
	saved map[string]rates.RateTable
	empty bool
}

func (s *stubRatesRepo) Load(_ context.Context, name string) (rates.RateTable, error) {
	if s.empty {
		return rates.RateTable{}, rates.ErrNotFound
	}
	return s.table, nil
}

func (s *stubRatesRepo) Save(_ context.Context, name string, t rates.RateTable) error {
	if s.saved == nil {
		s.saved = make(map[string]rates.RateTable)
	}
	s.saved[name] = t
	s.table = t
	s.empty = false
	return nil
}

type stubProductRepo struct {
	bySKU map[string]catalog.Product
}

func (s *stubProductRepo) List(_ context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(s.bySKU))
	for _, p := range s.bySKU {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProductRepo) GetBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	p, ok := s.bySKU[sku]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (s *stubProductRepo) GetBySKUs(_ context.Context, skus []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, sku := range skus {
		if p, ok := s.bySKU[sku]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubProductRepo) UpsertCosts(_ context.Context, _ []catalog.CostUpdate) error {
	return errors.New("not implemented")
}

type stubKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (s *stubKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := s.byHash[hash]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return info, nil
}

// --- Helpers ---

const (
	testPepper = "test-pepper"
	testAPIKey = "admin-key"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestServer(t *testing.T, ratesRepo *stubRatesRepo, products *stubProductRepo) *httptest.Server {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(testAPIKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	keys := &stubKeyRepo{byHash: map[string]*auth.APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "test"},
	}}

	h := NewHandler(
		Config{RateTableName: "default", Defaults: orderprofit.DefaultOptions()},
		ratesRepo, products,
	)
	sec := NewSecurityHandler(keys, []byte(testPepper))

	mux := http.NewServeMux()
	h.Routes(mux, sec)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body, apiKey string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

// --- Tests ---

func TestQuoteFromMargin(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/quotes/margin",
		`{"costPrice": 400, "marginPercent": 30}`, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 541.62, body["finalPrice"], 0.001)
	assert.InDelta(t, 141.62, body["profitValue"], 0.001)
}

func TestQuoteFromMargin_WithShipping(t *testing.T) {
	markup := dec("20")
	table, err := rates.Default().Apply(rates.Config{ShippingMarkupPercent: &markup})
	require.NoError(t, err)
	srv := newTestServer(t, &stubRatesRepo{table: table}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/quotes/margin",
		`{"costPrice": 400, "marginPercent": 30, "shippingBaseCost": 25.50}`, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 30.60, body["shippingPrice"], 0.001)
}

func TestQuoteFromMargin_NegativeCost(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/quotes/margin",
		`{"costPrice": -10, "marginPercent": 30}`, "")

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["message"], "costPrice")
}

func TestQuoteFromMargin_MalformedBody(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/quotes/margin", `{"costPrice": `, "")

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuoteFromComponents(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/quotes/components",
		`{"costPrice": 700, "basePrice": 1000, "discountPercent": 10}`, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 900.0, body["finalPrice"], 0.001)
	assert.InDelta(t, 200.0, body["profitValue"], 0.001)
	assert.InDelta(t, 22.22, body["marginPercent"], 0.001)
}

func TestPlanInstallments(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/installments",
		`{"salePrice": 1000}`, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	lines, ok := body["lines"].([]any)
	require.True(t, ok)
	require.Len(t, lines, 12)

	second := lines[1].(map[string]any)
	assert.EqualValues(t, 2, second["count"])
	assert.InDelta(t, 1029.90, second["total"], 0.001)
	assert.InDelta(t, 514.95, second["perInstallment"], 0.001)
}

func TestSummarizeOrder(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders/summary",
		`{
			"items": [{"costPrice": 400, "salePrice": 700, "quantity": 2}],
			"grossRevenue": 1400,
			"shippingCost": 0
		}`, testAPIKey)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 800.0, body["totalCost"], 0.001)
	assert.InDelta(t, 600.0, body["grossProfit"], 0.001)
	assert.InDelta(t, 56.25, body["processorFee"], 0.001)
	assert.InDelta(t, 98.0, body["taxFee"], 0.001)
	assert.InDelta(t, 445.75, body["netProfit"], 0.001)
	assert.InDelta(t, 31.84, body["netMarginPercent"], 0.001)
}

func TestSummarizeOrder_ResolvesCatalogCosts(t *testing.T) {
	products := &stubProductRepo{bySKU: map[string]catalog.Product{
		"PHONE-X": {SKU: "PHONE-X", Name: "Phone X", CostPrice: dec("400"), SalePrice: dec("700")},
	}}
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, products)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders/summary",
		`{
			"items": [{"sku": "PHONE-X", "quantity": 2}],
			"grossRevenue": 1400
		}`, testAPIKey)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 800.0, body["totalCost"], 0.001)
}

func TestSummarizeOrder_UnknownSKU(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders/summary",
		`{"items": [{"sku": "NOPE", "quantity": 1}], "grossRevenue": 10}`, testAPIKey)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["message"], "NOPE")
}

func TestSummarizeOrder_RequiresAPIKey(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/orders/summary",
		`{"items": [], "grossRevenue": 0}`, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/orders/summary",
		`{"items": [], "grossRevenue": 0}`, "wrong-key")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetRates_FallsBackToDefaults(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{empty: true}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/rates", "", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 3.99, body["cardFeePercent"], 0.001)
}

func TestUpdateRates(t *testing.T) {
	repo := &stubRatesRepo{table: rates.Default()}
	srv := newTestServer(t, repo, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/rates",
		`{"cardFeePercent": 2.5, "installmentFeePercent": {"2": 3.5}}`, testAPIKey)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 2.5, body["cardFeePercent"], 0.001)

	saved, ok := repo.saved["default"]
	require.True(t, ok, "rate table must be persisted")
	assert.True(t, dec("3.5").Equal(saved.InstallmentFee(2)))
	// Unspecified keys keep their previous values.
	assert.True(t, dec("5").Equal(saved.PixDiscountPercent))
}

func TestUpdateRates_RejectsInvalidConfig(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/rates",
		`{"cardFeePercent": 100}`, testAPIKey)

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["message"], "cardFeePercent")
}

func TestGetProduct(t *testing.T) {
	products := &stubProductRepo{bySKU: map[string]catalog.Product{
		"CHGR-GAN-65W": {
			SKU: "CHGR-GAN-65W", Name: "GaN Charger", Category: "accessories",
			CostPrice: dec("82.50"), SalePrice: dec("189.90"),
		},
	}}
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, products)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/products/CHGR-GAN-65W", "", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 107.40, body["profitValue"], 0.001)
	assert.InDelta(t, 56.56, body["marginPercent"], 0.001)
}

func TestGetProduct_NotFound(t *testing.T) {
	srv := newTestServer(t, &stubRatesRepo{table: rates.Default()}, &stubProductRepo{})

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/products/missing", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
