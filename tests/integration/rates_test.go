//go:build integration

package integration

import (
	"math"
	"net/http"
	"testing"
)

func TestGetRates(t *testing.T) {
	resp := doGet(t, "/api/rates")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	table := decodeJSON[rateTableResponse](t, resp)
	if len(table.InstallmentFeePercent) != 12 {
		t.Fatalf("expected 12 installment fees, got %d", len(table.InstallmentFeePercent))
	}
	if table.CardFeePercent <= 0 {
		t.Errorf("cardFeePercent: got %v, want > 0", table.CardFeePercent)
	}
}

func TestUpdateRates_RequiresAPIKey(t *testing.T) {
	resp := doPutWithAuth(t, "/api/rates", map[string]any{
		"cardFeePercent": 2.5,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestUpdateRates_PartialUpdate(t *testing.T) {
	before := decodeJSON[rateTableResponse](t, doGet(t, "/api/rates"))

	resp := doPutWithAuth(t, "/api/rates", map[string]any{
		"pixDiscountPercent": 6,
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	after := decodeJSON[rateTableResponse](t, doGet(t, "/api/rates"))
	if math.Abs(after.PixDiscountPercent-6) > 0.001 {
		t.Errorf("pixDiscountPercent: got %v, want 6", after.PixDiscountPercent)
	}
	if math.Abs(after.CardFeePercent-before.CardFeePercent) > 0.001 {
		t.Errorf("cardFeePercent changed: %v -> %v", before.CardFeePercent, after.CardFeePercent)
	}

	// Restore so other tests see the seeded table.
	restore := doPutWithAuth(t, "/api/rates", map[string]any{
		"pixDiscountPercent": before.PixDiscountPercent,
	}, testAPIKey)
	restore.Body.Close()
}

func TestUpdateRates_RejectsNegativeFee(t *testing.T) {
	resp := doPutWithAuth(t, "/api/rates", map[string]any{
		"cardFeePercent": -1,
	}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}
