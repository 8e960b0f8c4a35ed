package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/rates"
)

// GetRates returns the active rate table snapshot.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	table, err := h.loadRates(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encRateTable(e, table)
	})
}

// UpdateRates merges a partial configuration into the active rate table
// and persists the result wholesale.
func (h *Handler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	cfg, err := decodeRateConfig(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	current, err := h.loadRates(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	updated, err := current.Apply(cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.rates.Save(r.Context(), h.cfg.RateTableName, updated); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encRateTable(e, updated)
	})
}

func decodeRateConfig(data []byte) (rates.Config, error) {
	var cfg rates.Config
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "pixDiscountPercent":
			v, err := decDecimal(d)
			cfg.PixDiscountPercent = &v
			return err
		case "cardFeePercent":
			v, err := decDecimal(d)
			cfg.CardFeePercent = &v
			return err
		case "installmentFeePercent":
			cfg.InstallmentFeePercent = make(map[int]decimal.Decimal)
			return d.Obj(func(d *jx.Decoder, countKey string) error {
				count, err := strconv.Atoi(countKey)
				if err != nil {
					return d.Skip()
				}
				fee, err := decDecimal(d)
				if err != nil {
					return err
				}
				cfg.InstallmentFeePercent[count] = fee
				return nil
			})
		case "operationalCostFixed":
			v, err := decDecimal(d)
			cfg.OperationalCostFixed = &v
			return err
		case "shippingMarkupPercent":
			v, err := decDecimal(d)
			cfg.ShippingMarkupPercent = &v
			return err
		default:
			return d.Skip()
		}
	})
	return cfg, err
}

func encRateTable(e *jx.Encoder, t rates.RateTable) {
	e.ObjStart()
	e.FieldStart("pixDiscountPercent")
	encDecimal(e, t.PixDiscountPercent)
	e.FieldStart("cardFeePercent")
	encDecimal(e, t.CardFeePercent)
	e.FieldStart("installmentFeePercent")
	e.ObjStart()
	for count := 1; count <= rates.MaxInstallments; count++ {
		e.FieldStart(strconv.Itoa(count))
		encDecimal(e, t.InstallmentFee(count))
	}
	e.ObjEnd()
	e.FieldStart("operationalCostFixed")
	encDecimal(e, t.OperationalCostFixed)
	e.FieldStart("shippingMarkupPercent")
	encDecimal(e, t.ShippingMarkupPercent)
	e.ObjEnd()
}
