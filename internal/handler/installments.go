package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/voltstore/pricing-api/internal/domain/installment"
)

// PlanInstallments returns the 1..12x payment schedule for a sale price.
func (h *Handler) PlanInstallments(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	salePrice := decimal.Zero
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		if key == "salePrice" {
			salePrice, err = decDecimal(d)
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	table, err := h.loadRates(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	lines, err := installment.Plan(salePrice, table)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("salePrice")
		encDecimal(e, salePrice)
		e.FieldStart("lines")
		e.ArrStart()
		for _, line := range lines {
			e.ObjStart()
			e.FieldStart("count")
			e.Int(line.Count)
			e.FieldStart("feePercent")
			encDecimal(e, line.FeePercent)
			e.FieldStart("perInstallment")
			encDecimal(e, line.PerInstallment)
			e.FieldStart("total")
			encDecimal(e, line.Total)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
