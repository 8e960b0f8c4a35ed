package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/voltstore/pricing-api/internal/domain/pricing"
	"github.com/voltstore/pricing-api/internal/domain/rates"
)

// maxBodyBytes caps request bodies; calculation payloads are small.
const maxBodyBytes = 1 << 20

// readBody reads the full request body with the size cap applied.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

// writeJSON encodes a response with the given status. The encode callback
// builds the body on a jx encoder.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard {code, message} error body.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// respondError maps domain errors to HTTP responses. Validation failures
// carry the offending field in the message; anything unrecognized is a 500
// logged with the request-scoped logger.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *pricing.InvalidInputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusUnprocessableEntity, inputErr.Error())
		return
	}

	var cfgErr *rates.ConfigError
	if errors.As(err, &cfgErr) {
		writeError(w, http.StatusUnprocessableEntity, cfgErr.Error())
		return
	}

	var skuErr *UnknownSKUError
	if errors.As(err, &skuErr) {
		writeError(w, http.StatusUnprocessableEntity, skuErr.Error())
		return
	}

	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// encDecimal writes a decimal as a JSON number.
func encDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// decDecimal reads a decimal from a JSON number or a string-wrapped number.
func decDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	s := string(n)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse number %q", s)
	}
	return v, nil
}

// encQuoteFields writes the Quote fields into an already-open object.
func encQuoteFields(e *jx.Encoder, q pricing.Quote) {
	e.FieldStart("costPrice")
	encDecimal(e, q.CostPrice)
	e.FieldStart("basePrice")
	encDecimal(e, q.BasePrice)
	e.FieldStart("discountPrice")
	encDecimal(e, q.DiscountPrice)
	e.FieldStart("finalPrice")
	encDecimal(e, q.FinalPrice)
	e.FieldStart("markupPercent")
	encDecimal(e, q.MarkupPercent)
	e.FieldStart("marginPercent")
	encDecimal(e, q.MarginPercent)
	e.FieldStart("profitValue")
	encDecimal(e, q.ProfitValue)
}
