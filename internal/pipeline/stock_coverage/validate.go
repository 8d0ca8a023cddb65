package stock_coverage

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var keyFields = []string{"ProductCode", "Branch", "Location"}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeStock applies the same key normalization the aggregator uses and
// trims the description.
func normalizeStock(rec StockRecord) StockRecord {
	rec.ProductCode = NormalizeProductCode(rec.ProductCode)
	rec.Branch = NormalizeKeyPart(rec.Branch)
	rec.Location = NormalizeKeyPart(rec.Location)
	rec.Description = strings.TrimSpace(rec.Description)
	return rec
}

// nonFiniteField returns the json name of the first NaN or infinite quantity.
func nonFiniteField(rec StockRecord) string {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"balance", rec.Balance},
		{"reserved", rec.Reserved},
		{"onOrder", rec.OnOrder},
		{"unitCost", rec.UnitCost},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return f.name
		}
	}
	return ""
}

// check validates a normalized record. Strict mode checks every rule; otherwise
// only the key fields are required. Non-finite quantities fail in both modes.
func (e *Engine) check(index int, rec StockRecord, strict bool) *ValidationError {
	if field := nonFiniteField(rec); field != "" {
		return &ValidationError{Index: index, Key: rec.Key(), Field: field, Reason: "finite"}
	}

	var err error
	if strict {
		err = e.validate.Struct(rec)
	} else {
		err = e.validate.StructPartial(rec, keyFields...)
	}
	if err == nil {
		return nil
	}

	verr := &ValidationError{Index: index, Key: rec.Key(), Reason: err.Error()}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		verr.Field = fieldErrs[0].Field()
		verr.Reason = fieldErrs[0].Tag()
	}
	return verr
}
