package store

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// normalizeWrite turns JSON numbers into exact decimals so that money and
// quantity columns never pass through float64.
func normalizeWrite(r Row) map[string]interface{} {
	out := make(map[string]interface{}, len(r))
	for k, v := range r {
		if n, ok := v.(json.Number); ok {
			if d, err := decimal.NewFromString(n.String()); err == nil {
				out[k] = d
				continue
			}
		}
		out[k] = v
	}
	return out
}

// normalizeRead returns text columns the driver scanned as bytes as strings.
func normalizeRead(r map[string]interface{}) Row {
	for k, v := range r {
		if b, ok := v.([]byte); ok {
			r[k] = string(b)
		}
	}
	return r
}
