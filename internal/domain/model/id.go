// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// maxIDExponent bounds the exponent of numeric ids that are normalised.
const maxIDExponent = 64

// ID identifies subjects, locations, cards and devices. The console sends
// integer primary keys while the CSV datasets use string keys, so an ID
// accepts either JSON form and compares as a string.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(normalizeNumber(n.String()))
	return nil
}

// normalizeNumber returns integer literals unchanged and collapses exact
// integral forms such as 12.0 or 1.2e1 to "12". It never rounds, so distinct
// integers beyond float64 precision stay distinct.
func normalizeNumber(lit string) string {
	mant, exp, hasExp := strings.Cut(strings.ToLower(lit), "e")
	if !hasExp && !strings.Contains(mant, ".") {
		return lit
	}
	if hasExp {
		e, err := strconv.Atoi(exp)
		if err != nil || e > maxIDExponent || e < -maxIDExponent {
			return lit
		}
	}
	r, ok := new(big.Rat).SetString(lit)
	if !ok || !r.IsInt() {
		return lit
	}
	return r.Num().String()
}

// String returns the id as a plain string.
func (id ID) String() string { return string(id) }

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return id == "" }
