package models

import (
	"bytes"
	"encoding/json"
	"math"
)

// Estimate is a float that may be unavailable (indicator warm-up, failed model).
type Estimate struct {
	Value float64
	Valid bool
}

// Some wraps a value. NaN and Inf are stored as unavailable.
func Some(v float64) Estimate {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Estimate{}
	}
	return Estimate{Value: v, Valid: true}
}

// None is the unavailable estimate.
func None() Estimate { return Estimate{} }

// Or returns the value or def when unavailable.
func (e Estimate) Or(def float64) float64 {
	if !e.Valid {
		return def
	}
	return e.Value
}

// Ptr returns nil for unavailable estimates. Used for nullable export columns.
func (e Estimate) Ptr() *float64 {
	if !e.Valid {
		return nil
	}
	v := e.Value
	return &v
}

func (e Estimate) MarshalJSON() ([]byte, error) {
	if !e.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(e.Value)
}

func (e *Estimate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*e = Estimate{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*e = Some(v)
	return nil
}
