package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// MonthCount is the fixed length of every series.
const MonthCount = 12

// StorageKey is the default slot name for the persisted snapshot.
const StorageKey = "bucks2bar.data"

const (
	Income  Role = "income"
	Expense Role = "expense"
)

// Months holds the chart labels, index 0 is January.
var Months = [MonthCount]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type (
	// Role distinguishes the two fields of a month.
	Role string

	// MonthlySeries is the twelve-month income/expense state read from the form.
	MonthlySeries struct {
		Incomes  [MonthCount]float64
		Expenses [MonthCount]float64
	}

	// Snapshot is the persisted form of a MonthlySeries. A NaN entry stands
	// for a stored null.
	Snapshot struct {
		Incomes   []float64 `json:"incomes"`
		Expenses  []float64 `json:"expenses"`
		UpdatedAt int64     `json:"updatedAt"`
	}
)

var ErrInvalidMonth = errors.New("invalid month")

// FieldID returns the form field id for a role and a 1-based month, e.g. "income-01".
func FieldID(role Role, month int) string {
	return fmt.Sprintf("%s-%02d", role, month)
}

// FieldIDs returns all 24 field ids, incomes first.
func FieldIDs() []string {
	ids := make([]string, 0, 2*MonthCount)
	for _, role := range []Role{Income, Expense} {
		for m := 1; m <= MonthCount; m++ {
			ids = append(ids, FieldID(role, m))
		}
	}
	return ids
}

// ParseFieldID splits "expense-07" into its role and 1-based month.
func ParseFieldID(id string) (Role, int, error) {
	for _, role := range []Role{Income, Expense} {
		prefix := string(role) + "-"
		if len(id) != len(prefix)+2 || id[:len(prefix)] != prefix {
			continue
		}
		month, err := strconv.Atoi(id[len(prefix):])
		if err != nil || month < 1 || month > MonthCount {
			return "", 0, fmt.Errorf("parse field id %q: %w", id, ErrInvalidMonth)
		}
		return role, month, nil
	}
	return "", 0, fmt.Errorf("unknown field id %q", id)
}

// Snapshot converts the series to its persisted shape stamped with at.
func (s MonthlySeries) Snapshot(at time.Time) Snapshot {
	return Snapshot{
		Incomes:   append([]float64(nil), s.Incomes[:]...),
		Expenses:  append([]float64(nil), s.Expenses[:]...),
		UpdatedAt: at.UnixMilli(),
	}
}

// Totals returns the yearly income and expense sums.
func (s MonthlySeries) Totals() (income, expense float64) {
	for i := 0; i < MonthCount; i++ {
		income += s.Incomes[i]
		expense += s.Expenses[i]
	}
	return income, expense
}

// IsZero reports whether every value of both series is zero.
func (s MonthlySeries) IsZero() bool {
	return s == MonthlySeries{}
}

// Series converts a snapshot back to fixed-size series; extra values are
// dropped and missing or null ones are zero.
func (s Snapshot) Series() MonthlySeries {
	var out MonthlySeries
	copy(out.Incomes[:], s.Incomes)
	copy(out.Expenses[:], s.Expenses)
	for i := range MonthCount {
		out.Incomes[i] = orZero(out.Incomes[i])
		out.Expenses[i] = orZero(out.Expenses[i])
	}
	return out
}

// MarshalJSON writes null entries (NaN) back as null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Incomes   []*float64 `json:"incomes"`
		Expenses  []*float64 `json:"expenses"`
		UpdatedAt int64      `json:"updatedAt"`
	}{nullable(s.Incomes), nullable(s.Expenses), s.UpdatedAt})
}

func nullable(v []float64) []*float64 {
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) {
			out[i] = &v[i]
		}
	}
	return out
}

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Updated returns UpdatedAt as a time.
func (s Snapshot) Updated() time.Time {
	return time.UnixMilli(s.UpdatedAt)
}

// ExportFilename names a downloaded chart after the UTC day it was taken,
// e.g. "bucks2bar-2024-03-09.png".
func ExportFilename(at time.Time) string {
	return "bucks2bar-" + at.UTC().Format("2006-01-02") + ".png"
}
