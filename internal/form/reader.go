package form

import (
	"math"
	"strconv"
	"strings"

	"bucks2bar/internal/core"
)

// ReadInputs parses every income and expense field. Missing, empty,
// non-numeric and non-finite values read as 0. Each existing field is
// flagged invalid when its value is negative and unflagged otherwise;
// negative values are still returned.
func ReadInputs(fields Fields) core.MonthlySeries {
	var out core.MonthlySeries
	for m := 1; m <= core.MonthCount; m++ {
		out.Incomes[m-1] = readField(fields, core.FieldID(core.Income, m))
		out.Expenses[m-1] = readField(fields, core.FieldID(core.Expense, m))
	}
	return out
}

func readField(fields Fields, id string) float64 {
	f, ok := fields.Field(id)
	if !ok {
		return 0
	}
	v := ParseNumber(f.Value())
	f.SetInvalid(v < 0)
	return v
}

// ParseNumber converts field text to a finite float. Like a browser's
// parseFloat it accepts the longest numeric prefix ("12abc" is 12) and
// returns 0 when there is none.
func ParseNumber(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		v, err = strconv.ParseFloat(numericPrefix(text), 64)
		if err != nil {
			return 0
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// numericPrefix returns the leading [+-]digits[.digits][e[+-]digits] run.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return s[:i]
}

// Populate writes snapshot values into the existing fields. Values past the
// twelfth month are ignored; months the snapshot lacks or holds as null
// (NaN) are left untouched.
func Populate(fields Fields, snap core.Snapshot) {
	for m := 1; m <= core.MonthCount; m++ {
		if m <= len(snap.Incomes) {
			setField(fields, core.FieldID(core.Income, m), snap.Incomes[m-1])
		}
		if m <= len(snap.Expenses) {
			setField(fields, core.FieldID(core.Expense, m), snap.Expenses[m-1])
		}
	}
}

// Fill writes a full series into the existing fields.
func Fill(fields Fields, s core.MonthlySeries) {
	for m := 1; m <= core.MonthCount; m++ {
		setField(fields, core.FieldID(core.Income, m), s.Incomes[m-1])
		setField(fields, core.FieldID(core.Expense, m), s.Expenses[m-1])
	}
}

// Clear empties every existing field and removes its invalid flag.
func Clear(fields Fields) {
	for _, id := range core.FieldIDs() {
		if f, ok := fields.Field(id); ok {
			f.SetValue("")
			f.SetInvalid(false)
		}
	}
}

func setField(fields Fields, id string, v float64) {
	if math.IsNaN(v) {
		return
	}
	if f, ok := fields.Field(id); ok {
		f.SetValue(FormatNumber(v))
	}
}

// FormatNumber renders a value the way a number input shows it: no
// trailing zeros, no exponent for ordinary amounts.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
