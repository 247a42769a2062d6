package core

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestFieldID(t *testing.T) {
	if got := FieldID(Income, 1); got != "income-01" {
		t.Fatalf("FieldID(income, 1) = %q", got)
	}
	if got := FieldID(Expense, 12); got != "expense-12" {
		t.Fatalf("FieldID(expense, 12) = %q", got)
	}
	ids := FieldIDs()
	if len(ids) != 24 || ids[0] != "income-01" || ids[23] != "expense-12" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestParseFieldID(t *testing.T) {
	cases := []struct {
		in    string
		role  Role
		month int
		ok    bool
	}{
		{"income-01", Income, 1, true},
		{"expense-12", Expense, 12, true},
		{"income-13", "", 0, false},
		{"income-00", "", 0, false},
		{"income-1a", "", 0, false},
		{"income-1", "", 0, false},
		{"savings-01", "", 0, false},
		{"", "", 0, false},
	}
	for _, tc := range cases {
		role, month, err := ParseFieldID(tc.in)
		if tc.ok {
			if err != nil || role != tc.role || month != tc.month {
				t.Fatalf("%q expected %s/%d, got %s/%d (err=%v)", tc.in, tc.role, tc.month, role, month, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	var s MonthlySeries
	s.Incomes[0] = 1000
	s.Expenses[11] = 25.5
	at := time.UnixMilli(1700000000123)

	snap := s.Snapshot(at)
	if len(snap.Incomes) != MonthCount || len(snap.Expenses) != MonthCount {
		t.Fatalf("snapshot lengths %d/%d", len(snap.Incomes), len(snap.Expenses))
	}
	if snap.UpdatedAt != 1700000000123 || !snap.Updated().Equal(at) {
		t.Fatalf("unexpected timestamp %d", snap.UpdatedAt)
	}
	if back := snap.Series(); back != s {
		t.Fatalf("series mismatch: %+v", back)
	}
}

func TestSnapshotSeriesToleratesShortAndLongSlices(t *testing.T) {
	snap := Snapshot{Incomes: []float64{1, 2}, Expenses: make([]float64, 20)}
	snap.Expenses[11] = 7
	snap.Expenses[15] = 9
	s := snap.Series()
	if s.Incomes[1] != 2 || s.Incomes[2] != 0 || s.Expenses[11] != 7 {
		t.Fatalf("unexpected series %+v", s)
	}
}

func TestTotalsAndIsZero(t *testing.T) {
	var s MonthlySeries
	if !s.IsZero() {
		t.Fatalf("zero series should report IsZero")
	}
	s.Incomes[0], s.Incomes[5] = 100, 50
	s.Expenses[3] = 30
	in, out := s.Totals()
	if in != 150 || out != 30 {
		t.Fatalf("totals = %v/%v", in, out)
	}
	if s.IsZero() {
		t.Fatalf("non-zero series reported IsZero")
	}
}

func TestExportFilenameUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	at := time.Date(2024, 3, 10, 2, 0, 0, 0, loc)
	if got := ExportFilename(at); got != "bucks2bar-2024-03-09.png" {
		t.Fatalf("ExportFilename = %q", got)
	}
}

func TestSnapshotNullEntries(t *testing.T) {
	snap := Snapshot{Incomes: []float64{math.NaN(), 3}, Expenses: nil}
	if s := snap.Series(); s.Incomes[0] != 0 || s.Incomes[1] != 3 {
		t.Fatalf("unexpected series %+v", s)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(data), `{"incomes":[null,3],"expenses":[],"updatedAt":0}`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
