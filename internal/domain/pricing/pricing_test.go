package pricing

import (
	"errors"
	"testing"
)

func TestPriceFor_Boundaries(t *testing.T) {
	table := DefaultTable()

	cases := []struct {
		value int64
		cost  int64
	}{
		{1, 100},
		{4999, 100},
		{5000, 180},
		{9999, 180},
		{10000, 250},
		{19999, 250},
		{20000, 320},
		{49999, 320},
		{50000, 400},
		{99999, 400},
		{100000, 500},
		{5000000, 500},
	}

	for _, tc := range cases {
		cost, err := table.PriceFor(tc.value)
		if err != nil {
			t.Fatalf("PriceFor(%d): unexpected error: %v", tc.value, err)
		}
		if cost != tc.cost {
			t.Fatalf("PriceFor(%d): expected %d, got %d", tc.value, tc.cost, cost)
		}
	}
}

func TestPriceFor_InvalidValue(t *testing.T) {
	table := DefaultTable()

	for _, v := range []int64{0, -1, -5000} {
		if _, err := table.PriceFor(v); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("PriceFor(%d): expected ErrInvalidValue, got %v", v, err)
		}
	}
}

func TestNewTable_Validation(t *testing.T) {
	cases := []struct {
		name  string
		bands []Band
	}{
		{"empty", nil},
		{"not from zero", []Band{{Lower: 10, Upper: 0, Cost: 1}}},
		{"bounded last", []Band{{Lower: 0, Upper: 100, Cost: 1}}},
		{"gap", []Band{{Lower: 0, Upper: 100, Cost: 1}, {Lower: 200, Upper: 0, Cost: 2}}},
		{"overlap", []Band{{Lower: 0, Upper: 100, Cost: 1}, {Lower: 50, Upper: 0, Cost: 2}}},
		{"zero cost", []Band{{Lower: 0, Upper: 0, Cost: 0}}},
	}

	for _, tc := range cases {
		if _, err := NewTable(tc.bands); !errors.Is(err, ErrInvalidBands) {
			t.Fatalf("%s: expected ErrInvalidBands, got %v", tc.name, err)
		}
	}
}

func TestParseBands(t *testing.T) {
	table, err := ParseBands("0-1000:10,1000-inf:20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cost, err := table.PriceFor(999)
	if err != nil || cost != 10 {
		t.Fatalf("expected cost 10, got %d (%v)", cost, err)
	}
	cost, err = table.PriceFor(1000)
	if err != nil || cost != 20 {
		t.Fatalf("expected cost 20, got %d (%v)", cost, err)
	}
}

func TestParseBands_Empty(t *testing.T) {
	table, err := ParseBands("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cost, err := table.PriceFor(4999)
	if err != nil || cost != 100 {
		t.Fatalf("expected default table, got %d (%v)", cost, err)
	}
}

func TestParseBands_Malformed(t *testing.T) {
	for _, s := range []string{"nope", "0-100", "0:10", "a-b:c"} {
		if _, err := ParseBands(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}
