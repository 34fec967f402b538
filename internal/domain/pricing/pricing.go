package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidValue is returned when package value is <= 0
	ErrInvalidValue = errors.New("invalid package value: must be greater than 0")

	// ErrInvalidBands is returned for a malformed band configuration
	ErrInvalidBands = errors.New("invalid pricing bands")
)

// Band maps a package value range to a credit cost. Lower is inclusive,
// Upper exclusive. Upper == 0 marks the unbounded last band.
type Band struct {
	Lower int64
	Upper int64
	Cost  int64
}

// Table is an ordered, contiguous set of bands starting at 0
type Table struct {
	bands []Band
}

// NewTable validates the bands and builds a pricing table.
// Bands must be sorted, contiguous from 0, and end in an unbounded band.
func NewTable(bands []Band) (*Table, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBands)
	}
	if bands[0].Lower != 0 {
		return nil, fmt.Errorf("%w: first band must start at 0", ErrInvalidBands)
	}

	for i, b := range bands {
		if b.Cost <= 0 {
			return nil, fmt.Errorf("%w: band %d has non-positive cost", ErrInvalidBands, i)
		}
		last := i == len(bands)-1
		if last {
			if b.Upper != 0 {
				return nil, fmt.Errorf("%w: last band must be unbounded", ErrInvalidBands)
			}
			continue
		}
		if b.Upper <= b.Lower {
			return nil, fmt.Errorf("%w: band %d has empty range", ErrInvalidBands, i)
		}
		if bands[i+1].Lower != b.Upper {
			return nil, fmt.Errorf("%w: band %d is not contiguous with band %d", ErrInvalidBands, i, i+1)
		}
	}

	out := make([]Band, len(bands))
	copy(out, bands)
	return &Table{bands: out}, nil
}

// DefaultTable returns the platform's standard lead pricing
func DefaultTable() *Table {
	t, err := NewTable([]Band{
		{Lower: 0, Upper: 5000, Cost: 100},
		{Lower: 5000, Upper: 10000, Cost: 180},
		{Lower: 10000, Upper: 20000, Cost: 250},
		{Lower: 20000, Upper: 50000, Cost: 320},
		{Lower: 50000, Upper: 100000, Cost: 400},
		{Lower: 100000, Upper: 0, Cost: 500},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// PriceFor returns the credit cost of a lead given the procedure package
// value. A value exactly on a boundary belongs to the band whose lower
// bound equals it.
func (t *Table) PriceFor(packageValue int64) (int64, error) {
	if packageValue <= 0 {
		return 0, ErrInvalidValue
	}

	for i, b := range t.bands {
		last := i == len(t.bands)-1
		if packageValue >= b.Lower && (last || packageValue < b.Upper) {
			return b.Cost, nil
		}
	}

	// Unreachable with a validated table
	return 0, ErrInvalidValue
}

// Bands returns a copy of the table's bands
func (t *Table) Bands() []Band {
	out := make([]Band, len(t.bands))
	copy(out, t.bands)
	return out
}

// ParseBands parses a band configuration string like
// "0-5000:100,5000-10000:180,10000-inf:500" into a validated table.
// An empty string yields the default table.
func ParseBands(s string) (*Table, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTable(), nil
	}

	var bands []Band
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		rangeCost := strings.SplitN(part, ":", 2)
		if len(rangeCost) != 2 {
			return nil, fmt.Errorf("%w: missing cost in %q", ErrInvalidBands, part)
		}
		bounds := strings.SplitN(rangeCost[0], "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: missing range in %q", ErrInvalidBands, part)
		}

		lower, err := strconv.ParseInt(strings.TrimSpace(bounds[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad lower bound in %q", ErrInvalidBands, part)
		}

		var upper int64
		if rawUpper := strings.TrimSpace(bounds[1]); !strings.EqualFold(rawUpper, "inf") {
			upper, err = strconv.ParseInt(rawUpper, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad upper bound in %q", ErrInvalidBands, part)
			}
		}

		cost, err := strconv.ParseInt(strings.TrimSpace(rangeCost[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad cost in %q", ErrInvalidBands, part)
		}

		bands = append(bands, Band{Lower: lower, Upper: upper, Cost: cost})
	}

	return NewTable(bands)
}
