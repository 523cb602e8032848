package constraint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hlop3z/ercat/internal/types"
)

// unbounded is the persisted sentinel for a missing interval side.
const unbounded = "None"

// Interval bounds a numeric value: Min <= v <= Max, either side optional.
type Interval struct {
	Min *float64
	Max *float64
}

// NewInterval returns an interval constraint; both bounds absent is an error.
func NewInterval(min, max *float64) (*Interval, error) {
	i := &Interval{Min: min, Max: max}
	if err := i.validate(); err != nil {
		return nil, err
	}
	return i, nil
}

// Between returns an interval with both bounds.
func Between(min, max float64) *Interval {
	return &Interval{Min: &min, Max: &max}
}

// AtLeast returns an interval with only a lower bound.
func AtLeast(min float64) *Interval {
	return &Interval{Min: &min}
}

// AtMost returns an interval with only an upper bound.
func AtMost(max float64) *Interval {
	return &Interval{Max: &max}
}

func (i *Interval) validate() error {
	if i.Min == nil && i.Max == nil {
		return invalid(KindInterval, i.Serialize(), "min or max is required")
	}
	if i.Min != nil && i.Max != nil && *i.Min > *i.Max {
		return invalid(KindInterval, i.Serialize(), "min is greater than max")
	}
	return nil
}

func (i *Interval) Kind() Kind { return KindInterval }

// Check fails for non-numeric values and values outside the bounds.
func (i *Interval) Check(v any) bool {
	f, ok := types.ToFloat(v)
	if !ok {
		return false
	}
	if i.Min != nil && f < *i.Min {
		return false
	}
	if i.Max != nil && f > *i.Max {
		return false
	}
	return true
}

// Serialize renders "<min>;<max>" with None for an unbounded side.
func (i *Interval) Serialize() string {
	return formatBound(i.Min) + ";" + formatBound(i.Max)
}

func (i *Interval) String() string {
	return fmt.Sprintf("value [%s]", i.Serialize())
}

// ParseInterval is the inverse of (*Interval).Serialize.
func ParseInterval(text string) (*Interval, error) {
	lo, hi, ok := strings.Cut(text, ";")
	if !ok {
		return nil, invalid(KindInterval, text, "expected <min>;<max>")
	}
	min, err := parseBound(lo)
	if err != nil {
		return nil, invalid(KindInterval, text, err.Error())
	}
	max, err := parseBound(hi)
	if err != nil {
		return nil, invalid(KindInterval, text, err.Error())
	}
	i := &Interval{Min: min, Max: max}
	if err := i.validate(); err != nil {
		return nil, err
	}
	return i, nil
}

func formatBound(b *float64) string {
	if b == nil {
		return unbounded
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}

func parseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == unbounded {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("bound %q is not a number", s)
	}
	return &f, nil
}
