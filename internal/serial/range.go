// Package serial parses serial number tokens and expands serial ranges.
package serial

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrFormat is returned when a token is not <letters><digits> or when the
// two ends of a range carry different prefixes.
var ErrFormat = errors.New("invalid serial format")

// ErrRange is returned when the start of a range is above its end, or when
// the range is longer than the allowed maximum.
var ErrRange = errors.New("invalid serial range")

// MaxRangeLength is the most serials a single range may expand to,
// whatever limit the caller asks for.
const MaxRangeLength = 1_000_000

var tokenPattern = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// Token is a parsed serial number.
type Token struct {
	Prefix string
	Value  uint64
	Width  int
}

// String renders the token with its value padded to Width digits.
func (t Token) String() string {
	return format(t.Prefix, t.Value, t.Width)
}

// Parse splits a serial such as "SN007" into prefix "SN", value 7, width 3.
func Parse(s string) (Token, error) {
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil {
		return Token{}, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	v, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %q: %v", ErrFormat, s, err)
	}
	return Token{Prefix: m[1], Value: v, Width: len(m[2])}, nil
}

// ExpandRange returns every serial from start to end inclusive. The numeric
// part is padded to the width of start; wider values are kept as-is.
func ExpandRange(start, end string) ([]string, error) {
	return ExpandRangeMax(start, end, 0)
}

// ExpandRangeMax is ExpandRange with an upper bound on the number of serials
// produced. max <= 0, or a max above MaxRangeLength, means MaxRangeLength.
func ExpandRangeMax(start, end string, max int) ([]string, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, err
	}
	to, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if from.Prefix != to.Prefix {
		return nil, fmt.Errorf("%w: prefixes %q and %q differ", ErrFormat, from.Prefix, to.Prefix)
	}
	if from.Value > to.Value {
		return nil, fmt.Errorf("%w: start %d is greater than end %d", ErrRange, from.Value, to.Value)
	}

	limit := uint64(MaxRangeLength)
	if max > 0 && uint64(max) < limit {
		limit = uint64(max)
	}
	// Compare the span before adding one; end-start+1 wraps for a full uint64 range.
	if span := to.Value - from.Value; span >= limit {
		return nil, fmt.Errorf("%w: %s..%s exceeds the limit of %d serials", ErrRange, start, end, limit)
	}

	out := make([]string, 0, to.Value-from.Value+1)
	for v := from.Value; ; v++ {
		out = append(out, format(from.Prefix, v, from.Width))
		if v == to.Value {
			break
		}
	}
	return out, nil
}

func format(prefix string, v uint64, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, v)
}
