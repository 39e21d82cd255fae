package table

import (
	"math"
	"strconv"
)

// Kind classifies a cell value.
type Kind int

const (
	// KindEmpty is a missing or blank cell.
	KindEmpty Kind = iota
	// KindNumber is a numeric cell.
	KindNumber
	// KindText is a textual cell.
	KindText
)

// Value is a single cell value: empty, a number, or text.
//
// Raw holds the cell's original text exactly as it appeared in the file.
// It is what gets written back, so cells the reconciler never touched
// keep their representation: leading-zero codes ("0123"), trailing-zero
// decimals ("5.0"), and digit strings too long for a float64 all survive
// a rewrite byte for byte. The Num/Str interpretation is used only for
// comparison.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Raw  string
}

// Empty returns the empty cell value.
func Empty() Value {
	return Value{Kind: KindEmpty}
}

// Number returns a numeric cell value.
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n, Raw: strconv.FormatFloat(n, 'f', -1, 64)}
}

// Text returns a textual cell value.
func Text(s string) Value {
	return Value{Kind: KindText, Str: s, Raw: s}
}

// Parse converts a raw cell string into a Value. Blank cells become empty,
// strings that parse as a float become numbers, everything else is text.
// The original text is retained for write-back.
func Parse(raw string) Value {
	if raw == "" {
		return Empty()
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return Value{Kind: KindNumber, Num: n, Raw: raw}
	}
	return Value{Kind: KindText, Str: raw, Raw: raw}
}

// IsEmpty reports whether the value is a missing/blank cell.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// String renders the value for writing back to a file: the original cell
// text when there is one, otherwise the shortest representation that
// round-trips ("5", not "5.000000").
func (v Value) String() string {
	if v.Raw != "" {
		return v.Raw
	}
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	default:
		return ""
	}
}

// cell returns the value in the form written to an xlsx cell. Numbers go
// out as numbers unless that would change their original text, as with
// leading-zero codes or non-finite values.
func (v Value) cell() interface{} {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return v.String()
		}
		if v.Raw != "" && v.Raw != strconv.FormatFloat(v.Num, 'f', -1, 64) {
			return v.Raw
		}
		return v.Num
	case KindText:
		return v.String()
	default:
		return nil
	}
}

// key returns the canonical matching form of the value, collapsing
// numeric representations so "5", "5.0", and 5 identify the same row.
func (v Value) key() string {
	if n, ok := v.numeric(); ok && !math.IsNaN(n) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return v.String()
}

// numeric returns the value interpreted as a number, if possible. Text
// like "5.0" counts so that semantically equal cells compare equal even
// when the two files encode them differently.
func (v Value) numeric() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindText:
		n, err := strconv.ParseFloat(v.Str, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Equal reports whether two values are semantically equal.
//
// Two empty cells are equal. A number and a text cell that parses to the
// same number are equal ("5" == 5 == "5.0"), and two NaN cells are equal
// so a NaN never reads as a fresh change. An empty cell never equals a
// present one, so a missing-to-present transition counts as a change.
func (v Value) Equal(other Value) bool {
	if v.IsEmpty() || other.IsEmpty() {
		return v.IsEmpty() && other.IsEmpty()
	}

	if a, ok := v.numeric(); ok {
		if b, ok := other.numeric(); ok {
			if math.IsNaN(a) && math.IsNaN(b) {
				return true
			}
			return a == b
		}
		return false
	}
	if _, ok := other.numeric(); ok {
		return false
	}

	return v.Str == other.Str
}
