package node

import "strconv"

// TriBool carries {undef, false, true} so that a switch can distinguish
// "absent" from "false" wherever a node or setting inherits from a default.
// Ported from subconverter's tribool.h (utils/tribool.h).
type TriBool struct {
	value int8 // 0 = undef, 1 = false, 2 = true
}

const (
	triUndef = int8(iota)
	triFalse
	triTrue
)

// TriUndef is the zero value of TriBool.
var TriUndef = TriBool{triUndef}

func TriFrom(b bool) TriBool {
	if b {
		return TriBool{triTrue}
	}
	return TriBool{triFalse}
}

// SetBool assigns a definite value.
func (t *TriBool) SetBool(b bool) { *t = TriFrom(b) }

// Set parses "true"/"false"/"1"/"0" (and their common aliases);
// an unparsable string leaves the tribool untouched.
func (t *TriBool) Set(s string) {
	switch s {
	case "true", "1", "yes", "on":
		t.value = triTrue
	case "false", "0", "no", "off":
		t.value = triFalse
	default:
		if b, err := strconv.ParseBool(s); err == nil {
			t.SetBool(b)
		}
	}
}

// IsUndef reports whether the value is unset.
func (t TriBool) IsUndef() bool { return t.value == triUndef }

// Get resolves the tribool against a default, used when a node value must
// finally collapse into a concrete bool for emission.
func (t TriBool) Get(def bool) bool {
	switch t.value {
	case triTrue:
		return true
	case triFalse:
		return false
	default:
		return def
	}
}

// Define adopts other's value only if the receiver is still undefined --
// "node value wins over global default, both override undef" (spec §4.9).
func (t *TriBool) Define(other TriBool) TriBool {
	if t.IsUndef() {
		*t = other
	}
	return *t
}

// Reverse flips a definite value; undef stays undef.
func (t TriBool) Reverse() TriBool {
	switch t.value {
	case triTrue:
		return TriBool{triFalse}
	case triFalse:
		return TriBool{triTrue}
	default:
		return t
	}
}

func (t TriBool) String() string {
	switch t.value {
	case triTrue:
		return "true"
	case triFalse:
		return "false"
	default:
		return "undef"
	}
}
