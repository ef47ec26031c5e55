package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Flex is a scalar that upstream sources emit either as a number or as a
// formatted string ("$450,000", "1 + 1"). The zero value is absent.
type Flex struct {
	text    string
	numeric bool
	valid   bool
}

// FlexString wraps a textual value.
func FlexString(s string) Flex {
	return Flex{text: s, valid: true}
}

// FlexInt wraps a numeric value.
func FlexInt(n int64) Flex {
	return Flex{text: strconv.FormatInt(n, 10), numeric: true, valid: true}
}

// FlexFloat wraps a fractional numeric value.
func FlexFloat(f float64) Flex {
	return Flex{text: strconv.FormatFloat(f, 'f', -1, 64), numeric: true, valid: true}
}

// Valid reports whether a value is present.
func (f Flex) Valid() bool { return f.valid }

// IsNumber reports whether the value arrived as a number rather than text.
func (f Flex) IsNumber() bool { return f.valid && f.numeric }

// String returns the raw text of the value, "" when absent.
func (f Flex) String() string { return f.text }

func (f Flex) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	if f.numeric {
		return []byte(f.text), nil
	}
	return json.Marshal(f.text)
}

func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = Flex{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex: expected string or number, got %s", b)
	}
	*f = Flex{text: n.String(), numeric: true, valid: true}
	return nil
}
