package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
)

// Field is one value of an API record, kept as the JSON the API sent so that
// an unexpected type never fails decoding. An absent field and JSON null are
// both null.
type Field struct {
	raw json.RawMessage
}

// StringField returns a Field holding the JSON string s.
func StringField(s string) Field {
	b, _ := json.Marshal(s)
	return Field{raw: b}
}

// IntField returns a Field holding the JSON number n.
func IntField(n int64) Field {
	return Field{raw: json.RawMessage(strconv.FormatInt(n, 10))}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field) UnmarshalJSON(b []byte) error {
	f.raw = append(f.raw[:0], b...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.IsNull() {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// IsNull reports whether the field was absent or null.
func (f Field) IsNull() bool {
	return len(f.raw) == 0 || bytes.Equal(bytes.TrimSpace(f.raw), []byte("null"))
}

// String renders the field as a CSV cell: empty for null, the text of a
// string, and the compact JSON of anything else.
func (f Field) String() string {
	if f.IsNull() {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, f.raw); err != nil {
		return string(f.raw)
	}
	return compact.String()
}

// Int64 returns the field as an integer when it is a JSON number with no
// fractional part. Strings are not converted.
func (f Field) Int64() (int64, bool) {
	n, ok := f.number()
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	fl, err := n.Float64()
	if err != nil || fl != math.Trunc(fl) || math.Abs(fl) > math.MaxInt64 {
		return 0, false
	}
	return int64(fl), true
}

// Value implements driver.Valuer: NULL for null, an integer or float for
// numbers, and text for everything else.
func (f Field) Value() (driver.Value, error) {
	if f.IsNull() {
		return nil, nil
	}
	if i, ok := f.Int64(); ok {
		return i, nil
	}
	if n, ok := f.number(); ok {
		if fl, err := n.Float64(); err == nil {
			return fl, nil
		}
	}
	return f.String(), nil
}

// number returns the field when it is a JSON number literal. json.Number
// alone would also accept a quoted numeric string.
func (f Field) number() (json.Number, bool) {
	b := bytes.TrimSpace(f.raw)
	if len(b) == 0 || (b[0] != '-' && (b[0] < '0' || b[0] > '9')) {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", false
	}
	return n, true
}
