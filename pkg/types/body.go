package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Body is a decoded message payload. Numbers are kept as json.Number so
// 128-bit amounts survive decoding.
type Body map[string]any

// UnmarshalJSON decodes objects with UseNumber; non-object payloads decode to nil
func (b *Body) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*b = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*b = Body(m)
	return nil
}

// Lookup walks nested objects by key. A missing key or a null value is absent.
func (b Body) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(b)
	for _, key := range path {
		var m map[string]any
		switch node := cur.(type) {
		case map[string]any:
			m = node
		case Body:
			m = node
		default:
			return nil, false
		}

		next, ok := m[key]
		if !ok || next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// String returns a scalar at path as a string. Empty strings count as absent.
func (b Body) String(path ...string) (string, bool) {
	v, ok := b.Lookup(path...)
	if !ok {
		return "", false
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case uint64:
		s = strconv.FormatUint(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", false
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}

// Decimal parses the scalar at path as a decimal amount
func (b Body) Decimal(path ...string) (decimal.Decimal, bool) {
	s, ok := b.String(path...)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
