// Package record holds a raw catalog row: a mapping from column name to a
// primitive value as delivered by the archive (number, string, boolean or
// null).
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lexo-astro/lexo/pkg/measure"
)

// Record is one raw catalog row. A nil value means the column is present
// but null; a missing key means the column was not selected.
type Record map[string]any

// Has reports whether key holds a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Get returns the raw value for key, or nil.
func (r Record) Get(key string) any {
	return r[key]
}

// Keys returns the column names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float returns the value of key as float64.
func (r Record) Float(key string) (float64, bool) {
	return measure.Float(r[key])
}

// String returns the value of key rendered as a string. Empty strings count
// as absent.
func (r Record) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

// Bool interprets key as a flag. The archive encodes flags as 0/1.
func (r Record) Bool(key string) (bool, bool) {
	switch v := r[key].(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		f, ok := measure.Float(v)
		if !ok {
			return false, false
		}
		return f != 0, true
	}
}

func newDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Decode parses one JSON object into a record. Numbers are kept as
// json.Number so integer columns survive unchanged.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := newDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// Read decodes a JSON array of records from r.
func Read(r io.Reader) ([]Record, error) {
	var rows []Record
	if err := newDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return rows, nil
}
