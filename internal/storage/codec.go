// Package storage implements the backend stores and the manager that
// coordinates writes, reads and eviction across them.
package storage

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// taggedValue is the on-disk representation of a cached value in the flat
// store, which can only hold strings. Text payloads are stored verbatim,
// arbitrary bytes as an integer array. The isBinary tag makes the two cases
// unambiguous even when a text payload happens to look like the binary form.
type taggedValue struct {
	IsBinary bool   `json:"isBinary"`
	Text     string `json:"text"`
	Data     []int  `json:"data,omitempty"`
}

// encodeValue converts a raw value into its string-safe tagged form.
func encodeValue(value []byte) (string, error) {
	var tv taggedValue
	if utf8.Valid(value) {
		tv.Text = string(value)
	} else {
		tv.IsBinary = true
		tv.Data = make([]int, len(value))
		for i, b := range value {
			tv.Data[i] = int(b)
		}
	}

	out, err := json.Marshal(tv)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(out), nil
}

// decodeValue reverses encodeValue. It returns the exact byte sequence that
// was originally encoded.
func decodeValue(encoded string) ([]byte, error) {
	var tv taggedValue
	if err := json.Unmarshal([]byte(encoded), &tv); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	if !tv.IsBinary {
		return []byte(tv.Text), nil
	}

	value := make([]byte, len(tv.Data))
	for i, n := range tv.Data {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("failed to decode value: byte %d out of range at index %d", n, i)
		}
		value[i] = byte(n)
	}
	return value, nil
}
