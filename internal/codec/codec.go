// Package codec encodes content item payloads to the stored byte form and
// back. The encoding is JSON with numbers kept as their literal text, so any
// payload accepted at write time decodes to an equal value and re-encodes to
// the same bytes.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Codec converts payloads to and from their stored encoding.
type Codec interface {
	Name() string
	Encode(data map[string]any) ([]byte, error)
	Decode(raw []byte) (map[string]any, error)
}

// JSON is the default codec.
type JSON struct{}

var _ Codec = JSON{}

// Name returns "json".
func (JSON) Name() string { return "json" }

// Encode marshals data with sorted keys and without HTML escaping. A nil map
// encodes as an empty object.
func (JSON) Encode(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode unmarshals raw into a map. Numbers decode as json.Number. Empty
// input and a JSON null decode to an empty map.
func (JSON) Decode(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// NewDecoder returns a JSON decoder that keeps numbers as json.Number.
// Request bodies carrying payloads must be read with it.
func NewDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Canonical returns data as it will be read back after a store round trip.
func Canonical(c Codec, data map[string]any) (map[string]any, []byte, error) {
	raw, err := c.Encode(data)
	if err != nil {
		return nil, nil, err
	}
	out, err := c.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return out, raw, nil
}
