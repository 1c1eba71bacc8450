package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"strconv"
	"strings"
)

// Payload is an untyped profile/session object. Shapes vary by backend
// endpoint, so fields are read through fallback chains rather than a schema.
type Payload map[string]any

// Clone returns a shallow copy.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// String returns the first non-empty scalar found under keys, rendered as
// a string. Objects and arrays are skipped.
func (p Payload) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(p[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

// Object returns the nested object under key, or nil.
func (p Payload) Object(key string) Payload {
	switch v := p[key].(type) {
	case map[string]any:
		return Payload(v)
	case Payload:
		return v
	default:
		return nil
	}
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// DecodePayload parses a JSON object. Numbers are kept as json.Number so
// identifiers like patient ids survive a round trip unchanged.
func DecodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("payload is null")
	}
	if dec.More() {
		return nil, errors.New("trailing data after payload")
	}
	return p, nil
}

func encodePayload(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
