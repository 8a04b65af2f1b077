package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a JSON object that remembers the order its keys arrived in.
type OrderedMap[V any] struct {
	keys  []string
	items map[string]V
}

// NewOrderedMap builds an OrderedMap from parallel key and value slices.
func NewOrderedMap[V any](keys []string, values []V) OrderedMap[V] {
	m := OrderedMap[V]{items: make(map[string]V, len(keys))}
	for i, k := range keys {
		if i >= len(values) {
			break
		}
		m.Set(k, values[i])
	}
	return m
}

// Set stores v under key, appending the key if it is new.
func (m *OrderedMap[V]) Set(key string, v V) {
	if m.items == nil {
		m.items = make(map[string]V)
	}
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
}

// Get returns the value stored under key.
func (m OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Keys returns the keys in arrival order. The returned slice must not be modified.
func (m OrderedMap[V]) Keys() []string {
	return m.keys
}

// First returns the first key, if any.
func (m OrderedMap[V]) First() (string, bool) {
	if len(m.keys) == 0 {
		return "", false
	}
	return m.keys[0], true
}

// Len returns the number of entries.
func (m OrderedMap[V]) Len() int {
	return len(m.keys)
}

// UnmarshalJSON decodes a JSON object, keeping key order. null decodes to an empty map.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.items = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	items := make(map[string]V, len(keys))
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	// duplicate keys collapse to the last value, keep the first position
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		m.keys = append(m.keys, k)
	}
	m.items = items
	return nil
}

// MarshalJSON encodes the entries in arrival order.
func (m OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.items[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// objectKeys lists the top-level keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
