package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// nonFinite are the bare tokens Python's json module emits for float
// values JSON cannot represent
var nonFinite = [][]byte{
	[]byte("-Infinity"),
	[]byte("Infinity"),
	[]byte("NaN"),
}

// sanitize replaces bare NaN and Infinity tokens outside of strings with null.
func sanitize(data []byte) []byte {
	if !bytes.Contains(data, []byte("NaN")) && !bytes.Contains(data, []byte("Infinity")) {
		return data
	}

	out := make([]byte, 0, len(data))
	inString := false
	escaped := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}

		replaced := false
		for _, tok := range nonFinite {
			if bytes.HasPrefix(data[i:], tok) {
				out = append(out, "null"...)
				i += len(tok) - 1
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c)
		}
	}
	return out
}

// unwrap returns the JSON document carried by value. Some functions of the
// trading process return their payload already serialized, so a JSON string
// value is decoded once more.
func unwrap(value json.RawMessage) []byte {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || value[0] != '"' {
		return value
	}
	var inner string
	if err := json.Unmarshal(value, &inner); err != nil {
		return value
	}
	return sanitize([]byte(inner))
}

// decodeObject decodes a JSON object payload into v.
func decodeObject(name string, value json.RawMessage, v any) error {
	data := unwrap(value)
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("%w: %s: expected an object", ErrMalformed, name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return nil
}

// checkKoiState verifies the fields every state snapshot must carry. The
// trading process answers {} when it fails to assemble its state.
func checkKoiState(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: fetch_state: %v", ErrMalformed, err)
	}

	for _, key := range []string{"ib_connected", "market_ticks_streaming", "crypto_ticks_streaming"} {
		raw, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: fetch_state: missing %s", ErrMalformed, key)
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("%w: fetch_state: %s is not a boolean", ErrMalformed, key)
		}
	}

	raw, ok := fields["strategies"]
	if !ok {
		return fmt.Errorf("%w: fetch_state: missing strategies", ErrMalformed)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return fmt.Errorf("%w: fetch_state: strategies is not an array", ErrMalformed)
	}
	return nil
}
