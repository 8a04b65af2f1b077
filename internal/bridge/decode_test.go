package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"untouched", `{"a":1.5}`, `{"a":1.5}`},
		{"nan", `{"a":NaN}`, `{"a":null}`},
		{"infinities", `[Infinity,-Infinity,1]`, `[null,null,1]`},
		{"inside strings", `{"reason":"NaN Infinity"}`, `{"reason":"NaN Infinity"}`},
		{"escaped quote", `{"s":"a\"NaN","v":NaN}`, `{"s":"a\"NaN","v":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(sanitize([]byte(tt.in))))
		})
	}
}

func TestUnwrapSerializedPayload(t *testing.T) {
	raw := json.RawMessage(`"{\"ib_connected\": true, \"x\": NaN}"`)
	assert.Equal(t, `{"ib_connected": true, "x": null}`, string(unwrap(raw)))

	obj := json.RawMessage(` {"a":1}`)
	assert.Equal(t, `{"a":1}`, string(unwrap(obj)))
}

func TestDecodeObject(t *testing.T) {
	var out map[string]int
	require.NoError(t, decodeObject("f", json.RawMessage(`{"a":1}`), &out))
	assert.Equal(t, 1, out["a"])

	for _, raw := range []string{`[]`, `null`, `3`, ``} {
		err := decodeObject("f", json.RawMessage(raw), &out)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestCheckKoiState(t *testing.T) {
	valid := `{"strategies":[],"ib_connected":false,"market_ticks_streaming":true,"crypto_ticks_streaming":false}`
	require.NoError(t, checkKoiState([]byte(valid)))

	invalid := map[string]string{
		"empty":              `{}`,
		"missing flag":       `{"strategies":[],"ib_connected":false,"market_ticks_streaming":true}`,
		"flag not boolean":   `{"strategies":[],"ib_connected":"yes","market_ticks_streaming":true,"crypto_ticks_streaming":false}`,
		"strategies object":  `{"strategies":{},"ib_connected":false,"market_ticks_streaming":true,"crypto_ticks_streaming":false}`,
		"strategies missing": `{"ib_connected":false,"market_ticks_streaming":true,"crypto_ticks_streaming":false}`,
		"not an object":      `[]`,
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, checkKoiState([]byte(body)), ErrMalformed)
		})
	}
}
