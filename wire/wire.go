// Package wire encodes structured payloads for transports that only
// reliably carry a restricted character subset. Values are serialized as
// JSON and then percent-escaped down to the unreserved URI alphabet, so
// the result survives channels that mangle raw bytes. Decode is the exact
// inverse for every valid UTF-8 input and never panics: malformed data
// comes back as an error so callers can discard the message and move on.
package wire

import (
	"encoding/json"
	"fmt"
)

const hexDigits = "0123456789ABCDEF"

// safeByte reports whether b may travel unescaped. The set matches the
// unreserved characters of URI component encoding.
func safeByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// Encode serializes v as JSON and escapes it into the transport-safe subset.
func Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("wire: encode: %w", err)
	}

	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if safeByte(b) {
			out = append(out, b)
			continue
		}
		out = append(out, '%', hexDigits[b>>4], hexDigits[b&0x0f])
	}

	return string(out), nil
}

// Decode unescapes data and deserializes it into T. A zero T plus an error
// is returned for any malformed input.
func Decode[T any](data string) (T, error) {
	var out T

	raw, err := unescape(data)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("wire: decode: %w", err)
	}

	return out, nil
}

func unescape(data string) ([]byte, error) {
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != '%' {
			out = append(out, b)
			continue
		}
		if i+2 >= len(data) {
			return nil, fmt.Errorf("wire: truncated escape at offset %d", i)
		}
		hi, ok1 := hexValue(data[i+1])
		lo, ok2 := hexValue(data[i+2])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("wire: invalid escape %q at offset %d", data[i:i+3], i)
		}
		out = append(out, hi<<4|lo)
		i += 2
	}

	return out, nil
}

func hexValue(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	}
	return 0, false
}
