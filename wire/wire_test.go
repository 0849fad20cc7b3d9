package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   payload
	}{
		{name: "ascii", in: payload{Text: "roses are red", Count: 3}},
		{name: "cyrillic", in: payload{Text: "розы красные, фиалки голубые", Count: 2}},
		{name: "mixed punctuation", in: payload{Text: `"квіти"? 100% — sure!`, Count: -1}},
		{name: "emoji", in: payload{Text: "🌹🌹🌹", Count: 0}},
		{name: "empty", in: payload{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.in)
			require.NoError(t, err)

			decoded, err := Decode[payload](encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.in, decoded)
		})
	}
}

func TestEncodeStaysInSafeSubset(t *testing.T) {
	encoded, err := Encode(payload{Text: "ночь, улица, фонарь, аптека", Count: 42})
	require.NoError(t, err)

	for i := 0; i < len(encoded); i++ {
		b := encoded[i]
		assert.True(t, safeByte(b) || b == '%',
			"byte %q at offset %d escaped the transport-safe subset", b, i)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "truncated escape", in: "%7B%2"},
		{name: "invalid hex digits", in: "%ZZ"},
		{name: "not json", in: "hello"},
		{name: "wrong json shape", in: "%5B%5D"}, // [] into a struct
		{name: "empty", in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[payload](tt.in)
			assert.Error(t, err)
		})
	}
}

func TestDecodeAcceptsURIComponentEncoding(t *testing.T) {
	// Clients encode with encodeURIComponent(JSON.stringify(...)); the
	// escape set must line up with ours.
	decoded, err := Decode[payload](`%7B%22text%22%3A%22hi%20there%22%2C%22count%22%3A7%7D`)
	require.NoError(t, err)
	assert.Equal(t, payload{Text: "hi there", Count: 7}, decoded)
}
