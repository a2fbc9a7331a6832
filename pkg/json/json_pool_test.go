package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecoderKeepsNumbers(t *testing.T) {
	dec := NewDecoder(strings.NewReader(`{"big": 9007199254740993, "f": 1.5}`))

	var obj map[string]interface{}
	require.NoError(t, dec.Decode(&obj))

	big, ok := obj["big"].(Number)
	require.True(t, ok)
	n, err := big.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), n)
	assert.Equal(t, Number("1.5"), obj["f"])
}

func TestWriteIndented(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteIndented(&out, map[string]interface{}{"a": []int{1}, "html": "<b>"}))

	assert.Equal(t, "{\n  \"a\": [\n    1\n  ],\n  \"html\": \"<b>\"\n}\n", out.String())
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(map[string]string{"k": "v"})
	require.NoError(t, err)

	var back map[string]string
	require.NoError(t, Unmarshal(data, &back))
	assert.Equal(t, "v", back["k"])
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("stale")
	PutBuffer(buf)

	assert.Zero(t, GetBuffer().Len())
}
