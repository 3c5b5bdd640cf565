package qrcode_test

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muuzah/internal/qrcode"
)

func TestGenerate(t *testing.T) {
	data, err := qrcode.Generate(qrcode.MatchURL("localhost:8080", "m1"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestMatchURL(t *testing.T) {
	assert.Equal(t, "http://example.org/api/matches/a%2Fb", qrcode.MatchURL("example.org", "a/b"))
}
