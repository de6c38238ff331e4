package qrcode

import (
	"bytes"
	"image"
	_ "image/png"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, png []byte) string {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	result, err := zxqrcode.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	return result.GetText()
}

func TestEncodeRoundTrip(t *testing.T) {
	enc := NewEncoder(nil)

	dataURL := enc.Encode("material", "42")
	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	png, err := DecodeDataURL(dataURL)
	require.NoError(t, err)
	assert.Equal(t, "[material,42]", decode(t, png))

	img, _, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
}

func TestEncodeUUIDIdentifier(t *testing.T) {
	enc := NewEncoder(nil)
	png, err := enc.PNG("herramienta", "3f6c1f0e-6a2b-4f43-9d8e-0c1b2a3d4e5f")
	require.NoError(t, err)
	assert.Equal(t, "[herramienta,3f6c1f0e-6a2b-4f43-9d8e-0c1b2a3d4e5f]", decode(t, png))
}

func TestEncodeFailureReturnsEmpty(t *testing.T) {
	enc := NewEncoder(nil)
	assert.Equal(t, "", enc.Encode("material", ""))

	_, err := enc.PNG("", "1")
	assert.Error(t, err)
}

func TestDecodeDataURLRejectsOtherPayloads(t *testing.T) {
	_, err := DecodeDataURL("data:image/jpeg;base64,AAAA")
	assert.Error(t, err)
	_, err = DecodeDataURL("data:image/png;base64,***")
	assert.Error(t, err)
}
