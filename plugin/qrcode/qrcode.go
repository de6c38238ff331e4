package qrcode

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const (
	// DefaultSize is the rendered width and height in pixels.
	DefaultSize = 200

	dataURLPrefix = "data:image/png;base64,"
)

// Config configures the encoder.
type Config struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// DefaultConfig renders 200px codes at the highest error correction level.
func DefaultConfig() *Config {
	return &Config{
		Size:  DefaultSize,
		Level: qrcode.Highest,
	}
}

// Encoder renders scannable identifier codes for inventory entities.
type Encoder struct {
	config *Config
}

func NewEncoder(config *Config) *Encoder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Size <= 0 {
		config.Size = DefaultSize
	}
	return &Encoder{config: config}
}

// Content is the exact text a code carries: "[category,id]".
func Content(category, id string) string {
	return fmt.Sprintf("[%s,%s]", category, id)
}

// PNG renders the code for an entity as PNG bytes.
func (e *Encoder) PNG(category, id string) ([]byte, error) {
	if category == "" || id == "" {
		return nil, errors.New("category and id are required")
	}
	code, err := qrcode.New(Content(category, id), e.config.Level)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build qr code")
	}
	png, err := code.PNG(e.config.Size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render qr code")
	}
	return png, nil
}

// Encode returns the code as a PNG data URL, or "" when rendering fails.
func (e *Encoder) Encode(category, id string) string {
	png, err := e.PNG(category, id)
	if err != nil {
		slog.Warn("failed to encode identifier", "category", category, "id", id, "error", err)
		return ""
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png)
}

// DecodeDataURL returns the PNG bytes of a data URL produced by Encode.
func DecodeDataURL(dataURL string) ([]byte, error) {
	if len(dataURL) <= len(dataURLPrefix) || dataURL[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, errors.New("not a png data url")
	}
	png, err := base64.StdEncoding.DecodeString(dataURL[len(dataURLPrefix):])
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 payload")
	}
	return png, nil
}
