// Package ocr extracts text from photographed delivery notes and labels
// with the Tesseract command line tool.
package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// SupportedMimeTypes are the image types tesseract reads.
var SupportedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// Config holds the OCR configuration.
type Config struct {
	// TesseractPath is the path to the tesseract executable.
	TesseractPath string
	// DataPath is the tessdata directory (optional).
	DataPath string
	// Languages to recognize, e.g. "spa+eng".
	Languages string
}

// DefaultConfig recognizes Spanish and English.
func DefaultConfig() *Config {
	return &Config{
		TesseractPath: "tesseract",
		Languages:     "spa+eng",
	}
}

// Client runs tesseract.
type Client struct {
	config *Config
}

func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.TesseractPath == "" {
		config.TesseractPath = "tesseract"
	}
	return &Client{config: config}
}

// ExtractText returns the recognized text of an image, trimmed.
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if !c.IsSupported(mimeType) {
		return "", errors.Errorf("unsupported MIME type: %s", mimeType)
	}

	tmp, err := os.CreateTemp("", "shopfloor_ocr_*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "failed to write temp file")
	}
	tmp.Close()

	// "stdout" as output base makes tesseract print instead of writing a .txt file.
	args := []string{tmp.Name(), "stdout"}
	if c.config.Languages != "" {
		args = append(args, "-l", c.config.Languages)
	}
	if c.config.DataPath != "" {
		args = append(args, "--tessdata-dir", c.config.DataPath)
	}

	cmd := exec.CommandContext(ctx, c.config.TesseractPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Warn("tesseract command failed", "error", err, "stderr", stderr.String())
		return "", errors.Wrap(err, "tesseract command failed")
	}

	return strings.TrimSpace(stdout.String()), nil
}

// IsAvailable checks if tesseract can be executed.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return exec.CommandContext(ctx, c.config.TesseractPath, "--version").Run() == nil
}

// IsSupported checks if a MIME type is supported for OCR.
func (c *Client) IsSupported(mimeType string) bool {
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(mimeType, supported) {
			return true
		}
	}
	return false
}
