// Package textextract extracts plain text from supplier documents
// (PDF, Office, RTF) through an Apache Tika server.
package textextract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SupportedMimeTypes are the document types sent to Tika.
var SupportedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/rtf",
	"text/plain",
	"text/rtf",
	"text/csv",
}

// Config holds the text extraction configuration.
type Config struct {
	// TikaServerURL is the URL of the Tika server (e.g., http://localhost:9998).
	TikaServerURL string
	// Timeout is the HTTP timeout for Tika requests.
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		TikaServerURL: "http://localhost:9998",
		Timeout:       30 * time.Second,
	}
}

// Client talks to a Tika server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Result is extracted text plus the metadata Tika reports.
type Result struct {
	Text        string            `json:"text"`
	ContentType string            `json:"content_type"`
	Title       string            `json:"title,omitempty"`
	PageCount   int               `json:"page_count,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ExtractText sends a document to Tika and returns its plain text.
func (c *Client) ExtractText(ctx context.Context, data []byte, contentType string) (*Result, error) {
	if !c.IsSupported(contentType) {
		return nil, errors.Errorf("unsupported content type: %s", contentType)
	}
	if c.config.TikaServerURL == "" {
		return nil, errors.New("no Tika server configured")
	}

	body, err := c.put(ctx, "/tika", data, contentType, "text/plain")
	if err != nil {
		return nil, err
	}
	result := &Result{
		Text:        strings.TrimSpace(string(body)),
		ContentType: contentType,
	}

	// Metadata is best-effort.
	if meta, err := c.metadata(ctx, data, contentType); err != nil {
		slog.Debug("tika metadata unavailable", "error", err)
	} else {
		result.Metadata = meta
		result.Title = meta["dc:title"]
		if result.Title == "" {
			result.Title = meta["title"]
		}
		if n, err := strconv.Atoi(meta["xmpTPg:NPages"]); err == nil {
			result.PageCount = n
		}
	}
	return result, nil
}

func (c *Client) put(ctx context.Context, path string, data []byte, contentType, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, strings.TrimRight(c.config.TikaServerURL, "/")+path, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "tika request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("tika server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *Client) metadata(ctx context.Context, data []byte, contentType string) (map[string]string, error) {
	body, err := c.put(ctx, "/meta", data, contentType, "application/json")
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to decode metadata")
	}

	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			meta[k] = val
		case []any:
			if len(val) > 0 {
				if s, ok := val[0].(string); ok {
					meta[k] = s
				}
			}
		}
	}
	return meta, nil
}

// IsAvailable checks if the Tika server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.config.TikaServerURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.config.TikaServerURL, "/")+"/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// IsSupported checks if a MIME type is supported.
func (c *Client) IsSupported(contentType string) bool {
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(contentType, supported) {
			return true
		}
	}
	return false
}

// Summary returns at most maxLength bytes of text, cut at a word boundary
// when one is close.
func (r *Result) Summary(maxLength int) string {
	if maxLength <= 0 || len(r.Text) <= maxLength {
		return r.Text
	}
	text := r.Text[:maxLength]
	if lastSpace := strings.LastIndex(text, " "); lastSpace > maxLength*3/4 {
		text = text[:lastSpace]
	}
	return text + "..."
}
