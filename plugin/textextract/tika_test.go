package textextract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTikaServer(t *testing.T, metaStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/version":
			_, _ = w.Write([]byte("Apache Tika 2.9.1"))
		case "/tika":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			if string(body) == "broken" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			_, _ = w.Write([]byte("\n  Albarán 2024/118\nCuero vacuno curtido\n"))
		case "/meta":
			if metaStatus != http.StatusOK {
				w.WriteHeader(metaStatus)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"dc:title": ["Albarán"], "xmpTPg:NPages": "2"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractText(t *testing.T) {
	ctx := context.Background()

	t.Run("text and metadata", func(t *testing.T) {
		srv := newTikaServer(t, http.StatusOK)
		c := NewClient(&Config{TikaServerURL: srv.URL})
		res, err := c.ExtractText(ctx, []byte("%PDF-1.4"), "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "Albarán 2024/118\nCuero vacuno curtido", res.Text)
		assert.Equal(t, "Albarán", res.Title)
		assert.Equal(t, 2, res.PageCount)
		assert.True(t, c.IsAvailable(ctx))
	})

	t.Run("metadata failure is ignored", func(t *testing.T) {
		srv := newTikaServer(t, http.StatusInternalServerError)
		c := NewClient(&Config{TikaServerURL: srv.URL})
		res, err := c.ExtractText(ctx, []byte("%PDF-1.4"), "application/pdf")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Text)
		assert.Empty(t, res.Metadata)
	})

	t.Run("server error", func(t *testing.T) {
		srv := newTikaServer(t, http.StatusOK)
		c := NewClient(&Config{TikaServerURL: srv.URL})
		_, err := c.ExtractText(ctx, []byte("broken"), "application/pdf")
		assert.ErrorContains(t, err, "status 422")
	})

	t.Run("unsupported type", func(t *testing.T) {
		c := NewClient(nil)
		_, err := c.ExtractText(ctx, nil, "image/png")
		assert.Error(t, err)
	})
}

func TestSummary(t *testing.T) {
	r := &Result{Text: strings.Repeat("cuero ", 50)}
	s := r.Summary(40)
	assert.True(t, strings.HasSuffix(s, "..."))
	assert.LessOrEqual(t, len(s), 43)
	assert.Equal(t, "corto", (&Result{Text: "corto"}).Summary(40))
}
