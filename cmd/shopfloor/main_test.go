package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shopfloor/plugin/qrcode"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SHOPFLOOR_S3_ACCESS_KEY", "minio")
	t.Setenv("SHOPFLOOR_S3_SECRET_KEY", "minio123")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	base := []string{"--driver", "sqlite", "--dsn", ":memory:", "--media-backend", "s3", "--s3-endpoint", "localhost:9000"}
	rootCmd.SetArgs(append(base, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheck(t *testing.T) {
	out, err := run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "store: ok (sqlite)")
}

func TestSearchEmptyInventory(t *testing.T) {
	out, err := run(t, "search", "cuero")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "KIND"))
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestStatsEmptyInventory(t *testing.T) {
	out, err := run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Materiales:   0")
	assert.Contains(t, out, "Agotado: 0")
}

func TestQRPrintsDataURL(t *testing.T) {
	out, err := run(t, "qr", "herramienta", "42")
	require.NoError(t, err)
	png, err := qrcode.DecodeDataURL(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	_, err = run(t, "qr", "zapato", "42")
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	out, err := run(t, "extract", "--text", "Hilo encerado 1mm\nrollo de 100 metros")
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "Hilo encerado 1mm", m["nombre"])
	assert.Equal(t, "0", m["stock"])
}

func TestLoadProfileRejectsUnknownDriver(t *testing.T) {
	_, err := run(t, "--driver", "mongo", "check")
	assert.ErrorContains(t, err, "unknown driver")
}
