package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordOp("list.material", 20*time.Millisecond, nil)
	m.RecordOp("list.material", 40*time.Millisecond, errors.New("boom"))
	m.RecordOp("search", 5*time.Millisecond, nil)
	m.RecordSearchHit()
	m.RecordSearchMiss()
	m.RecordSearchMiss()
	m.RecordDedupHit()

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.OpsTotal)
	assert.Equal(t, int64(1), snap.OpsFailed)
	assert.Equal(t, int64(1), snap.SearchHits)
	assert.Equal(t, int64(2), snap.SearchMisses)
	assert.Equal(t, int64(1), snap.DedupHits)
	assert.Equal(t, []string{"list.material", "search"}, snap.OpNames())
	assert.Equal(t, int64(30), snap.Ops["list.material"].AverageDuration)
	assert.InDelta(t, 66.67, snap.SuccessRate(), 0.01)
	assert.Equal(t, int64(2), m.OpCount("list.material"))

	m.Reset()
	assert.Equal(t, int64(0), m.Snapshot().OpsTotal)
	assert.Equal(t, 100.0, m.Snapshot().SuccessRate())
}

func TestOpContextLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	op := NewOpContext(logger, "search", "material")
	op.Info("search started", slog.String(LogFieldQuery, "cuero"))
	op.Error("search failed", errors.New("timeout"))
	op.Done("search finished")

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "op_id="+op.OpID))
	assert.Contains(t, out, "kind=material")
	assert.Contains(t, out, "query=cuero")
	assert.Contains(t, out, "error=timeout")
	assert.Contains(t, out, "duration_ms=")

	ctx := WithOpContext(context.Background(), op)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, op, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
