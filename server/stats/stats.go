// Package stats summarizes the loaded inventory: per-kind totals, stock alerts
// and tools out of service.
package stats

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hrygo/shopfloor/store"
)

// Level is the stock status shown next to a row.
type Level string

const (
	LevelNormal     Level = ""
	LevelOutOfStock Level = "Agotado"
	LevelLow        Level = "Bajo"
)

// Tool statuses that count as needing attention.
var toolAlertStatuses = map[string]bool{
	"Necesita reparación": true,
	"Fuera de servicio":   true,
}

// Source yields the rows to summarize, usually the inventory aggregator.
type Source interface {
	GetAll() []store.Entity
}

// Stats is a snapshot of inventory figures.
type Stats struct {
	Totals        map[store.Kind]int64
	OutOfStock    int64
	LowStock      int64
	ToolAlerts    int64
	AddedLastWeek int64
	Alerts        []Alert
	LastUpdated   time.Time
}

// Alert names one row whose status needs attention.
type Alert struct {
	Kind  store.Kind
	ID    string
	Name  string
	Label string
}

// Collector computes Stats from a Source.
type Collector struct {
	source Source
	now    func() time.Time

	mu    sync.Mutex
	stats *Stats
}

// NewCollector creates a new statistics collector.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		now:    time.Now,
		stats:  &Stats{Totals: map[store.Kind]int64{}},
	}
}

// StockLevel classifies a material or product by stock against its minimum.
// Either value missing means no alert.
func StockLevel(e store.Entity) Level {
	var stock, minimum string
	switch v := e.(type) {
	case *store.Material:
		stock, minimum = v.Stock, v.MinStock
	case *store.Product:
		stock, minimum = v.Stock, v.MinStock
	default:
		return LevelNormal
	}
	if strings.TrimSpace(stock) == "" || strings.TrimSpace(minimum) == "" {
		return LevelNormal
	}
	s, floor := leadingInt(stock), leadingInt(minimum)
	switch {
	case s <= 0:
		return LevelOutOfStock
	case s <= floor:
		return LevelLow
	}
	return LevelNormal
}

// Label is the status text for any row: the stock level, or a tool's state.
func Label(e store.Entity) string {
	if t, ok := e.(*store.Tool); ok {
		return t.Status
	}
	return string(StockLevel(e))
}

// leadingInt parses the integer prefix of s ("12 m" is 12); no digits is 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	n := 0
	for _, r := range s {
		if !unicode.IsDigit(r) {
			break
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		return -n
	}
	return n
}

// Collect recomputes the snapshot.
func (c *Collector) Collect() *Stats {
	now := c.now()
	weekAgo := now.AddDate(0, 0, -7)

	s := &Stats{Totals: map[store.Kind]int64{}, LastUpdated: now}
	for _, e := range c.source.GetAll() {
		s.Totals[e.Kind()]++
		if !e.Common().CreatedAt.Before(weekAgo) {
			s.AddedLastWeek++
		}

		alert := Alert{Kind: e.Kind(), ID: e.Common().ID, Name: e.Common().Name}
		switch level := StockLevel(e); level {
		case LevelOutOfStock:
			s.OutOfStock++
			alert.Label = string(level)
		case LevelLow:
			s.LowStock++
			alert.Label = string(level)
		}
		if t, ok := e.(*store.Tool); ok && toolAlertStatuses[t.Status] {
			s.ToolAlerts++
			alert.Label = t.Status
		}
		if alert.Label != "" {
			s.Alerts = append(s.Alerts, alert)
		}
	}

	c.mu.Lock()
	c.stats = s
	c.mu.Unlock()
	return s
}

// GetStats returns the last collected snapshot.
func (c *Collector) GetStats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// GetSummary returns a human-readable summary.
func (s *Stats) GetSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inventario (actualizado: %s)\n\n", s.LastUpdated.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "  Materiales:   %d\n", s.Totals[store.KindMaterial])
	fmt.Fprintf(&b, "  Herramientas: %d\n", s.Totals[store.KindTool])
	fmt.Fprintf(&b, "  Productos:    %d\n", s.Totals[store.KindProduct])
	fmt.Fprintf(&b, "  Nuevos (7 días): %d\n\n", s.AddedLastWeek)
	fmt.Fprintf(&b, "Alertas\n  Agotado: %d\n  Bajo: %d\n  Herramientas fuera de uso: %d\n", s.OutOfStock, s.LowStock, s.ToolAlerts)
	for _, a := range s.Alerts {
		fmt.Fprintf(&b, "  - [%s] %s (%s): %s\n", a.Kind, a.Name, a.ID, a.Label)
	}
	return b.String()
}
