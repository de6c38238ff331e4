package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hrygo/shopfloor/server/label"
	"github.com/hrygo/shopfloor/store"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch.Add(time.Hour)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeDriver is an in-memory store.Driver that counts collection fetches.
type fakeDriver struct {
	mu        sync.Mutex
	rows      map[store.Kind][]store.Entity
	seq       int
	lists     map[store.Kind]int
	filters   map[string]int
	listErr   map[store.Kind]error
	createErr error

	// When gate is set, collection fetches report on entered and wait for
	// gate to close or their context to end.
	gate      chan struct{}
	entered   chan store.Kind
	active    map[store.Kind]int
	maxActive map[store.Kind]int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		rows:    map[store.Kind][]store.Entity{},
		lists:   map[store.Kind]int{},
		filters: map[string]int{},
		listErr:   map[store.Kind]error{},
		active:    map[store.Kind]int{},
		maxActive: map[store.Kind]int{},
	}
}

// hold makes subsequent collection fetches block until the returned gate
// is closed.
func (d *fakeDriver) hold() (chan struct{}, chan store.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = make(chan struct{})
	d.entered = make(chan store.Kind, 64)
	return d.gate, d.entered
}

func (d *fakeDriver) waitEntered(t *testing.T, entered chan store.Kind, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d fetches started", i, n)
		}
	}
}

func (d *fakeDriver) maxActiveLists(kind store.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxActive[kind]
}

func (d *fakeDriver) seed(entities ...store.Entity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entities {
		d.insertLocked(e)
	}
}

func (d *fakeDriver) insertLocked(e store.Entity) store.Entity {
	d.seq++
	c := store.Clone(e)
	c.Common().ID = fmt.Sprintf("%s-%d", c.Kind(), d.seq)
	c.Common().CreatedAt = epoch.Add(time.Duration(d.seq) * time.Second)
	d.rows[c.Kind()] = append([]store.Entity{c}, d.rows[c.Kind()]...)
	return store.Clone(c)
}

func (d *fakeDriver) Close() error                   { return nil }
func (d *fakeDriver) Ping(ctx context.Context) error { return nil }

func (d *fakeDriver) ListItems(ctx context.Context, find *store.FindItem) ([]store.Entity, error) {
	if find.ID == nil {
		d.mu.Lock()
		d.lists[find.Kind]++
		filter := ""
		if find.NameSearch != nil {
			filter = *find.NameSearch
		}
		d.filters[filter]++
		d.active[find.Kind]++
		d.maxActive[find.Kind] = max(d.maxActive[find.Kind], d.active[find.Kind])
		gate, entered := d.gate, d.entered
		d.mu.Unlock()

		defer func() {
			d.mu.Lock()
			d.active[find.Kind]--
			d.mu.Unlock()
		}()
		if gate != nil {
			entered <- find.Kind
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.listErr[find.Kind]; err != nil {
		return nil, err
	}

	var out []store.Entity
	for _, e := range d.rows[find.Kind] {
		if find.ID != nil && e.Common().ID != *find.ID {
			continue
		}
		if find.NameSearch != nil && !store.MatchesName(e, *find.NameSearch) {
			continue
		}
		out = append(out, store.Clone(e))
	}
	return out, nil
}

func (d *fakeDriver) CreateItem(ctx context.Context, create store.Entity) (store.Entity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return nil, d.createErr
	}
	return d.insertLocked(create), nil
}

func (d *fakeDriver) UpdateItem(ctx context.Context, update *store.UpdateItem) (store.Entity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.rows[update.Kind] {
		if e.Common().ID == update.ID {
			if err := store.ApplyPatch(e, update.Patch); err != nil {
				return nil, err
			}
			return store.Clone(e), nil
		}
	}
	return nil, store.NotFound(update.Kind, update.ID)
}

func (d *fakeDriver) listCount(kind store.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lists[kind]
}

func (d *fakeDriver) filterCount(filter string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filters[filter]
}

// fakeLabeler records a code address through the repository, as the real
// labeler does after uploading.
type fakeLabeler struct {
	mu    sync.Mutex
	calls []string
}

func (l *fakeLabeler) EncodeAndPersist(ctx context.Context, category store.Kind, id string, records label.Records) (string, error) {
	l.mu.Lock()
	l.calls = append(l.calls, string(category)+"/"+id)
	l.mu.Unlock()

	current, err := records.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if current.Common().QRCode != "" {
		return current.Common().QRCode, nil
	}
	url := "https://cdn.example/qrcodes/public/qr_" + string(category) + "_" + id + ".png"
	if _, err := records.UpdateByID(ctx, id, store.Patch{store.ColumnQRCode: url}); err != nil {
		return "", err
	}
	return url, nil
}
