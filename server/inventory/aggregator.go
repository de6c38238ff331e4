package inventory

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/shopfloor/server/label"
	inverrors "github.com/hrygo/shopfloor/server/internal/errors"
	"github.com/hrygo/shopfloor/server/internal/observability"
	"github.com/hrygo/shopfloor/store"
)

// State is the lifecycle state of an Aggregator.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	// StateRefreshing is a fetch running after the first load.
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	}
	return "uninitialized"
}

// Labeler generates identifier codes for persisted rows.
type Labeler interface {
	EncodeAndPersist(ctx context.Context, category store.Kind, id string, records label.Records) (string, error)
}

// Config tunes the search cache and the background timers.
type Config struct {
	// CacheTTL is how long a search result may be served from cache.
	CacheTTL time.Duration
	// Retention is how long the janitor keeps a cache entry.
	Retention time.Duration
	// JanitorInterval is how often expired entries are dropped.
	JanitorInterval time.Duration
	// Debounce is the quiet period of SearchDebounced.
	Debounce time.Duration
	// ReconcileDelay is the wait between the first pending mutation and
	// the reconciliation fetch.
	ReconcileDelay time.Duration

	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

func DefaultConfig() Config {
	return Config{
		CacheTTL:        time.Minute,
		Retention:       10 * time.Minute,
		JanitorInterval: 5 * time.Minute,
		Debounce:        300 * time.Millisecond,
		ReconcileDelay:  300 * time.Millisecond,
		Now:             time.Now,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CacheTTL <= 0 {
		c.CacheTTL = def.CacheTTL
	}
	if c.Retention <= 0 {
		c.Retention = def.Retention
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = def.JanitorInterval
	}
	if c.Debounce <= 0 {
		c.Debounce = def.Debounce
	}
	if c.ReconcileDelay <= 0 {
		c.ReconcileDelay = def.ReconcileDelay
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Metrics == nil {
		c.Metrics = observability.GlobalMetrics()
	}
	return c
}

type cacheEntry struct {
	results  []store.Entity
	storedAt time.Time
}

// Aggregator unifies the three repositories into one searchable view with
// a time-bounded search cache and a coalesced reconciliation policy.
// All methods are safe for concurrent use.
type Aggregator struct {
	cfg     Config
	repos   map[store.Kind]*Repository
	labeler Labeler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	state          State
	query          string
	cache          map[string]*cacheEntry
	fetching       int
	adding         int
	pending        bool
	reconciling    bool
	reconcileTimer *time.Timer
	debounceTimer  *time.Timer
	listeners      []func()
	closed         bool
}

// NewAggregator builds the three repositories over st. labeler may be nil,
// in which case created rows get no identifier code.
func NewAggregator(st *store.Store, labeler Labeler, cfg Config) *Aggregator {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	a := &Aggregator{
		cfg:     cfg,
		repos:   make(map[store.Kind]*Repository, len(store.Kinds)),
		labeler: labeler,
		ctx:     ctx,
		cancel:  cancel,
		cache:   make(map[string]*cacheEntry),
	}
	for _, kind := range store.Kinds {
		r := NewRepository(kind, st)
		r.now = cfg.Now
		r.logger = cfg.Logger
		r.metrics = cfg.Metrics
		a.repos[kind] = r
	}
	return a
}

// Repository returns the repository of kind, or nil.
func (a *Aggregator) Repository(kind store.Kind) *Repository {
	return a.repos[kind]
}

// Start performs the initial unfiltered load of all three collections and
// starts the cache janitor. Failures of individual collections do not stop
// the others; they are returned joined and recorded on each repository.
// The aggregator is ready afterwards either way.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateUninitialized || a.closed {
		a.mu.Unlock()
		return nil
	}
	a.state = StateLoading
	a.fetching++
	a.mu.Unlock()
	a.notify()

	op := observability.NewOpContext(a.cfg.Logger, "start", "")
	_, err := a.fetchAll(ctx, "")

	a.mu.Lock()
	a.fetching--
	a.state = StateReady
	if !a.closed {
		a.wg.Add(1)
		go a.janitor()
	}
	a.mu.Unlock()

	if err != nil {
		op.Warn("initial load incomplete", slog.String("error", err.Error()))
	}
	op.Done("inventory loaded")
	a.notify()
	return err
}

// Search makes q the active query. Whitespace-only queries are the empty
// query. It is a no-op before Start or when q is already active. The empty
// query always reloads everything; other queries are served from cache when
// their entry is younger than the TTL and fetched otherwise.
func (a *Aggregator) Search(ctx context.Context, q string) error {
	q = normalizeQuery(q)

	a.mu.Lock()
	if a.state == StateUninitialized || a.state == StateLoading || a.closed || q == a.query {
		a.mu.Unlock()
		return nil
	}
	a.query = q

	if q != "" {
		if entry, ok := a.cache[q]; ok && a.live(entry) {
			a.mu.Unlock()
			a.cfg.Metrics.RecordSearchHit()
			a.cfg.Logger.Debug("search cache hit", observability.LogFieldQuery, q)
			a.notify()
			return nil
		}
		a.cfg.Metrics.RecordSearchMiss()
	}
	a.fetching++
	a.state = StateRefreshing
	a.mu.Unlock()
	a.notify()

	op := observability.NewOpContext(a.cfg.Logger, "search", "")
	results, err := a.fetchAll(ctx, q)
	a.cfg.Metrics.RecordOp("search", op.Duration(), err)

	a.mu.Lock()
	if q != "" && err == nil {
		a.cache[q] = &cacheEntry{results: snapshot(results), storedAt: a.cfg.Now()}
	}
	a.fetching--
	if a.fetching == 0 {
		a.state = StateReady
	}
	a.mu.Unlock()

	if err != nil {
		op.Warn("search incomplete", slog.String(observability.LogFieldQuery, q), slog.String("error", err.Error()))
	} else {
		op.Done("search completed", slog.String(observability.LogFieldQuery, q))
	}
	a.notify()
	return err
}

// SearchDebounced runs Search for q once no other call has arrived for the
// debounce period. Only the last query of a burst runs.
func (a *Aggregator) SearchDebounced(q string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.debounceTimer != nil {
		a.debounceTimer.Stop()
	}
	a.debounceTimer = time.AfterFunc(a.cfg.Debounce, func() {
		if err := a.Search(a.ctx, q); err != nil {
			a.cfg.Logger.Warn("debounced search failed", observability.LogFieldQuery, q, "error", err)
		}
	})
}

// GetAll returns the union of the three local collections, newest first.
func (a *Aggregator) GetAll() []store.Entity {
	var all []store.Entity
	for _, kind := range store.Kinds {
		all = append(all, a.repos[kind].Items()...)
	}
	sortNewestFirst(all)
	return all
}

// Results returns what a view of the active query shows: the live cached
// snapshot for a non-empty query, otherwise GetAll.
func (a *Aggregator) Results() []store.Entity {
	a.mu.Lock()
	entry, ok := a.cache[a.query]
	if a.query != "" && ok && a.live(entry) {
		out := cloneAll(entry.results)
		a.mu.Unlock()
		return out
	}
	a.mu.Unlock()
	return a.GetAll()
}

// AddItem creates e in its repository. On success the row is spliced into
// the active query's cached results and an identifier code is generated. A reconciliation is scheduled whatever the outcome.
func (a *Aggregator) AddItem(ctx context.Context, e store.Entity) (store.Entity, error) {
	if e == nil {
		return nil, inverrors.InvalidArgument("entity is required")
	}
	repo := a.repos[e.Kind()]
	if repo == nil {
		return nil, inverrors.InvalidArgument("unknown kind").WithContext("kind", string(e.Kind()))
	}

	a.mu.Lock()
	a.adding++
	a.mu.Unlock()
	a.notify()
	defer func() {
		a.mu.Lock()
		a.adding--
		a.mu.Unlock()
		a.markPending()
		a.notify()
	}()

	created, err := repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	a.splice(created)

	if a.labeler != nil && store.Persisted(created) {
		id := created.Common().ID
		url, err := a.labeler.EncodeAndPersist(ctx, created.Kind(), id, repo)
		if err != nil {
			a.cfg.Logger.Warn("identifier code not generated", "kind", created.Kind(), "id", id, "error", err)
		} else if url != "" {
			created.Common().QRCode = url
			a.setCachedCode(id, url)
		}
	}
	return created, nil
}

// EnsureCode generates the identifier code of an existing row if it has none.
func (a *Aggregator) EnsureCode(ctx context.Context, kind store.Kind, id string) (string, error) {
	repo := a.repos[kind]
	if repo == nil {
		return "", inverrors.InvalidArgument("unknown kind").WithContext("kind", string(kind))
	}
	if a.labeler == nil {
		return "", inverrors.InvalidArgument("labeler is not configured")
	}
	url, err := a.labeler.EncodeAndPersist(ctx, kind, id, repo)
	if err == nil && url != "" {
		a.setCachedCode(id, url)
		a.notify()
	}
	return url, err
}

// Refresh marks the mirror stale; a reconciliation follows shortly.
func (a *Aggregator) Refresh() {
	a.markPending()
}

// OnChange registers fn to be called after every state change.
func (a *Aggregator) OnChange(fn func()) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Query returns the active query.
func (a *Aggregator) Query() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.query
}

// Loading reports whether a load or search fetch is running. Creating
// items does not count; see Adding.
func (a *Aggregator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetching > 0
}

// Adding reports whether an AddItem call is in flight.
func (a *Aggregator) Adding() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.adding > 0
}

// Pending reports whether a reconciliation is owed.
func (a *Aggregator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Errors returns the current error message of each failing repository.
func (a *Aggregator) Errors() map[store.Kind]string {
	out := make(map[store.Kind]string)
	for _, kind := range store.Kinds {
		if msg := a.repos[kind].Err(); msg != "" {
			out[kind] = msg
		}
	}
	return out
}

// CacheSize returns the number of cached queries.
func (a *Aggregator) CacheSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cache)
}

// Close stops the timers and the janitor. A running fetch is cancelled and
// a running reconciliation is waited for; no listener is called afterwards.
func (a *Aggregator) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	if a.reconcileTimer != nil {
		a.reconcileTimer.Stop()
		a.reconcileTimer = nil
	}
	if a.debounceTimer != nil {
		a.debounceTimer.Stop()
		a.debounceTimer = nil
	}
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
	return nil
}

// fetchAll lists the three repositories concurrently and waits for all of
// them. Tickets are taken before any request is issued.
func (a *Aggregator) fetchAll(ctx context.Context, q string) (map[store.Kind][]store.Entity, error) {
	tickets := make(map[store.Kind]uint64, len(store.Kinds))
	for _, kind := range store.Kinds {
		tickets[kind] = a.repos[kind].Ticket()
	}

	var (
		mu      sync.Mutex
		results = make(map[store.Kind][]store.Entity, len(store.Kinds))
		errs    []error
	)
	var g errgroup.Group
	for _, kind := range store.Kinds {
		g.Go(func() error {
			list, err := a.repos[kind].listTicket(ctx, q, tickets[kind])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			results[kind] = list
			return nil
		})
	}
	_ = g.Wait()
	return results, stderrors.Join(errs...)
}

// markPending sets the stale flag and arms the reconciliation timer unless
// one is armed or a pass is running.
func (a *Aggregator) markPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = true
	if a.reconcileTimer == nil && !a.reconciling {
		a.reconcileTimer = time.AfterFunc(a.cfg.ReconcileDelay, a.reconcile)
	}
}

// reconcile re-lists everything under the active query. Mutations that
// arrive while it runs are folded into one follow-up pass.
func (a *Aggregator) reconcile() {
	a.mu.Lock()
	a.reconcileTimer = nil
	if a.closed || !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.reconciling = true
	q := a.query
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	op := observability.NewOpContext(a.cfg.Logger, "reconcile", "")
	results, err := a.fetchAll(a.ctx, q)
	a.cfg.Metrics.RecordOp("reconcile", op.Duration(), err)

	a.mu.Lock()
	if q != "" && err == nil {
		a.cache[q] = &cacheEntry{results: snapshot(results), storedAt: a.cfg.Now()}
	}
	a.reconciling = false
	closed := a.closed
	if a.pending && !closed && a.reconcileTimer == nil {
		a.reconcileTimer = time.AfterFunc(a.cfg.ReconcileDelay, a.reconcile)
	}
	a.mu.Unlock()

	if closed {
		return
	}
	if err != nil {
		op.Warn("reconciliation incomplete", slog.String("error", err.Error()))
	} else {
		op.Done("reconciled", slog.String(observability.LogFieldQuery, q))
	}
	a.notify()
}

// janitor drops cache entries older than the retention period.
func (a *Aggregator) janitor() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if n := a.sweep(); n > 0 {
				a.cfg.Logger.Debug("search cache swept", "removed", n)
			}
		}
	}
}

func (a *Aggregator) sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.cfg.Now()
	removed := 0
	for q, entry := range a.cache {
		if now.Sub(entry.storedAt) > a.cfg.Retention {
			delete(a.cache, q)
			removed++
		}
	}
	return removed
}

// splice prepends e to the active query's cache entry and restamps it. The
// next reconciliation drops e again if it does not match the query.
func (a *Aggregator) splice(e store.Entity) {
	if !store.Persisted(e) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.query == "" {
		return
	}
	entry, ok := a.cache[a.query]
	if !ok {
		return
	}
	entry.results = append([]store.Entity{store.Clone(e)}, entry.results...)
	entry.storedAt = a.cfg.Now()
}

// setCachedCode records a code address on every cached copy of row id.
func (a *Aggregator) setCachedCode(id, url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, entry := range a.cache {
		for _, e := range entry.results {
			if e.Common().ID == id {
				e.Common().QRCode = url
			}
		}
	}
}

// live must be called with a.mu held.
func (a *Aggregator) live(entry *cacheEntry) bool {
	return a.cfg.Now().Sub(entry.storedAt) < a.cfg.CacheTTL
}

func (a *Aggregator) notify() {
	a.mu.Lock()
	listeners := slices.Clone(a.listeners)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func normalizeQuery(q string) string {
	if strings.TrimSpace(q) == "" {
		return ""
	}
	return q
}

// snapshot flattens fetch results into one newest-first list of persisted rows.
func snapshot(results map[store.Kind][]store.Entity) []store.Entity {
	var out []store.Entity
	for _, kind := range store.Kinds {
		for _, e := range results[kind] {
			if store.Persisted(e) {
				out = append(out, e)
			}
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(list []store.Entity) {
	slices.SortStableFunc(list, func(x, y store.Entity) int {
		return y.Common().CreatedAt.Compare(x.Common().CreatedAt)
	})
}
