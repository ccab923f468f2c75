package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

// Page is the pair of views one loaded chemical page composes. Every page
// load gets its own Page, so tabs never share view state.
type Page struct {
	ID       string
	Chemical domain.Chemical
	Main     *MainPlot
	Compare  *ComparisonPlot

	lastSeen time.Time
	leases   int // attached event streams; leased pages are never swept

	done      chan struct{}
	closeOnce sync.Once
}

// Done is closed once the page's views are closed.
func (p *Page) Done() <-chan struct{} { return p.done }

// Close closes both views. Close is idempotent.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.Main.Close()
		p.Compare.Close()
		close(p.done)
	})
}

// pageKey identifies a page. The scratch page of a session has an empty id.
type pageKey struct {
	session  string
	id       string
	chemical domain.Chemical
}

// Each session keeps at most this many pages; opening another closes the
// least recently used unleased one.
const maxPagesPerSession = 16

// Registry owns the open pages of every browser session.
type Registry struct {
	deps        Deps
	idleTimeout time.Duration
	clock       clockwork.Clock

	mu    sync.Mutex
	pages map[pageKey]*Page
}

// NewRegistry creates an empty registry. Pages unused for idleTimeout are
// closed by Sweep.
func NewRegistry(deps Deps, idleTimeout time.Duration) *Registry {
	return &Registry{
		deps:        deps,
		idleTimeout: idleTimeout,
		clock:       domain.Clock(),
		pages:       make(map[pageKey]*Page),
	}
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like an identifier from NewSessionID.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ValidPageID reports whether id looks like a Page.ID.
func ValidPageID(id string) bool {
	return ValidSessionID(id)
}

func (r *Registry) newPage(id string, chemical domain.Chemical) *Page {
	return &Page{
		ID:       id,
		Chemical: chemical,
		Main:     NewMainPlot(chemical, r.deps),
		Compare:  NewComparisonPlot(chemical, r.deps),
		lastSeen: r.clock.Now(),
		done:     make(chan struct{}),
	}
}

// Open creates fresh views for a newly loaded chemical page of the session.
func (r *Registry) Open(session string, chemical domain.Chemical) *Page {
	page := r.newPage(uuid.NewString(), chemical)

	r.mu.Lock()
	r.pages[pageKey{session: session, id: page.ID, chemical: chemical}] = page
	evicted := r.evictLocked(session)
	r.updateSessionsLocked()
	r.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	r.deps.Logger.Debug("page opened", "session", session, "chemical", chemical, "page", page.ID)
	return page
}

// evictLocked drops the least recently used unleased page of session when it
// holds more than maxPagesPerSession. Caller holds mu and closes the result.
func (r *Registry) evictLocked(session string) *Page {
	var (
		n      int
		oldest pageKey
		victim *Page
	)
	for key, page := range r.pages {
		if key.session != session {
			continue
		}
		n++
		if page.leases == 0 && (victim == nil || page.lastSeen.Before(victim.lastSeen)) {
			oldest, victim = key, page
		}
	}
	if n <= maxPagesPerSession || victim == nil {
		return nil
	}
	delete(r.pages, oldest)
	return victim
}

// Get returns the session's page with the given id and marks it as used.
func (r *Registry) Get(session, id string, chemical domain.Chemical) (*Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, ok := r.pages[pageKey{session: session, id: id, chemical: chemical}]
	if ok {
		page.lastSeen = r.clock.Now()
	}
	return page, ok
}

// Scratch returns the session's page for API clients that do not name a
// page, opening it on first use.
func (r *Registry) Scratch(session string, chemical domain.Chemical) *Page {
	key := pageKey{session: session, chemical: chemical}

	r.mu.Lock()
	defer r.mu.Unlock()
	if page, ok := r.pages[key]; ok {
		page.lastSeen = r.clock.Now()
		return page
	}
	page := r.newPage("", chemical)
	r.pages[key] = page
	r.updateSessionsLocked()
	return page
}

// Attach leases the page for as long as a client stays connected to it. A
// leased page is not swept. The returned release ends the lease and starts
// the idle clock again.
func (r *Registry) Attach(session, id string, chemical domain.Chemical) (*Page, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, ok := r.pages[pageKey{session: session, id: id, chemical: chemical}]
	if !ok {
		return nil, nil, false
	}
	page.leases++
	page.lastSeen = r.clock.Now()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			page.leases--
			page.lastSeen = r.clock.Now()
			r.mu.Unlock()
		})
	}
	return page, release, true
}

// Len returns the number of open pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

// Sweep closes unleased pages idle for longer than the idle timeout and
// returns how many were closed.
func (r *Registry) Sweep() int {
	cutoff := r.clock.Now().Add(-r.idleTimeout)

	var idle []*Page
	r.mu.Lock()
	for key, page := range r.pages {
		if page.leases == 0 && page.lastSeen.Before(cutoff) {
			idle = append(idle, page)
			delete(r.pages, key)
		}
	}
	r.updateSessionsLocked()
	r.mu.Unlock()

	for _, page := range idle {
		page.Close()
	}
	if len(idle) > 0 {
		r.deps.Logger.Info("closed idle pages", "count", len(idle))
	}
	return len(idle)
}

// Run sweeps idle pages every interval until ctx is cancelled, then closes
// every remaining page.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return nil
		case <-ticker.Chan():
			r.Sweep()
		}
	}
}

// Close closes every page.
func (r *Registry) Close() {
	r.mu.Lock()
	pages := make([]*Page, 0, len(r.pages))
	for key, page := range r.pages {
		pages = append(pages, page)
		delete(r.pages, key)
	}
	r.updateSessionsLocked()
	r.mu.Unlock()

	for _, page := range pages {
		page.Close()
	}
}

func (r *Registry) updateSessionsLocked() {
	sessions := make(map[string]struct{}, len(r.pages))
	for key := range r.pages {
		sessions[key.session] = struct{}{}
	}
	r.deps.Metrics.Sessions.Set(float64(len(sessions)))
}
