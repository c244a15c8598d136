package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/bluele/gcache"
	"github.com/google/uuid"
)

// PreparedState tracks where a handle sits in the Create/Bind/Execute/Close
// state machine (spec.md §4.4): a statement with parameters starts in
// Ready, moves to Bound once a parameter batch has been put, and returns to
// Ready after each execution so it can be bound and executed again.
type PreparedState int

const (
	StateReady PreparedState = iota
	StateBound
)

// preparedEntry is the server-side record for one live prepared statement
// handle. mu serializes Bind/Execute/Close against each other so a handle
// has at most one operation in flight; a second caller observing busy gets
// ErrHandleBusy rather than blocking (spec.md §4.4).
type preparedEntry struct {
	Handle []byte
	Query  string
	Stmt   PreparedBackendStatement

	mu     sync.Mutex
	state  PreparedState
	params arrow.Record
	busy   bool
	closed bool
}

func (e *preparedEntry) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrHandleNotFound
	}
	if e.busy {
		return ErrHandleBusy
	}
	e.busy = true
	return nil
}

func (e *preparedEntry) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *preparedEntry) closeLocked(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.params != nil {
		e.params.Release()
		e.params = nil
	}
	return e.Stmt.Close(ctx)
}

// PreparedStatements is the server-wide registry of live prepared statement
// handles: a bounded, idle-expiring LRU cache over github.com/bluele/gcache,
// mirroring the teacher's use of gcache for its own handle table. Eviction
// (by capacity or by idle timeout) closes the backend statement exactly as
// an explicit ClosePreparedStatement would (spec.md §4.4).
type PreparedStatements struct {
	cache gcache.Cache
}

// NewPreparedStatements builds a registry holding at most maxEntries
// handles, each closed automatically after idleTimeout without activity.
// A zero idleTimeout disables idle expiry. A nil logger defaults to
// slog.Default().
func NewPreparedStatements(maxEntries int, idleTimeout time.Duration, logger *slog.Logger) *PreparedStatements {
	if logger == nil {
		logger = slog.Default()
	}
	builder := gcache.New(maxEntries).LRU().
		EvictedFunc(func(key any, value any) {
			entry := value.(*preparedEntry)
			entry.mu.Lock()
			defer entry.mu.Unlock()
			logger.Warn("prepared statement evicted", "handle", key)
			_ = entry.closeLocked(context.Background())
		})
	if idleTimeout > 0 {
		builder = builder.Expiration(idleTimeout)
	}
	return &PreparedStatements{cache: builder.Build()}
}

// Create registers a freshly compiled backend statement under a new,
// randomly generated handle.
func (p *PreparedStatements) Create(stmt PreparedBackendStatement, query string) *preparedEntry {
	entry := &preparedEntry{
		Handle: []byte(uuid.NewString()),
		Query:  query,
		Stmt:   stmt,
		state:  StateReady,
	}
	_ = p.cache.Set(string(entry.Handle), entry)
	return entry
}

// Get looks up a handle, returning ErrHandleNotFound if it is unknown,
// already closed, or has expired out of the cache.
func (p *PreparedStatements) Get(handle []byte) (*preparedEntry, error) {
	v, err := p.cache.Get(string(handle))
	if err != nil {
		return nil, ErrHandleNotFound
	}
	entry := v.(*preparedEntry)
	entry.mu.Lock()
	closed := entry.closed
	entry.mu.Unlock()
	if closed {
		return nil, ErrHandleNotFound
	}
	return entry, nil
}

// Close removes and closes a handle. Closing an unknown handle is a no-op,
// matching the idempotent semantics implied by spec.md §4.4's close
// lifecycle (a client retrying a close after a timeout should not fault).
func (p *PreparedStatements) Close(ctx context.Context, handle []byte) error {
	v, err := p.cache.Get(string(handle))
	if err != nil {
		return nil
	}
	entry := v.(*preparedEntry)
	p.cache.Remove(string(handle))
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.closeLocked(ctx)
}

// Bind attaches a parameter batch to a prepared statement, validating its
// schema against the statement's declared parameter schema (spec.md §4.4's
// parameter-schema gate). Binding an entry that has been closed returns
// ErrHandleNotFound. The caller must hold the entry busy (acquire'd)
// before calling Bind.
func (e *preparedEntry) Bind(batch arrow.Record) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrHandleNotFound
	}
	paramSchema := e.Stmt.ParameterSchema()
	if paramSchema == nil || !paramSchema.Equal(batch.Schema()) {
		return ErrSchemaMismatch
	}
	batch.Retain()
	e.mu.Lock()
	if e.params != nil {
		e.params.Release()
	}
	e.params = batch
	e.state = StateBound
	e.mu.Unlock()
	return nil
}

// takeParams returns (and clears) the currently bound parameter batch, nil
// if none has been bound. The statement returns to Ready so it may be
// bound and executed again.
func (e *preparedEntry) takeParams() arrow.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	batch := e.params
	e.params = nil
	e.state = StateReady
	return batch
}

// hasParams reports whether a parameter batch is currently bound, without
// consuming it.
func (e *preparedEntry) hasParams() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params != nil
}
