package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FetchFunc performs the network fetch for one cache key.
type FetchFunc func(ctx context.Context, key Key) (Value, error)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Fetch performs the network fetch. Required.
	Fetch FetchFunc
	// Timeout bounds each fetch. Defaults to 30s.
	Timeout time.Duration
	// TTL is the freshness window of an idle entry; 0 means entries stay
	// fresh until invalidated.
	TTL time.Duration
	// Logger receives fetch lifecycle events.
	Logger zerolog.Logger
}

type flight struct {
	done  chan struct{}
	value Value
	err   error
}

// Loader coordinates fetches against a Store: it deduplicates concurrent
// fetches per key, serves stale values while revalidating in the
// background, and discards superseded fetch results so a slow stale
// response never overwrites a newer one.
type Loader struct {
	store   *Store
	fetch   FetchFunc
	timeout time.Duration
	ttl     time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[Key]*flight
	seq      map[Key]uint64
}

// NewLoader builds a Loader over the given store.
func NewLoader(store *Store, cfg LoaderConfig) *Loader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		store:    store,
		fetch:    cfg.Fetch,
		timeout:  timeout,
		ttl:      cfg.TTL,
		logger:   cfg.Logger,
		inflight: make(map[Key]*flight),
		seq:      make(map[Key]uint64),
	}
}

// Load returns the value for key. A fresh cached value is served directly;
// a stale one is served immediately while a background refetch revalidates
// it; a missing one triggers a fetch, joining any fetch already in flight
// for the same key.
func (l *Loader) Load(ctx context.Context, key Key) (Value, error) {
	entry, ok := l.store.Get(key)
	if ok {
		switch entry.State {
		case StateIdle:
			if l.fresh(entry) {
				return entry.Value, nil
			}
		case StateStale:
			l.revalidate(key)
			return entry.Value, nil
		case StateFetching:
			// A fetch is in flight; fall through and join it.
		}
	}

	return l.await(ctx, l.start(key))
}

// Refresh forces a new fetch for key, superseding any fetch already in
// flight: the older fetch's result is discarded on arrival ("last request
// wins" by request sequence, not arrival order).
func (l *Loader) Refresh(ctx context.Context, key Key) (Value, error) {
	return l.await(ctx, l.startSuperseding(key))
}

func (l *Loader) fresh(entry Entry) bool {
	if l.ttl <= 0 {
		return true
	}
	return time.Since(entry.FetchedAt) < l.ttl
}

// revalidate kicks a background refetch for a stale key, deduplicated
// against any fetch already in flight.
func (l *Loader) revalidate(key Key) {
	fl := l.start(key)
	go func() {
		<-fl.done
	}()
}

// start returns the in-flight fetch for key, launching one when none
// exists.
func (l *Loader) start(key Key) *flight {
	l.mu.Lock()
	if existing, ok := l.inflight[key]; ok {
		l.mu.Unlock()
		return existing
	}
	fl := &flight{done: make(chan struct{})}
	l.inflight[key] = fl
	l.seq[key]++
	seq := l.seq[key]
	l.mu.Unlock()

	l.store.MarkFetching(key)
	go l.run(key, fl, seq)
	return fl
}

// startSuperseding always launches a new fetch, bumping the sequence so
// any older in-flight fetch is discarded when it settles.
func (l *Loader) startSuperseding(key Key) *flight {
	l.mu.Lock()
	fl := &flight{done: make(chan struct{})}
	l.inflight[key] = fl
	l.seq[key]++
	seq := l.seq[key]
	l.mu.Unlock()

	l.store.MarkFetching(key)
	go l.run(key, fl, seq)
	return fl
}

func (l *Loader) run(key Key, fl *flight, seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	value, err := l.fetch(ctx, key)

	l.mu.Lock()
	latest := l.seq[key] == seq
	if l.inflight[key] == fl {
		delete(l.inflight, key)
	}
	l.mu.Unlock()

	if !latest {
		// Superseded by a newer fetch for the same key; discard.
		l.logger.Debug().
			Str("kind", string(key.Kind)).
			Str("id", key.ID).
			Msg("discarding superseded fetch result")
		fl.err = context.Canceled
		close(fl.done)
		return
	}

	if err != nil {
		l.logger.Warn().Err(err).
			Str("kind", string(key.Kind)).
			Str("id", key.ID).
			Msg("fetch failed")
		// Leave any previous value behind, marked stale so the next Load
		// retries instead of waiting on a settled fetch.
		l.store.InvalidateKey(key)
		fl.err = err
		close(fl.done)
		return
	}

	l.store.Set(key, value)
	fl.value = value.Clone()
	close(fl.done)
}

func (l *Loader) await(ctx context.Context, fl *flight) (Value, error) {
	select {
	case <-fl.done:
		if fl.err != nil {
			return Value{}, fl.err
		}
		return fl.value.Clone(), nil
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}
}
