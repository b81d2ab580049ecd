// Package feed shares one live snapshot subscription per user between all
// views. Every change to a user's records triggers one complete reload, which
// is fanned out to that user's subscribers; slow subscribers only ever see the
// most recent snapshot.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sadopc/innerglow/internal/store"
)

var (
	ErrClosed = errors.New("feed: hub closed")
	ErrNoUser = errors.New("feed: no user")
)

// Source is the record store as seen by the hub.
type Source interface {
	Snapshot(ctx context.Context, owner string) (store.Snapshot, error)
	OnChange(fn func(owner string)) (cancel func())
}

// Hub multiplexes snapshot subscriptions by owner.
type Hub struct {
	src   Source
	log   *slog.Logger
	cache *cache.Cache

	ctx        context.Context
	cancel     context.CancelFunc
	stopListen func()
	wg         sync.WaitGroup

	mu     sync.Mutex
	topics map[string]*topic
	closed bool
}

// topic is the shared state of one owner's subscription.
type topic struct {
	owner  string
	reload chan struct{}
	cancel context.CancelFunc
	subs   map[*Subscription]struct{}
	latest *store.Snapshot

	// gen counts change notices; loaded is the gen latest reflects.
	gen    uint64
	loaded uint64
}

// stale reports whether a change arrived that latest does not reflect yet.
func (t *topic) stale() bool { return t.gen != t.loaded }

// New starts a hub over src. Snapshots of owners with no subscribers are
// kept for grace before being dropped.
func New(src Source, grace time.Duration, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		src: src,
		log: log,
		// no janitor; expired entries are simply never returned
		cache:  cache.New(grace, 0),
		ctx:    ctx,
		cancel: cancel,
		topics: make(map[string]*topic),
	}
	h.stopListen = src.OnChange(h.changed)
	return h
}

// Subscribe joins (or starts) the shared subscription for owner. The first
// snapshot arrives on Updates as soon as it is loaded, or immediately when
// one is already held.
func (h *Hub) Subscribe(ctx context.Context, owner string) (*Subscription, error) {
	if owner == "" {
		return nil, ErrNoUser
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	t, ok := h.topics[owner]
	if !ok {
		t = h.startTopic(owner)
	}
	sub := &Subscription{
		hub:   h,
		owner: owner,
		ch:    make(chan store.Snapshot, 1),
		done:  make(chan struct{}),
	}
	t.subs[sub] = struct{}{}
	if t.latest != nil {
		sub.deliver(*t.latest)
	}
	h.mu.Unlock()

	h.log.Debug("subscribed", "owner", owner, "subscribers", len(t.subs))

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

// startTopic must be called with h.mu held.
func (h *Hub) startTopic(owner string) *topic {
	ctx, cancel := context.WithCancel(h.ctx)
	t := &topic{
		owner:  owner,
		reload: make(chan struct{}, 1),
		cancel: cancel,
		subs:   make(map[*Subscription]struct{}),
	}
	if cached, ok := h.cache.Get(owner); ok {
		snap := cached.(store.Snapshot)
		t.latest = &snap
		h.cache.Delete(owner)
		h.log.Debug("snapshot served from cache", "owner", owner)
	} else {
		t.gen++
		t.reload <- struct{}{}
	}
	h.topics[owner] = t

	h.wg.Add(1)
	go h.run(ctx, t)
	return t
}

// run reloads t whenever a change is signalled. Bursts of changes coalesce
// into one reload.
func (h *Hub) run(ctx context.Context, t *topic) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.reload:
		}

		h.mu.Lock()
		gen := t.gen
		h.mu.Unlock()

		snap, err := h.src.Snapshot(ctx, t.owner)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.log.Error("snapshot reload failed", "owner", t.owner, "error", err)
			continue
		}

		h.mu.Lock()
		if h.topics[t.owner] != t {
			h.mu.Unlock()
			return
		}
		t.latest = &snap
		t.loaded = gen
		for sub := range t.subs {
			sub.deliver(snap)
		}
		n := len(t.subs)
		h.mu.Unlock()
		h.log.Debug("snapshot published", "owner", t.owner, "records", snap.Total(), "subscribers", n)
	}
}

func (h *Hub) changed(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[owner]; ok {
		t.gen++
		select {
		case t.reload <- struct{}{}:
		default:
		}
		return
	}
	h.cache.Delete(owner)
}

func (h *Hub) leave(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.topics[sub.owner]
	if !ok {
		return
	}
	delete(t.subs, sub)
	if len(t.subs) > 0 {
		return
	}
	t.cancel()
	delete(h.topics, sub.owner)
	// a pending or in-flight reload dies with the topic, so only a current
	// snapshot may be cached
	if t.latest != nil && !t.stale() && !h.closed {
		h.cache.SetDefault(sub.owner, *t.latest)
	} else {
		h.cache.Delete(sub.owner)
	}
	h.log.Debug("last subscriber left", "owner", sub.owner)
}

// Subscribers reports how many live subscriptions owner has.
func (h *Hub) Subscribers(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[owner]; ok {
		return len(t.subs)
	}
	return 0
}

// Close ends every subscription and waits for reloads to stop.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var subs []*Subscription
	for _, t := range h.topics {
		for sub := range t.subs {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	h.stopListen()
	h.cancel()
	h.wg.Wait()
	h.cache.Flush()
}

// Subscription is one consumer's handle on a shared owner feed.
type Subscription struct {
	hub   *Hub
	owner string

	mu     sync.Mutex
	ch     chan store.Snapshot
	done   chan struct{}
	closed bool
	once   sync.Once
}

// Updates yields the latest snapshot each time one is published. It is
// closed after Close.
func (s *Subscription) Updates() <-chan store.Snapshot { return s.ch }

func (s *Subscription) Owner() string { return s.owner }

// deliver replaces any undelivered snapshot with snap.
func (s *Subscription) deliver(snap store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// Close stops deliveries and closes Updates. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.leave(s)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		close(s.done)
		s.mu.Unlock()
	})
}
