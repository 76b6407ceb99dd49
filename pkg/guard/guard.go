// Package guard implements the client-side login attempt guard: it counts
// consecutive failed logins, imposes a temporary lock once a threshold is
// reached and reports how long the lock has left.
//
// The guard is an advisory throttle. State lives in a kvstore.Store scoped to
// one client (a browser, a device, a terminal) and every operation returns a
// definite Status; when the store fails the guard fails open.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/tendant/farmgate/pkg/kvstore"
)

// Keys under which state is persisted.
const (
	KeyAttempts  = "loginAttempts"
	KeyLockUntil = "lockUntil"
)

// Guard tracks failed login attempts for one client.
type Guard struct {
	store        kvstore.Store
	policy       Policy
	now          func() time.Time
	logger       *slog.Logger
	onStoreError func(op string, err error)
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// WithLogger sets the logger used for storage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithStoreErrorHook registers a callback invoked on every storage failure.
func WithStoreErrorHook(fn func(op string, err error)) Option {
	return func(g *Guard) {
		g.onStoreError = fn
	}
}

// New creates a guard over store. A nil store makes every check open.
func New(store kvstore.Store, policy Policy, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		policy: policy.normalize(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Scoped returns a guard whose state lives under its own key prefix in a
// shared store, so one server-side store can hold many clients' counters.
func Scoped(store kvstore.Store, scope string, policy Policy, opts ...Option) *Guard {
	if store == nil {
		return New(nil, policy, opts...)
	}
	return New(kvstore.WithPrefix(store, "guard:"+scope+":"), policy, opts...)
}

// Policy returns the effective policy.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckLock reports whether the client is locked out. An expired lock entry
// is removed from the store.
func (g *Guard) CheckLock(ctx context.Context) Status {
	if g.store == nil {
		return g.failOpen()
	}
	st, hasLock, err := g.load(ctx)
	if err != nil {
		g.storeFailed("check", err)
		return g.failOpen()
	}

	_, status := st.Check(g.now(), g.policy)
	if !status.Locked && hasLock {
		if err := g.store.Remove(ctx, KeyLockUntil); err != nil {
			g.storeFailed("check", err)
		}
	}
	return status
}

// RecordFailure counts one failed attempt and imposes a lock when the
// threshold is reached.
func (g *Guard) RecordFailure(ctx context.Context) Status {
	if g.store == nil {
		return g.failOpen()
	}
	st, hasLock, err := g.load(ctx)
	if err != nil {
		g.storeFailed("record_failure", err)
		return g.failOpen()
	}

	now := g.now()
	if st.LockedAt(now) {
		_, status := st.Check(now, g.policy)
		return status
	}

	next, status := st.Fail(now, g.policy)
	if err := g.save(ctx, next, hasLock); err != nil {
		g.storeFailed("record_failure", err)
		return g.failOpen()
	}

	if status.Locked {
		g.logger.Info("login attempts exhausted, lock imposed",
			"until", status.Until,
			"duration", g.policy.LockDuration,
		)
	}
	return status
}

// RecordSuccess clears the attempt count and any lock.
func (g *Guard) RecordSuccess(ctx context.Context) Status {
	next, status := Succeed(g.policy)
	if g.store == nil {
		return status
	}
	if err := g.save(ctx, next, true); err != nil {
		g.storeFailed("record_success", err)
	}
	return status
}

func (g *Guard) failOpen() Status {
	return openStatus(0, g.policy)
}

func (g *Guard) storeFailed(op string, err error) {
	g.logger.Warn("login guard storage unavailable, failing open", "op", op, "error", err)
	if g.onStoreError != nil {
		g.onStoreError(op, err)
	}
}

// load reads persisted state. hasLock reports whether a lockUntil entry
// exists, valid or not, so callers know whether it must be removed.
func (g *Guard) load(ctx context.Context) (State, bool, error) {
	var st State

	raw, err := g.store.Get(ctx, KeyAttempts)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
	case err != nil:
		return State{}, false, err
	default:
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			g.logger.Warn("ignoring corrupt login attempt count", "value", raw)
		} else {
			st.Attempts = n
		}
	}

	raw, err = g.store.Get(ctx, KeyLockUntil)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return st, false, nil
	case err != nil:
		return State{}, false, err
	}

	ms, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		g.logger.Warn("ignoring corrupt lock expiry", "value", raw)
		return st, true, nil
	}
	st.LockUntil = time.UnixMilli(ms)
	return st, true, nil
}

// save writes the attempt count before the lock, so a failed write never
// leaves a lock behind a fail-open status.
func (g *Guard) save(ctx context.Context, st State, hasLock bool) error {
	if err := g.store.Set(ctx, KeyAttempts, strconv.Itoa(st.Attempts)); err != nil {
		return err
	}
	if !st.LockUntil.IsZero() {
		return g.store.Set(ctx, KeyLockUntil, strconv.FormatInt(st.LockUntil.UnixMilli(), 10))
	}
	if hasLock {
		return g.store.Remove(ctx, KeyLockUntil)
	}
	return nil
}
