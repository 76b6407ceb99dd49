package guard

import (
	"fmt"
	"time"
)

// Defaults applied when a Policy field is zero.
const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 30 * time.Second
)

// Policy controls when a lock is imposed and how long it lasts.
type Policy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultPolicy returns the 5 attempts / 30 seconds policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, LockDuration: DefaultLockDuration}
}

func (p Policy) normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.LockDuration <= 0 {
		p.LockDuration = DefaultLockDuration
	}
	return p
}

// State is the persisted attempt state of one client.
// A zero LockUntil means no lock.
type State struct {
	Attempts  int
	LockUntil time.Time
}

// LockedAt reports whether the state holds a lock that is still active at now.
func (s State) LockedAt(now time.Time) bool {
	return !s.LockUntil.IsZero() && now.Before(s.LockUntil)
}

// Status is the outcome of a guard operation.
type Status struct {
	Locked       bool
	Until        time.Time
	Remaining    time.Duration
	Attempts     int
	AttemptsLeft int
}

// Seconds returns the remaining lock time rounded up to whole seconds, never negative.
func (s Status) Seconds() int {
	if !s.Locked || s.Remaining <= 0 {
		return 0
	}
	return int((s.Remaining + time.Second - 1) / time.Second)
}

func (s Status) String() string {
	if s.Locked {
		return fmt.Sprintf("locked for %ds", s.Seconds())
	}
	return fmt.Sprintf("open (%d attempts left)", s.AttemptsLeft)
}

func openStatus(attempts int, p Policy) Status {
	left := p.MaxAttempts - attempts
	if left < 0 {
		left = 0
	}
	return Status{Attempts: attempts, AttemptsLeft: left}
}

func lockedStatus(until, now time.Time) Status {
	return Status{Locked: true, Until: until, Remaining: until.Sub(now)}
}

// Check evaluates the state at now. An expired lock is dropped from the
// returned state; the attempt count is left alone.
func (s State) Check(now time.Time, p Policy) (State, Status) {
	p = p.normalize()
	if s.LockedAt(now) {
		return s, lockedStatus(s.LockUntil, now)
	}
	s.LockUntil = time.Time{}
	return s, openStatus(s.Attempts, p)
}

// Fail records one failed attempt at now. Reaching MaxAttempts imposes a
// lock of LockDuration and resets the count. A failure during an active lock
// changes nothing.
func (s State) Fail(now time.Time, p Policy) (State, Status) {
	p = p.normalize()
	if s.LockedAt(now) {
		return s, lockedStatus(s.LockUntil, now)
	}

	s.LockUntil = time.Time{}
	s.Attempts++
	if s.Attempts >= p.MaxAttempts {
		locked := State{LockUntil: now.Add(p.LockDuration)}
		return locked, lockedStatus(locked.LockUntil, now)
	}
	return s, openStatus(s.Attempts, p)
}

// Succeed returns the state after a successful login.
func Succeed(p Policy) (State, Status) {
	p = p.normalize()
	return State{}, openStatus(0, p)
}
