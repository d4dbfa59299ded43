// Package keygen allocates collision-checked string business keys.
// Candidates are ULIDs, optionally prefixed, verified against storage by a
// caller-supplied lookup before being handed out.
package keygen

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
)

// ErrExhausted is returned when every candidate collided.
var ErrExhausted = errors.New("keygen: exhausted unique key attempts")

var errCollision = errors.New("keygen: candidate collision")

// ExistsFunc reports whether a candidate key is already taken.
type ExistsFunc func(ctx context.Context, key string) (bool, error)

const defaultAttempts = 5

type Allocator struct {
	prefix   string
	attempts int

	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time

	newBackOff func() backoff.BackOff
}

type Option func(*Allocator)

// WithAttempts overrides the candidate budget.
func WithAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.attempts = n
		}
	}
}

// WithEntropy pins the entropy source. Tests use this to force collisions.
func WithEntropy(r io.Reader) Option {
	return func(a *Allocator) {
		if r != nil {
			a.entropy = r
		}
	}
}

// WithNow pins the timestamp source for candidate ULIDs.
func WithNow(now func() time.Time) Option {
	return func(a *Allocator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithBackOff overrides the wait strategy between collision retries.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(a *Allocator) {
		if factory != nil {
			a.newBackOff = factory
		}
	}
}

func New(prefix string, opts ...Option) *Allocator {
	a := &Allocator{
		prefix:   strings.TrimSpace(prefix),
		attempts: defaultAttempts,
		entropy:  ulid.Monotonic(rand.Reader, 0),
		now:      func() time.Time { return time.Now().UTC() },
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 10 * time.Millisecond
			bo.MaxInterval = 250 * time.Millisecond
			return bo
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a key that did not exist at check time. The caller is
// expected to hold whatever lock makes check-then-insert safe.
func (a *Allocator) Allocate(ctx context.Context, exists ExistsFunc) (string, error) {
	if exists == nil {
		return "", errors.New("keygen: exists func is required")
	}

	var key string
	operation := func() error {
		candidate := a.candidate()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return backoff.Permanent(err)
		}
		if taken {
			return errCollision
		}
		key = candidate
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(a.newBackOff(), uint64(a.attempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		if errors.Is(err, errCollision) {
			return "", ErrExhausted
		}
		return "", err
	}
	return key, nil
}

func (a *Allocator) candidate() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(a.now()), a.entropy)
	if a.prefix == "" {
		return id.String()
	}
	return a.prefix + "_" + id.String()
}
