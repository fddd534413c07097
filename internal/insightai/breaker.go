package insightai

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrBreakerOpen is returned when the breaker rejects a call without trying
// the remote service. Callers treat it like any other augmentation failure
// and fall back to rule-based insights.
var ErrBreakerOpen = errors.New("insight service breaker is open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker protects the insight service from being hammered while it is
// failing. Repeated failures open the circuit; after the cooldown a single
// probe call decides whether it closes again.
type breaker struct {
	failureThreshold int
	cooldown         time.Duration
	logger           *logrus.Logger

	mu          sync.Mutex
	state       breakerState
	failures    int
	lastFailure time.Time
}

func newBreaker(failureThreshold int, cooldown time.Duration, logger *logrus.Logger) *breaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		logger:           logger,
	}
}

// execute runs fn under circuit breaker protection.
func (b *breaker) execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow() {
		return ErrBreakerOpen
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Since(b.lastFailure) > b.cooldown {
			b.state = breakerHalfOpen
			b.logger.Debug("Insight service breaker half-open, probing")
			return true
		}
		return false
	case breakerHalfOpen:
		return true
	}
	return false
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != breakerClosed {
			b.logger.Info("Insight service breaker closed")
		}
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = time.Now()
	if b.state == breakerHalfOpen || b.failures >= b.failureThreshold {
		if b.state != breakerOpen {
			b.logger.WithFields(logrus.Fields{
				"failures": b.failures,
				"cooldown": b.cooldown.String(),
			}).Warn("Insight service breaker opened")
		}
		b.state = breakerOpen
	}
}
