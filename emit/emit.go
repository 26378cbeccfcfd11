// Package emit decides when an accumulated turn is published to observers.
//
// State-defining events publish immediately. Content and thought events
// share a token bucket with a burst of one, so at most one publish per
// interval; faster updates are coalesced into a pending flag that a trailing
// publish or the terminal Flush picks up.
package emit

import (
	"time"

	"github.com/fwojciec/drip"
	"golang.org/x/time/rate"
)

// DefaultInterval caps throttled publishes at roughly 60 per second.
const DefaultInterval = 16 * time.Millisecond

// Scheduler is the publish policy for one stream session. All methods take
// the current time explicitly. A Scheduler is not safe for concurrent use.
type Scheduler struct {
	lim      *rate.Limiter
	interval time.Duration
	pending  bool
}

// New returns a Scheduler allowing one throttled publish per interval. A
// non-positive interval disables throttling.
func New(interval time.Duration) *Scheduler {
	return &Scheduler{
		lim:      rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Offer reports whether the state produced by an event of kind k should be
// published now. Kinds that are neither immediate nor throttled never
// publish by themselves.
func (s *Scheduler) Offer(k drip.Kind, now time.Time) bool {
	switch {
	case k.Immediate():
		s.pending = false
		return true
	case k.Throttled():
		if s.lim.AllowN(now, 1) {
			s.pending = false
			return true
		}
		s.pending = true
	}
	return false
}

// Pending reports whether a coalesced update has not been published yet.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// Delay returns how long until a pending update may be published. It is
// zero when nothing is pending or a publish is already allowed.
func (s *Scheduler) Delay(now time.Time) time.Duration {
	if !s.pending || s.interval <= 0 {
		return 0
	}
	tokens := s.lim.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(s.interval))
}

// Due reports whether the pending update should be published at now, and
// consumes the publish if so.
func (s *Scheduler) Due(now time.Time) bool {
	if !s.pending || !s.lim.AllowN(now, 1) {
		return false
	}
	s.pending = false
	return true
}

// Flush forces the terminal publish. It reports whether an update was
// pending.
func (s *Scheduler) Flush() bool {
	p := s.pending
	s.pending = false
	return p
}
