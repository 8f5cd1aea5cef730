package stages

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/platform"
)

// Throttle applies a per-sender token bucket. Over-budget events are
// stopped, not queued. The limiter map is per-tenant state shared across
// events, which is why it sits behind a mutex here and not on the event.
type Throttle struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewThrottle() *Throttle {
	return &Throttle{}
}

func (s *Throttle) Name() string { return NameThrottle }

func (s *Throttle) Initialize(_ context.Context, pc *pipeline.Context) error {
	perSecond := pc.Config.GetFloat64("throttle.rate")
	if perSecond <= 0 {
		s.limit = rate.Inf
		return nil
	}
	s.limit = rate.Limit(perSecond)
	s.burst = pc.Config.GetInt("throttle.burst")
	if s.burst <= 0 {
		s.burst = 1
	}
	s.limiters = make(map[string]*rate.Limiter)
	return nil
}

func (s *Throttle) Process(_ context.Context, ev *platform.Event) error {
	if s.limit == rate.Inf {
		return nil
	}
	if !s.limiterFor(ev.Sender.ID).Allow() {
		slog.Info("throttle_sender_limited", "origin", ev.Origin, "sender_id", ev.Sender.ID)
		ev.Stop()
	}
	return nil
}

func (s *Throttle) limiterFor(senderID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[senderID]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[senderID] = limiter
	}
	return limiter
}
