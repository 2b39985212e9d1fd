package diagnostics

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wirehome/core/pkg/log"
	"github.com/wirehome/core/pkg/metrics"
	"github.com/wirehome/core/pkg/system"
)

// Service owns all operations-per-second counters and the single ticker
// that resets them.
type Service struct {
	mu       sync.RWMutex
	counters map[string]*OperationsPerSecondCounter

	cancellation *system.Cancellation
	logger       zerolog.Logger
}

// NewService creates a diagnostics service observing the given cancellation.
func NewService(cancellation *system.Cancellation) *Service {
	return &Service{
		counters:     make(map[string]*OperationsPerSecondCounter),
		cancellation: cancellation,
		logger:       log.WithComponent("diagnostics"),
	}
}

// CreateOperationsPerSecondCounter returns the counter registered under uid,
// creating it on first use. Repeated calls with the same uid return the same
// counter.
func (s *Service) CreateOperationsPerSecondCounter(uid string) *OperationsPerSecondCounter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.counters[uid]; ok {
		return c
	}
	c := &OperationsPerSecondCounter{uid: uid}
	s.counters[uid] = c
	return c
}

// Counters returns a snapshot of all registered counters.
func (s *Service) Counters() []*OperationsPerSecondCounter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*OperationsPerSecondCounter, 0, len(s.counters))
	for _, c := range s.counters {
		out = append(out, c)
	}
	return out
}

// Rates returns the last observed rate per counter uid.
func (s *Service) Rates() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.counters))
	for uid, c := range s.counters {
		out[uid] = c.Rate()
	}
	return out
}

// Start launches the one-second ticker loop.
func (s *Service) Start() {
	go s.run()
}

func (s *Service) run() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	s.logger.Debug().Msg("diagnostics ticker started")

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.cancellation.Done():
			s.logger.Debug().Msg("diagnostics ticker stopped")
			return
		}
	}
}

func (s *Service) tick() {
	for _, c := range s.Counters() {
		rate := c.reset()
		metrics.OperationsPerSecond.WithLabelValues(c.Uid()).Set(float64(rate))
	}
}
