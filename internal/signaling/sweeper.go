package signaling

import (
	"log"
	"time"
)

// Sweeper periodically reclaims empty rooms from a registry. Normal cleanup
// happens on leave/disconnect; the sweeper bounds the damage of a missed
// disconnect event.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	stop     chan struct{}
}

// NewSweeper creates a sweeper for the given registry
func NewSweeper(registry *Registry, interval time.Duration) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop in a new goroutine
func (s *Sweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := s.registry.Sweep(); removed > 0 {
					log.Printf("Signaling: Sweep removed %d empty rooms", removed)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop
func (s *Sweeper) Stop() {
	close(s.stop)
}
