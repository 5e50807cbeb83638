package tokenguard

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweeper defines a public type used by tokenguard APIs.
//
// Sweeper instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// The sweeper periodically retires records past expiry plus the retention
// margin. It is started by [Builder.Build] when cleanup is enabled and
// stopped by [Engine.Close].
type Sweeper struct {
	engine    *Engine
	interval  time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newSweeper(engine *Engine, interval time.Duration) *Sweeper {
	s := &Sweeper{
		engine:   engine,
		interval: interval,
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.engine.SweepExpired(context.Background()); err != nil {
				log.Printf("tokenguard: sweep failed: %v", err)
			}
		case <-s.done:
			return
		}
	}
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Sweeper) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
