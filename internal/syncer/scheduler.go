package syncer

import (
	"context"
	"errors"
	"log"
	"time"

	"studytrack-agent/internal/identity"
)

// Scheduler runs a sync pass on an interval so records accumulated while the
// backend was unreachable eventually drain without the UI asking for it.
type Scheduler struct {
	engine    *Engine
	interval  time.Duration
	chapterID string
	slideID   string
	stopChan  chan struct{}
}

func NewScheduler(engine *Engine, interval time.Duration, chapterID, slideID string) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		engine:    engine,
		interval:  interval,
		chapterID: chapterID,
		slideID:   slideID,
		stopChan:  make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.loop()
	log.Printf("Sync scheduler started (every %s)", s.interval)
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *Scheduler) loop() {
	// Run on startup as well as by interval.
	s.run()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.run()
		}
	}
}

func (s *Scheduler) run() {
	_, err := s.engine.SyncAll(context.Background(), s.chapterID, s.slideID)
	if errors.Is(err, identity.ErrMissingIdentity) {
		// Nobody has used the UI yet; nothing to push under.
		return
	}
	if err != nil {
		log.Printf("syncer: scheduled pass failed: %v", err)
	}
}
