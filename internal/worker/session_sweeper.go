package worker

import (
	"log"
	"time"
)

// Sweeper is a session store that must be purged of lapsed records by hand.
// Redis expires keys itself and needs no sweeper.
type Sweeper interface {
	Sweep() int
}

// SessionSweeper periodically removes expired sessions from an in-process store
type SessionSweeper struct {
	store    Sweeper
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(store Sweeper, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SessionSweeper{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called
func (w *SessionSweeper) Start() {
	defer close(w.doneChan)

	log.Printf("Session sweeper started with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopChan:
			log.Println("Session sweeper stopped")
			return
		}
	}
}

// Stop ends the loop and waits for it to exit
func (w *SessionSweeper) Stop() {
	close(w.stopChan)
	<-w.doneChan
}

func (w *SessionSweeper) sweep() {
	if n := w.store.Sweep(); n > 0 {
		log.Printf("Session sweeper: removed %d expired sessions", n)
	}
}
