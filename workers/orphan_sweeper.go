package workers

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/repository"
)

// DefaultMinOrphanAge keeps the sweeper away from captures whose history row
// is still being written
const DefaultMinOrphanAge = time.Minute

// OrphanSweeper removes saved captures that no history record references.
// Deleting a record never touches its image; this is the only place capture
// files are removed.
type OrphanSweeper struct {
	Store    media.Store
	History  repository.HistoryRepositoryInterface
	Interval time.Duration // 0 runs only on request
	MinAge   time.Duration
	Wg       sync.WaitGroup
	StopChan chan struct{}
	trigger  chan struct{}
	stopOnce sync.Once
	Mutex    sync.Mutex // serializes sweeps
	now      func() time.Time
}

func NewOrphanSweeper(store media.Store, history repository.HistoryRepositoryInterface, interval time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		Store:    store,
		History:  history,
		Interval: interval,
		MinAge:   DefaultMinOrphanAge,
		StopChan: make(chan struct{}),
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Start launches the background loop
func (s *OrphanSweeper) Start() {
	s.Wg.Add(1)
	go s.loop()
	if s.Interval > 0 {
		log.Printf("Started orphan sweeper (interval %s)", s.Interval)
	} else {
		log.Printf("Started orphan sweeper (on request only)")
	}
}

func (s *OrphanSweeper) loop() {
	defer s.Wg.Done()

	var tick <-chan time.Time
	if s.Interval > 0 {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			s.runLogged("interval")
		case <-s.trigger:
			s.runLogged("request")
		case <-s.StopChan:
			log.Printf("Orphan sweeper stopping: Stop signal received")
			return
		}
	}
}

func (s *OrphanSweeper) runLogged(reason string) {
	removed, err := s.SweepOnce()
	if err != nil {
		log.Printf("workers.sweeper: ERROR sweep (%s) failed: %v", reason, err)
		return
	}
	if removed > 0 {
		log.Printf("workers.sweeper: removed %d orphaned capture(s) (%s)", removed, reason)
	}
}

// RequestSweep schedules a sweep without blocking. Requests made while one is
// already queued are merged.
func (s *OrphanSweeper) RequestSweep() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the loop and waits for a running sweep to finish
func (s *OrphanSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.StopChan) })
	s.Wg.Wait()
}

// SweepOnce deletes every capture file older than MinAge that no record
// points at, and returns how many were removed.
func (s *OrphanSweeper) SweepOnce() (int, error) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	files, err := s.Store.List(media.AssetTypeCapture)
	if err != nil {
		return 0, fmt.Errorf("failed to list captures: %w", err)
	}
	if len(files) == 0 {
		return 0, nil
	}

	history, err := s.History.ListAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load history for sweep: %w", err)
	}
	referenced := make(map[string]bool, len(history))
	for _, h := range history {
		referenced[h.ImagePath] = true
	}

	cutoff := s.now().Add(-s.MinAge)
	removed := 0
	for _, rel := range files {
		if referenced[rel] {
			continue
		}
		full, err := s.Store.GetFullPath(rel)
		if err != nil {
			log.Printf("workers.sweeper: skipping %s: %v", rel, err)
			continue
		}
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := s.Store.Delete(rel); err != nil {
			log.Printf("workers.sweeper: ERROR deleting %s: %v", rel, err)
			continue
		}
		removed++
	}
	return removed, nil
}
