// Package scheduler runs the recurring jobs: symbol-universe refresh and
// optional scheduled scans.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"stockscan/internal/scan"
	"stockscan/internal/universe"
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Scanner   *scan.Scanner
	Refresher *universe.Refresher
	Ctx       context.Context
}

// New creates a Scheduler. Refresher may be nil when no market-cap lookup is
// configured; refresh jobs then fail to register.
func New(ctx context.Context, scanner *scan.Scanner, refresher *universe.Refresher) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Scanner:   scanner,
		Refresher: refresher,
		Ctx:       ctx,
	}
}

// RegisterRefresh schedules a universe refresh at the given cron spec.
func (s *Scheduler) RegisterRefresh(spec string) error {
	if s.Refresher == nil {
		return fmt.Errorf("refresh job: no market-cap lookup configured")
	}
	_, err := s.Cron.AddFunc(spec, func() {
		log.Printf("[scheduler] universe refresh starting")
		if err := s.Refresher.Refresh(s.Ctx); err != nil {
			log.Printf("[scheduler] universe refresh failed: %v", err)
			return
		}
		log.Printf("[scheduler] universe refresh done")
	})
	if err != nil {
		return fmt.Errorf("register refresh job: %w", err)
	}
	return nil
}

// RegisterScan schedules a recurring scan; each completed run is handed to
// onResult.
func (s *Scheduler) RegisterScan(spec string, req scan.Request, onResult func(*scan.Response)) error {
	_, err := s.Cron.AddFunc(spec, func() {
		log.Printf("[scheduler] scheduled scan starting (buy=%s sell=%s)", req.BuyIndicator, req.SellIndicator)
		resp, err := s.Scanner.Scan(s.Ctx, req)
		if err != nil {
			log.Printf("[scheduler] scheduled scan failed: %v", err)
			return
		}
		log.Printf("[scheduler] scheduled scan done: %d/%d succeeded, %d after filters",
			resp.Summary.Successful, resp.Summary.TotalScanned, resp.Summary.AfterFilters)
		if onResult != nil {
			onResult(resp)
		}
	})
	if err != nil {
		return fmt.Errorf("register scan job: %w", err)
	}
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Printf("[scheduler] started with %d jobs", len(s.Cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.Cron.Stop()
	<-ctx.Done()
	log.Printf("[scheduler] stopped")
}
