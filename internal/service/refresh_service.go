package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// RefreshJob periodically re-fetches the reservation list so the cache
// converges after mutations made elsewhere (another device, the backend's
// own expiry job).
type RefreshJob struct {
	cron         *cron.Cron
	reservations *ReservationService
	timeout      time.Duration
}

func NewRefreshJob(reservations *ReservationService) *RefreshJob {
	return &RefreshJob{
		cron:         cron.New(),
		reservations: reservations,
		timeout:      10 * time.Second,
	}
}

// Start schedules the refresh on the given cron spec ("@every 30s", ...).
func (j *RefreshJob) Start(spec string) error {
	_, err := j.cron.AddFunc(spec, j.run)
	if err != nil {
		return fmt.Errorf("scheduling reservation refresh: %w", err)
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (j *RefreshJob) Stop() {
	<-j.cron.Stop().Done()
}

func (j *RefreshJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.reservations.Refresh(ctx); err != nil {
		log.Printf("Scheduled refresh: %v", err)
	}
}
