package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"symptom-checker/internal/analytics"
	"symptom-checker/internal/storage"
)

// Expirer drops idle sessions.
type Expirer interface {
	ExpireIdle(ttl time.Duration) int
}

// SweepJob expires sessions idle for longer than ttl.
func SweepJob(spec string, e Expirer, ttl time.Duration) Job {
	return Job{
		Name: "session-sweep",
		Spec: spec,
		Run: func(ctx context.Context) error {
			n := e.ExpireIdle(ttl)
			if n > 0 {
				log.Printf("scheduler: sweep removed %d sessions idle for more than %s", n, ttl)
			}
			return nil
		},
	}
}

// ReportJob summarizes the current UTC day of the audit trail and hands the
// text to publish. A nil publish only logs it.
func ReportJob(spec string, rec storage.Recorder, now func() time.Time, publish func(ctx context.Context, summary string) error) Job {
	return Job{
		Name: "daily-report",
		Spec: spec,
		Run: func(ctx context.Context) error {
			turns, err := rec.LoadTurns()
			if err != nil {
				return fmt.Errorf("load turns: %w", err)
			}
			stats := analytics.AnalyzeDailyTurns(turns.Records(), now().UTC())
			summary := stats.GenerateReportSummary()
			log.Printf("scheduler: daily report\n%s", summary)
			if publish == nil {
				return nil
			}
			return publish(ctx, summary)
		},
	}
}
