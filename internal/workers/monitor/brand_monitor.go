package monitor

import (
	"context"
	"time"

	"brandpulse/internal/domain/workflow"
	"brandpulse/internal/workers"
	"brandpulse/pkg/errors"
)

// Analyzer runs one brand analysis (workflowservice.Engine)
type Analyzer interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.Report, error)
}

// Locker is a distributed lock (redis.Client)
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RunPublisher announces finished runs (events.Publisher)
type RunPublisher interface {
	PublishWorkflowCompleted(ctx context.Context, rep *workflow.Report) error
}

// Config of the brand monitor
type Config struct {
	Brands       []string
	Interval     time.Duration
	MaxDocuments int
	DaysBack     int
	Enabled      bool
}

// BrandMonitor periodically analyses every configured brand. Crisis
// escalation and review hand-off happen inside the workflow run itself.
type BrandMonitor struct {
	*workers.BaseWorker
	analyzer  Analyzer
	locker    Locker
	publisher RunPublisher
	cfg       Config
}

// NewBrandMonitor creates the worker. locker and publisher may be nil.
func NewBrandMonitor(analyzer Analyzer, locker Locker, publisher RunPublisher, cfg Config) *BrandMonitor {
	return &BrandMonitor{
		BaseWorker: workers.NewBaseWorker("brand_monitor", cfg.Interval, cfg.Enabled && len(cfg.Brands) > 0),
		analyzer:   analyzer,
		locker:     locker,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// Run analyses each brand once
func (m *BrandMonitor) Run(ctx context.Context) error {
	m.Log().Debugw("Brand monitor: starting iteration", "brands", len(m.cfg.Brands))

	var errs errors.MultiError
	checked := 0
	for _, brand := range m.cfg.Brands {
		select {
		case <-ctx.Done():
			m.Log().Infow("Brand monitor interrupted by shutdown",
				"checked", checked,
				"remaining", len(m.cfg.Brands)-checked,
			)
			return ctx.Err()
		default:
		}

		if err := m.checkBrand(ctx, brand); err != nil {
			errs.Add(errors.Wrapf(err, "brand %q", brand))
		}
		checked++
	}

	return errs.ToError()
}

func (m *BrandMonitor) checkBrand(ctx context.Context, brand string) error {
	if m.locker != nil {
		// the lock is left to expire so replicas check each brand once per interval
		ok, err := m.locker.AcquireLock(ctx, "monitor:"+brand, m.lockTTL())
		if err != nil {
			m.Log().Warnw("Monitor lock unavailable, checking unlocked", "brand", brand, "error", err)
		} else if !ok {
			m.Log().Debugw("Brand already checked this interval", "brand", brand)
			return nil
		}
	}

	report, err := m.analyzer.Run(ctx, workflow.Request{
		Brand:        brand,
		MaxDocuments: m.cfg.MaxDocuments,
		DaysBack:     m.cfg.DaysBack,
	})
	if err != nil {
		return err
	}

	fields := []interface{}{
		"brand", brand,
		"run_id", report.RunID,
		"status", report.Status,
		"documents", len(report.Documents),
		"responses", len(report.Responses),
	}
	if report.RiskAssessment != nil {
		fields = append(fields,
			"crisis_score", report.RiskAssessment.CrisisScore,
			"crisis_level", report.RiskAssessment.CrisisLevel,
		)
	}
	if report.Status == workflow.StatusEscalated {
		m.Log().Warnw("Brand monitor: crisis escalated", fields...)
	} else {
		m.Log().Infow("Brand monitor: brand checked", fields...)
	}

	if m.publisher != nil {
		if err := m.publisher.PublishWorkflowCompleted(ctx, report); err != nil {
			return err
		}
	}
	return nil
}

// lockTTL expires just before the next tick of this replica
func (m *BrandMonitor) lockTTL() time.Duration {
	return m.cfg.Interval * 9 / 10
}
