package metrics

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"brandpulse/pkg/logger"
)

// StoreCollector reports gauges that live in the databases.
// Either store may be nil when it is not configured.
type StoreCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn

	alertsByStatus *prometheus.Desc
	mentions24h    *prometheus.Desc
}

// NewStoreCollector creates a collector over the configured stores
func NewStoreCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn) *StoreCollector {
	return &StoreCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,

		alertsByStatus: prometheus.NewDesc(
			"brandpulse_alerts",
			"Number of alerts by status",
			[]string{"status"}, nil,
		),
		mentions24h: prometheus.NewDesc(
			"brandpulse_archived_mentions_24h",
			"Mentions archived in the last 24 hours by sentiment label",
			[]string{"label"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.alertsByStatus
	ch <- c.mentions24h
}

// Collect implements prometheus.Collector
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.postgres != nil {
		c.collectAlerts(ctx, ch)
	}
	if c.clickhouse != nil {
		c.collectMentions(ctx, ch)
	}
}

func (c *StoreCollector) collectAlerts(ctx context.Context, ch chan<- prometheus.Metric) {
	type alertStat struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}

	var stats []alertStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT status, COUNT(*) as count
		FROM alerts
		GROUP BY status
	`)
	if err != nil {
		c.log.Errorw("Failed to collect alert stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(c.alertsByStatus, prometheus.GaugeValue, float64(stat.Count), stat.Status)
	}
}

func (c *StoreCollector) collectMentions(ctx context.Context, ch chan<- prometheus.Metric) {
	var stats []struct {
		Label string `ch:"label"`
		Count uint64 `ch:"count"`
	}

	err := c.clickhouse.Select(ctx, &stats, `
		SELECT label, count() AS count
		FROM brand_mentions
		WHERE collected_at > now() - INTERVAL 1 DAY
		GROUP BY label
	`)
	if err != nil {
		c.log.Errorw("Failed to collect mention stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(c.mentions24h, prometheus.GaugeValue, float64(stat.Count), stat.Label)
	}
}
