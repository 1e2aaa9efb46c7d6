package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dbPoolConnsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "pool_connections"),
		"Number of database connections by state",
		[]string{"state"}, nil,
	)
	dbPoolAcquiresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "pool_acquires_total"),
		"Cumulative count of successful connection acquires",
		nil, nil,
	)
	dbPoolEmptyAcquiresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "db", "pool_empty_acquires_total"),
		"Cumulative count of acquires that waited for a connection",
		nil, nil,
	)
)

// DBPoolCollector exposes pgxpool statistics at scrape time.
type DBPoolCollector struct {
	pool *pgxpool.Pool
}

// NewDBPoolCollector creates a collector for pool.
func NewDBPoolCollector(pool *pgxpool.Pool) *DBPoolCollector {
	return &DBPoolCollector{pool: pool}
}

// Describe implements prometheus.Collector.
func (c *DBPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dbPoolConnsDesc
	ch <- dbPoolAcquiresDesc
	ch <- dbPoolEmptyAcquiresDesc
}

// Collect implements prometheus.Collector.
func (c *DBPoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pool.Stat()

	for state, v := range map[string]int32{
		"in_use": stats.AcquiredConns(),
		"idle":   stats.IdleConns(),
		"max":    stats.MaxConns(),
		"total":  stats.TotalConns(),
	} {
		ch <- prometheus.MustNewConstMetric(dbPoolConnsDesc, prometheus.GaugeValue, float64(v), state)
	}

	ch <- prometheus.MustNewConstMetric(dbPoolAcquiresDesc, prometheus.CounterValue, float64(stats.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(dbPoolEmptyAcquiresDesc, prometheus.CounterValue, float64(stats.EmptyAcquireCount()))
}
