package metrics

import (
	"time"

	"reel-clipper/internal/catalog"
	"reel-clipper/internal/logging"
)

// StatsProvider reports catalog usage. catalog.Store implements it.
type StatsProvider interface {
	Stats() catalog.Stats
}

// Collector periodically copies catalog usage into gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop and records one final sample.
func (c *Collector) Stop() {
	close(c.stopChan)
	c.collect()
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.Stats()

	CatalogClips.WithLabelValues("total").Set(float64(stats.Clips))
	CatalogClips.WithLabelValues("used").Set(float64(stats.Used))
	CatalogClips.WithLabelValues("leased").Set(float64(stats.Leased))
	CatalogSources.Set(float64(stats.Sources))

	logging.Debug("Metrics collected: clips=%d, used=%d, leased=%d",
		stats.Clips, stats.Used, stats.Leased)
}
