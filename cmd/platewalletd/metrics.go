// metrics.go - Metrics collection for the derivation daemon
package main

import (
	"fmt"
	"sync"
	"time"
)

// MetricsCollector manages daemon metrics
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	histograms map[string][]float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter increments a counter metric
func (mc *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[mc.makeKey(name, labels)]++
}

// RecordHistogram records a value in a histogram
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := mc.makeKey(name, labels)
	mc.histograms[key] = append(mc.histograms[key], value)

	// Keep only last 1000 values for memory efficiency
	if len(mc.histograms[key]) > 1000 {
		mc.histograms[key] = mc.histograms[key][len(mc.histograms[key])-1000:]
	}
}

// Summary returns a snapshot of all metrics
func (mc *MetricsCollector) Summary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := make(map[string]interface{})

	counters := make(map[string]int64, len(mc.counters))
	for key, value := range mc.counters {
		counters[key] = value
	}
	summary["counters"] = counters

	histograms := make(map[string]map[string]float64)
	for key, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{
			"count": float64(len(values)),
			"min":   values[0],
			"max":   values[0],
			"sum":   0,
		}
		for _, v := range values {
			if v < h["min"] {
				h["min"] = v
			}
			if v > h["max"] {
				h["max"] = v
			}
			h["sum"] += v
		}
		h["avg"] = h["sum"] / h["count"]
		histograms[key] = h
	}
	summary["histograms"] = histograms

	return summary
}

// makeKey creates a unique key for a metric name and labels
func (mc *MetricsCollector) makeKey(name string, labels map[string]string) string {
	key := name
	for k, v := range labels {
		key += fmt.Sprintf("_%s_%s", k, v)
	}
	return key
}

// Predefined metric names
const (
	MetricDerivationCount     = "derivation_count"
	MetricDeployCount         = "deploy_count"
	MetricRentalAffirmCount   = "rental_affirm_count"
	MetricProofGenerationTime = "proof_generation_time"
	MetricErrorCount          = "error_count"
)

// Convenience methods for common metrics

func (mc *MetricsCollector) RecordDerivation(rental bool) {
	kind := "standard"
	if rental {
		kind = "rental"
	}
	mc.IncrementCounter(MetricDerivationCount, map[string]string{"kind": kind})
	if rental {
		mc.IncrementCounter(MetricRentalAffirmCount, nil)
	}
}

func (mc *MetricsCollector) RecordProofGeneration(duration time.Duration) {
	mc.RecordHistogram(MetricProofGenerationTime, duration.Seconds(), nil)
}

// RecordDeploys sets the deploy counter to the factory's deployment total.
func (mc *MetricsCollector) RecordDeploys(count int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[MetricDeployCount] = int64(count)
}

func (mc *MetricsCollector) RecordError(errorType string) {
	mc.IncrementCounter(MetricErrorCount, map[string]string{"type": errorType})
}
