package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/retailpulse/retailpulse-go/internal/logging"
)

// ResourceOptimizer sizes the worker pool used for batch analysis. Grid
// search parameter fitting is CPU bound, so the pool tracks available cores
// and backs off when the host is already loaded.
type ResourceOptimizer struct {
	mu                 sync.RWMutex
	cpuCores           int
	memoryGB           float64
	currentCPUUsage    float64
	currentMemoryUsage float64
	concurrency        OptimalConcurrency
	logger             logging.Logger
}

// OptimalConcurrency holds the calculated concurrency limits for one batch.
type OptimalConcurrency struct {
	MaxWorkers            int     `json:"max_workers"`
	MaxConcurrentProducts int     `json:"max_concurrent_products"`
	MemoryThreshold       float64 `json:"memory_threshold"`
	CPUThreshold          float64 `json:"cpu_threshold"`
}

// ResourceOptimizerConfig bounds the calculated pool size.
type ResourceOptimizerConfig struct {
	MinWorkers      int
	MaxWorkers      int
	CPUThreshold    float64
	MemoryThreshold float64
}

// NewResourceOptimizer probes the host and calculates initial limits.
func NewResourceOptimizer(config ResourceOptimizerConfig, logger logging.Logger) *ResourceOptimizer {
	if config.MinWorkers == 0 {
		config.MinWorkers = 1
	}
	if config.MaxWorkers == 0 {
		config.MaxWorkers = 16
	}
	if config.CPUThreshold == 0 {
		config.CPUThreshold = 80.0
	}
	if config.MemoryThreshold == 0 {
		config.MemoryThreshold = 85.0
	}

	ro := &ResourceOptimizer{
		cpuCores: runtime.NumCPU(),
		logger:   logger,
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		ro.memoryGB = float64(memInfo.Total) / (1024 * 1024 * 1024)
	} else {
		ro.logger.WithError(err).Warn("Could not read memory info, assuming 8GB")
		ro.memoryGB = 8.0
	}

	ro.Recalculate(config)

	ro.logger.WithFields(map[string]interface{}{
		"cpu_cores": ro.cpuCores,
		"memory_gb": ro.memoryGB,
	}).Info("Resource optimizer initialized")

	return ro
}

// Recalculate derives concurrency limits from core count, installed memory
// and the most recent usage sample.
func (ro *ResourceOptimizer) Recalculate(config ResourceOptimizerConfig) {
	ro.mu.Lock()
	defer ro.mu.Unlock()

	workers := ro.cpuCores
	if workers < config.MinWorkers {
		workers = config.MinWorkers
	}
	if workers > config.MaxWorkers {
		workers = config.MaxWorkers
	}

	memoryFactor := 1.0
	if ro.memoryGB < 4.0 {
		memoryFactor = 0.5
	} else if ro.memoryGB < 8.0 {
		memoryFactor = 0.75
	}

	loadFactor := 1.0
	if ro.currentCPUUsage > config.CPUThreshold {
		loadFactor = 0.7
	} else if ro.currentMemoryUsage > config.MemoryThreshold {
		loadFactor = 0.8
	}

	maxWorkers := int(float64(workers) * memoryFactor * loadFactor)
	if maxWorkers < config.MinWorkers {
		maxWorkers = config.MinWorkers
	}

	ro.concurrency = OptimalConcurrency{
		MaxWorkers:            maxWorkers,
		MaxConcurrentProducts: maxWorkers,
		MemoryThreshold:       config.MemoryThreshold,
		CPUThreshold:          config.CPUThreshold,
	}

	ro.logger.WithFields(map[string]interface{}{
		"max_workers": maxWorkers,
	}).Debug("Calculated worker pool size")
}

// UpdateSystemMetrics samples current CPU and memory usage. Sampling blocks
// for about a second; callers run it off the request path.
func (ro *ResourceOptimizer) UpdateSystemMetrics(ctx context.Context) error {
	cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(cpuPercent) > 0 {
		ro.mu.Lock()
		ro.currentCPUUsage = cpuPercent[0]
		ro.mu.Unlock()
	}

	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get memory usage: %w", err)
	}
	ro.mu.Lock()
	ro.currentMemoryUsage = memInfo.UsedPercent
	ro.mu.Unlock()

	return nil
}

// GetOptimalConcurrency returns the current limits.
func (ro *ResourceOptimizer) GetOptimalConcurrency() OptimalConcurrency {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	return ro.concurrency
}

// Workers returns the current worker pool size.
func (ro *ResourceOptimizer) Workers() int {
	ro.mu.RLock()
	defer ro.mu.RUnlock()
	return ro.concurrency.MaxWorkers
}

// GetSystemInfo reports the state behind the current limits, for health and
// diagnostics endpoints.
func (ro *ResourceOptimizer) GetSystemInfo() map[string]interface{} {
	ro.mu.RLock()
	defer ro.mu.RUnlock()

	return map[string]interface{}{
		"cpu_cores":      ro.cpuCores,
		"memory_gb":      ro.memoryGB,
		"current_cpu":    ro.currentCPUUsage,
		"current_memory": ro.currentMemoryUsage,
		"goroutines":     runtime.NumGoroutine(),
		"max_workers":    ro.concurrency.MaxWorkers,
	}
}
