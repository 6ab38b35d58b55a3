package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/wafbroker/internal/core/domain"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driven"
	"github.com/custodia-labs/wafbroker/internal/core/ports/driving"
)

// DefaultStatusSchedule runs the protection check once a day.
const DefaultStatusSchedule = "@daily"

const statusLockName = "status-check"

// StatusMonitor periodically recomputes and persists the protection status.
//
// For multi-instance deployments, configure a DistributedLock so only one
// instance calls the remote services per cycle.
type StatusMonitor struct {
	protection driving.ProtectionService
	lock       driven.DistributedLock
	logger     *slog.Logger
	schedule   string
	lockTTL    time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// StatusMonitorConfig holds configuration for the status monitor.
type StatusMonitorConfig struct {
	Protection driving.ProtectionService
	Lock       driven.DistributedLock // Optional: skip cycles another instance is running
	Logger     *slog.Logger
	Schedule   string        // Cron expression or descriptor (default: @daily)
	LockTTL    time.Duration // TTL for the distributed lock (default: 5m)
}

// NewStatusMonitor creates a new status monitor.
func NewStatusMonitor(cfg StatusMonitorConfig) (*StatusMonitor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultStatusSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid status schedule %q: %w", schedule, err)
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 5 * time.Minute
	}

	return &StatusMonitor{
		protection: cfg.Protection,
		lock:       cfg.Lock,
		logger:     logger.With("component", "status_monitor"),
		schedule:   schedule,
		lockTTL:    lockTTL,
	}, nil
}

// Start schedules the check. It stops when ctx is cancelled or Stop is called.
func (m *StatusMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.schedule, func() { m.CheckNow(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule status check: %w", err)
	}
	m.cron.Start()
	m.running = true

	m.logger.Info("status monitor started", "schedule", m.schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop stops the monitor and waits for a running check to finish.
func (m *StatusMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil && m.running {
		<-m.cron.Stop().Done()
		m.running = false
		m.logger.Info("status monitor stopped")
	}
}

// IsRunning returns true if the monitor is scheduled.
func (m *StatusMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// NextRun returns the next scheduled check time.
func (m *StatusMonitor) NextRun() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron == nil {
		return time.Time{}, false
	}
	entries := m.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0].Next, true
}

// CheckNow runs one check. It reports false when the cycle was skipped
// because another instance holds the lock or the lock backend failed.
func (m *StatusMonitor) CheckNow(ctx context.Context) (*domain.ProtectionStatus, bool) {
	if m.lock != nil {
		acquired, err := m.lock.Acquire(ctx, statusLockName, m.lockTTL)
		if err != nil {
			m.logger.Warn("failed to acquire status lock", "error", err)
			return nil, false
		}
		if !acquired {
			m.logger.Debug("status lock held by another instance, skipping cycle")
			return nil, false
		}
		defer func() {
			if err := m.lock.Release(ctx, statusLockName); err != nil {
				m.logger.Warn("failed to release status lock", "error", err)
			}
		}()
	}

	status := m.protection.ProtectionStatus(ctx)
	if status.Status == domain.StateError {
		m.logger.Error("protection status check failed", "message", status.Message)
	} else {
		m.logger.Info("protection status checked", "status", string(status.Status))
	}
	return status, true
}
