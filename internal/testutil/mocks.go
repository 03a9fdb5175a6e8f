// Package testutil provides shared fakes for tests across the codebase.
// This follows the Go convention of a shared test utility package (like
// net/http/httptest).
package testutil

import (
	"context"
	"sync"
	"time"

	"zenexport/internal/domain"
)

// === Clock ===

// FakeClock implements clock.Clock and clock.Sleeper. Sleep never blocks:
// it records the requested duration and advances the clock by it.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration

	// SleepFn, when set, runs before the clock is advanced. A non-nil
	// error is returned from Sleep without advancing.
	SleepFn func(ctx context.Context, d time.Duration) error
}

// NewFakeClock returns a FakeClock set to now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now implements the interface method for testing.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleep implements the interface method for testing.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	if c.SleepFn != nil {
		if err := c.SleepFn(ctx, d); err != nil {
			return err
		}
	}
	c.Advance(d)
	return nil
}

// Sleeps returns the durations passed to Sleep, in call order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// === Exporter ===

// MockExporter implements schedule.Exporter for testing.
type MockExporter struct {
	ExportFn func(ctx context.Context, w domain.TimeWindow) (string, error)
	Windows  []domain.TimeWindow // collected windows for assertions
}

// ExportWindow implements the interface method for testing.
func (m *MockExporter) ExportWindow(ctx context.Context, w domain.TimeWindow) (string, error) {
	m.Windows = append(m.Windows, w)
	if m.ExportFn != nil {
		return m.ExportFn(ctx, w)
	}
	return "access_logs_" + w.StartString() + "-to-" + w.EndString() + ".json", nil
}

// === User directory / access log source ===

// MockUserResolver implements export.UserResolver for testing.
type MockUserResolver struct {
	ResolveFn func(ctx context.Context, roles []string) (*domain.Directory, error)
	Roles     [][]string
}

// ResolveUsers implements the interface method for testing.
func (m *MockUserResolver) ResolveUsers(ctx context.Context, roles []string) (*domain.Directory, error) {
	m.Roles = append(m.Roles, roles)
	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, roles)
	}
	return domain.NewDirectory(nil), nil
}

// MockAccessLogSource implements export.AccessLogSource for testing.
type MockAccessLogSource struct {
	FetchFn func(ctx context.Context, w domain.TimeWindow) ([]domain.AccessLog, error)
	Windows []domain.TimeWindow
}

// FetchAccessLogs implements the interface method for testing.
func (m *MockAccessLogSource) FetchAccessLogs(ctx context.Context, w domain.TimeWindow) ([]domain.AccessLog, error) {
	m.Windows = append(m.Windows, w)
	if m.FetchFn != nil {
		return m.FetchFn(ctx, w)
	}
	return nil, nil
}
