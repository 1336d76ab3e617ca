package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/freightdispatch-backend/pkg/logger"
)

type fakeLock struct {
	held     map[string]bool
	released []string
}

func newFakeLock() *fakeLock { return &fakeLock{held: map[string]bool{}} }

func (f *fakeLock) Acquire(_ context.Context, job string) (bool, error) {
	if f.held[job] {
		return false, nil
	}
	f.held[job] = true
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, job string) error {
	delete(f.held, job)
	f.released = append(f.released, job)
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	registry := NewRegistry()
	for _, job := range jobs {
		if err := registry.Register("*/5 * * * *", job); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	lock := newFakeLock()
	service := newTestService(t, lock, success, failure)

	service.runCycle(context.Background())

	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
	if len(lock.released) != 2 {
		t.Fatalf("expected both locks released, got %v", lock.released)
	}
}

func TestServiceSkipsJobHeldElsewhere(t *testing.T) {
	held := &testJob{name: "geocode-backfill"}
	free := &testJob{name: "outbox-retention"}
	lock := newFakeLock()
	lock.held["geocode-backfill"] = true
	service := newTestService(t, lock, held, free)

	service.runCycle(context.Background())

	if held.runs != 0 {
		t.Fatalf("expected locked job to be skipped, ran %d", held.runs)
	}
	if free.runs != 1 {
		t.Fatalf("expected unlocked job to run once, ran %d", free.runs)
	}
	if !lock.held["geocode-backfill"] {
		t.Fatalf("lock owned by another worker must not be released")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})})
	if err == nil {
		t.Fatal("expected lock error")
	}
}
