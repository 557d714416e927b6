package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestFallbackGroup_PrimarySucceeds(t *testing.T) {
	fg := NewFallbackGroup("primary-value", "primary", FallbackConfig{})
	fg.AddFallback("backup", "backup-value")

	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "primary-value" {
		t.Fatalf("result = %q, want primary-value", got)
	}
}

func TestFallbackGroup_FailsOverToBackup(t *testing.T) {
	fg := NewFallbackGroup("primary-value", "primary", FallbackConfig{})
	fg.AddFallback("backup", "backup-value")

	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "primary-value" {
			return "", errBackend
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "backup-value" {
		t.Fatalf("result = %q, want backup-value", got)
	}
}

func TestFallbackGroup_AllFailed(t *testing.T) {
	fg := NewFallbackGroup(1, "primary", FallbackConfig{})
	fg.AddFallback("backup", 2)

	_, err := ExecuteWithResult(fg, func(int) (string, error) {
		return "", errBackend
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("error = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errBackend) {
		t.Fatalf("error = %v, want the backend error still matchable", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	fg := NewFallbackGroup("primary-value", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  1,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("backup", "backup-value")

	// Trip the primary's breaker.
	primaryCalls := 0
	run := func(v string) (string, error) {
		if v == "primary-value" {
			primaryCalls++
			return "", errBackend
		}
		return v, nil
	}
	if _, err := ExecuteWithResult(fg, run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ExecuteWithResult(fg, run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primaryCalls != 1 {
		t.Fatalf("primary called %d times, want 1: open breaker must be skipped", primaryCalls)
	}
}

func TestFallbackGroup_CallerFaultShortCircuits(t *testing.T) {
	callerFault := errors.New("bad input")
	fg := NewFallbackGroup("primary-value", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			Classify: func(err error) bool {
				return !errors.Is(err, callerFault)
			},
		},
	})
	backupCalled := false
	fg.AddFallback("backup", "backup-value")

	_, err := ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "backup-value" {
			backupCalled = true
		}
		return "", callerFault
	})
	if !errors.Is(err, callerFault) {
		t.Fatalf("error = %v, want the caller fault unwrapped", err)
	}
	if errors.Is(err, ErrAllFailed) {
		t.Fatal("caller fault must not be wrapped in ErrAllFailed")
	}
	if backupCalled {
		t.Fatal("caller fault must not trigger failover")
	}
}

func TestFallbackGroup_Execute(t *testing.T) {
	fg := NewFallbackGroup(1, "primary", FallbackConfig{})
	fg.AddFallback("backup", 2)
	if fg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", fg.Len())
	}

	var used []int
	err := fg.Execute(func(v int) error {
		used = append(used, v)
		if v == 1 {
			return errBackend
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(used) != 2 || used[1] != 2 {
		t.Fatalf("call order = %v, want [1 2]", used)
	}
}
