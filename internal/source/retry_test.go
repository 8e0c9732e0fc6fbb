package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithRetryRetriesTransientErrors(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts mismatch: %d", attempts)
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	cause := errors.New("query is invalid")
	attempts := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		attempts++
		return fmt.Errorf("query swaps: %w", permanent(cause))
	})
	if attempts != 1 {
		t.Fatalf("attempts mismatch: %d", attempts)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if err.Error() != "query swaps: query is invalid" {
		t.Fatalf("message mismatch: %q", err.Error())
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		return errors.New("timeout")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 3 {
		t.Fatalf("attempts mismatch: %d", attempts)
	}
}

func TestRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{400: false, 403: false, 404: false, 408: true, 429: true, 500: true, 503: true} {
		if got := retryableStatus(code); got != want {
			t.Fatalf("status %d: got %v want %v", code, got, want)
		}
	}
}
