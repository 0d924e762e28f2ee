package resilience

import (
	"errors"
	"testing"
	"time"
)

var errFetch = errors.New("legacy api unavailable")

func TestBreakerClosedAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errFetch })
	}

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errFetch })
	}

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen while open, got %v", err)
	}

	now = now.Add(2 * time.Second)

	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("expected half-open to allow one call, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called in half-open")
	}

	// A half-open success closes the circuit again.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected closed circuit, got %v", err)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errFetch })
	}
	now = now.Add(2 * time.Second)

	_ = b.Execute(func() error { return errFetch })

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	_ = b.Execute(func() error { return errFetch })
	_ = b.Execute(func() error { return errFetch })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errFetch })
	_ = b.Execute(func() error { return errFetch })

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected circuit still closed, got %v", err)
	}
}
