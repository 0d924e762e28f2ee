package resilience

import (
	"sync"
	"testing"
	"time"
)

// fakeClock drives a Pacer deterministically: sleeping advances the clock.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
}

func newTestPacer(interval time.Duration) (*Pacer, *fakeClock) {
	clock := newFakeClock()
	p := NewPacer(interval)
	p.now = clock.Now
	p.sleep = clock.Sleep
	return p, clock
}

func TestPacerFirstCallDoesNotWait(t *testing.T) {
	p, clock := newTestPacer(500 * time.Millisecond)
	p.Wait()
	if len(clock.slept) != 0 {
		t.Fatalf("first call should not sleep, slept %v", clock.slept)
	}
}

func TestPacerEnforcesFloorOnBackToBackCalls(t *testing.T) {
	p, clock := newTestPacer(500 * time.Millisecond)

	p.Wait()
	p.Wait()

	if len(clock.slept) != 1 {
		t.Fatalf("second call should sleep once, slept %v", clock.slept)
	}
	if clock.slept[0] != 500*time.Millisecond {
		t.Errorf("expected 500ms wait, got %v", clock.slept[0])
	}
}

func TestPacerWaitsOnlyRemainder(t *testing.T) {
	p, clock := newTestPacer(500 * time.Millisecond)

	p.Wait()
	clock.Sleep(300 * time.Millisecond) // simulated work between requests
	clock.slept = nil

	p.Wait()
	if len(clock.slept) != 1 || clock.slept[0] != 200*time.Millisecond {
		t.Fatalf("expected 200ms remainder, slept %v", clock.slept)
	}
}

func TestPacerNoWaitAfterLongGap(t *testing.T) {
	p, clock := newTestPacer(500 * time.Millisecond)

	p.Wait()
	clock.Sleep(2 * time.Second)
	clock.slept = nil

	p.Wait()
	if len(clock.slept) != 0 {
		t.Fatalf("gap exceeded floor, should not sleep, slept %v", clock.slept)
	}
}

func TestPacerZeroIntervalDisablesPacing(t *testing.T) {
	p, clock := newTestPacer(0)
	for i := 0; i < 5; i++ {
		p.Wait()
	}
	if len(clock.slept) != 0 {
		t.Fatalf("zero interval should never sleep, slept %v", clock.slept)
	}
}
