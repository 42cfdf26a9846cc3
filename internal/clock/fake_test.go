package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fired := 0
	c.AfterFunc(5*time.Second, func() { fired++ })

	c.Advance(4 * time.Second)
	if fired != 0 {
		t.Fatalf("timer fired early")
	}
	c.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("expected one fire, got %d", fired)
	}
	c.Advance(time.Minute)
	if fired != 1 {
		t.Fatalf("one-shot timer fired again")
	}
}

func TestFakeStopPreventsFire(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatalf("expected first Stop to report true")
	}
	if tm.Stop() {
		t.Fatalf("expected second Stop to report false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Fatalf("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
}

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	var order []int
	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	c.Advance(10 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestWaitForTimers(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	go c.AfterFunc(time.Second, func() {})
	c.WaitForTimers(1)
	if c.Pending() != 1 {
		t.Fatalf("expected one pending timer")
	}
}
