package cache

import (
	"errors"
	"testing"
	"time"
)

func TestGetOrCompute_ReusesWithinTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewWithClock(func() time.Time { return now })

	calls := 0
	compute := func() (any, error) {
		calls++
		return []int{calls}, nil
	}

	first, err := m.GetOrCompute("k", 30*time.Second, compute)
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(29 * time.Second)
	second, _ := m.GetOrCompute("k", 30*time.Second, compute)

	if calls != 1 {
		t.Fatalf("compute ran %d times, want 1", calls)
	}
	// Reference identity, not just equality.
	if &first.([]int)[0] != &second.([]int)[0] {
		t.Error("cached value is not the same instance")
	}
}

func TestGetOrCompute_RecomputesAfterTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewWithClock(func() time.Time { return now })

	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	_, _ = m.GetOrCompute("k", 30*time.Second, compute)
	now = now.Add(30 * time.Second)
	v, _ := m.GetOrCompute("k", 30*time.Second, compute)

	if calls != 2 {
		t.Fatalf("compute ran %d times, want 2", calls)
	}
	if v.(int) != 2 {
		t.Errorf("value = %v, want 2", v)
	}
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	m := New()
	boom := errors.New("boom")

	if _, err := m.GetOrCompute("k", time.Minute, func() (any, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	v, err := m.GetOrCompute("k", time.Minute, func() (any, error) {
		return "ok", nil
	})
	if err != nil || v.(string) != "ok" {
		t.Errorf("retry after error: v=%v err=%v", v, err)
	}
}

func TestInvalidate(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewWithClock(func() time.Time { return now })

	calls := 0
	compute := func() (any, error) { calls++; return calls, nil }

	_, _ = m.GetOrCompute("k", time.Hour, compute)
	m.Invalidate("k")
	_, _ = m.GetOrCompute("k", time.Hour, compute)

	if calls != 2 {
		t.Errorf("compute ran %d times, want 2 after Invalidate", calls)
	}
}

func TestFetch_Typed(t *testing.T) {
	m := New()
	got, err := Fetch(m, "nums", time.Minute, func() ([]string, error) {
		return []string{"a", "b"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("got = %v", got)
	}
}
