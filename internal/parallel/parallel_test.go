package parallel

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got, err := Map(context.Background(), items, 3, func(_ context.Context, n int) (string, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("n%d", n), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"n5", "n1", "n4", "n2", "n3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestMap_ReturnsFirstError(t *testing.T) {
	_, err := Map(context.Background(), []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, fmt.Errorf("boom %d", n)
		}
		return n, nil
	})
	if err == nil || err.Error() != "boom 2" {
		t.Errorf("expected boom 2, got %v", err)
	}
}

func TestMap_Empty(t *testing.T) {
	got, err := Map(context.Background(), nil, 4, func(_ context.Context, n int) (int, error) { return n, nil })
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty result, got %v %v", got, err)
	}
}

func TestMap_ConcurrencyLimit(t *testing.T) {
	var running, peak int64
	items := make([]int, 10)

	_, err := Map(context.Background(), items, 2, func(_ context.Context, _ int) (int, error) {
		cur := atomic.AddInt64(&running, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&running, -1)
		return 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency %d exceeded limit 2", peak)
	}
}

func TestCollect_KeepsEveryOutcome(t *testing.T) {
	results := Collect(context.Background(), []string{"ok", "fail", "ok"}, 0, func(_ context.Context, s string) (string, error) {
		if s == "fail" {
			return "", fmt.Errorf("simulated failure")
		}
		return s + "!", nil
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Value != "ok!" || results[0].Err != nil {
		t.Errorf("first result: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Error("second task should have failed")
	}
	if results[2].Value != "ok!" {
		t.Errorf("third result: %+v", results[2])
	}
}
