package httpclient

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func chunkTestClient(sleeps *[]time.Duration) *Client {
	return New("token", Config{
		BaseURL: "http://unused",
		Sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
	})
}

func TestProcessInChunks_PreservesOrder(t *testing.T) {
	var sleeps []time.Duration
	c := chunkTestClient(&sleeps)

	items := []int{1, 2, 3, 4, 5, 6, 7}
	results, err := ProcessInChunks(context.Background(), c, items,
		func(ctx context.Context, n int) (string, error) {
			return strconv.Itoa(n), nil
		},
		ChunkOptions{Size: 3},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"1", "2", "3", "4", "5", "6", "7"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result %d: expected %s, got %s", i, want[i], results[i])
		}
	}

	// Delays only between windows: 3 windows means 2 pauses.
	if len(sleeps) != 2 {
		t.Errorf("expected 2 inter-chunk delays, got %d", len(sleeps))
	}
}

func TestProcessInChunks_DropsFailedItems(t *testing.T) {
	var sleeps []time.Duration
	c := chunkTestClient(&sleeps)

	items := []int{1, 2, 3, 4}
	results, err := ProcessInChunks(context.Background(), c, items,
		func(ctx context.Context, n int) (int, error) {
			if n%2 == 0 {
				return 0, errors.New("boom")
			}
			return n * 10, nil
		},
		ChunkOptions{Size: 2},
	)
	if err != nil {
		t.Fatalf("one item's failure must not abort the batch: %v", err)
	}

	want := []int{10, 30}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %v", len(want), results)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result %d: expected %d, got %d", i, want[i], results[i])
		}
	}
}

func TestProcessInChunks_Empty(t *testing.T) {
	var sleeps []time.Duration
	c := chunkTestClient(&sleeps)

	results, err := ProcessInChunks(context.Background(), c, nil,
		func(ctx context.Context, n int) (int, error) { return n, nil },
		ChunkOptions{},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
	if len(sleeps) != 0 {
		t.Error("no delays expected for empty input")
	}
}
