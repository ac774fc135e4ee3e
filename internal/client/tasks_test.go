package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStream mimics an event stream goroutine: it produces until its
// context is cancelled, then closes its channel.
func fakeStream(ctx context.Context) (<-chan int, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan int)
	go func() {
		defer close(ch)
		for i := 0; ; i++ {
			select {
			case ch <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, cancel
}

func TestCancelAllWaitsForStreams(t *testing.T) {
	var set taskSet
	finished := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		ch, cancel := fakeStream(context.Background())
		set.track(cancel, func() {
			for range ch {
			}
			finished <- struct{}{}
		})
	}
	require.Equal(t, 2, set.active())

	set.cancelAll()
	require.Equal(t, 0, set.active())

	// Both wait funcs must have run to completion before cancelAll
	// returned.
	for i := 0; i < 2; i++ {
		select {
		case <-finished:
		default:
			t.Fatal("cancelAll returned before a stream wound down")
		}
	}
}

func TestCancelAllOnEmptySet(t *testing.T) {
	var set taskSet
	set.cancelAll()
	require.Equal(t, 0, set.active())
}

func TestDrainedConsumesUntilClose(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	close(ch)

	done := make(chan struct{})
	go func() {
		drained(ch)()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drained did not return after channel close")
	}
}
