package client

import "context"

// streamTask is one live event stream: a cancel func for its context
// and a wait func that blocks until the stream's goroutine has fully
// wound down.
type streamTask struct {
	cancel context.CancelFunc
	wait   func()
}

// taskSet tracks the event streams belonging to the current screen.
// Streams are scoped to a screen: entering a room (or the room list)
// replaces the whole set, so at most one stream per concern is ever
// live.
type taskSet struct {
	tasks []streamTask
}

func (s *taskSet) track(cancel context.CancelFunc, wait func()) {
	s.tasks = append(s.tasks, streamTask{cancel: cancel, wait: wait})
}

// cancelAll stops every tracked stream and returns only after each one
// has terminated. Events drained while waiting belong to the screen
// being torn down and are discarded.
func (s *taskSet) cancelAll() {
	for _, t := range s.tasks {
		t.cancel()
	}
	for _, t := range s.tasks {
		t.wait()
	}
	s.tasks = nil
}

func (s *taskSet) active() int {
	return len(s.tasks)
}

// drained adapts a receive-only channel into a wait func: it consumes
// leftovers until the producer closes the channel.
func drained[T any](ch <-chan T) func() {
	return func() {
		for range ch {
		}
	}
}
