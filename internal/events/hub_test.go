package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(Event{Type: "job_done", JobID: 7})

	for _, ch := range []chan string{a, b} {
		msg := <-ch
		var e Event
		require.NoError(t, json.Unmarshal([]byte(msg), &e))
		require.Equal(t, "job_done", e.Type)
		require.EqualValues(t, 7, e.JobID)
		require.False(t, e.At.IsZero(), "publish stamps the event time")
	}
}

func TestPublishSkipsSlowSubscribers(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// more events than the channel buffers; publish must not block
	for i := 0; i < 50; i++ {
		h.Publish(Event{Type: "run_done", Count: i})
	}
	require.Len(t, ch, cap(ch), "overflow is dropped, not queued")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)

	_, open := <-ch
	require.False(t, open)

	// publishing after unsubscribe must not panic on the closed channel
	h.Publish(Event{Type: "job_done"})
}
