package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name   string
	titles []string
	err    error
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testNotifier(events []string, senders ...Sender) *Notifier {
	return NewNotifier(senders, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotify_EventFilter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := testNotifier([]string{EventBreakerTrip}, s)

	require.NoError(t, n.Notify(context.Background(), EventFill, "fill", "ignored"))
	require.NoError(t, n.Notify(context.Background(), EventBreakerTrip, "trip", "sent"))

	assert.Equal(t, []string{"trip"}, s.titles)
}

func TestNotify_EmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := testNotifier(nil, s)

	require.NoError(t, n.Notify(context.Background(), EventFill, "fill", "sent"))
	require.NoError(t, n.Notify(context.Background(), EventDailySummary, "summary", "sent"))

	assert.Len(t, s.titles, 2)
}

func TestNotifyAll_BypassesFilter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := testNotifier([]string{EventBreakerTrip}, s)

	require.NoError(t, n.NotifyAll(context.Background(), "anything", "sent"))
	assert.Equal(t, []string{"anything"}, s.titles)
}

func TestNotify_OneSenderFailingDoesNotStopOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := testNotifier(nil, bad, good)

	err := n.Notify(context.Background(), EventFill, "fill", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, []string{"fill"}, good.titles)
}

func TestNotify_NoSendersIsNoop(t *testing.T) {
	n := testNotifier(nil)
	assert.NoError(t, n.Notify(context.Background(), EventFill, "fill", "msg"))
}
