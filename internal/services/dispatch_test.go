package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/models"
	"event-checkout/internal/queue"
	"event-checkout/internal/repositories"
)

func TestInlineDispatcher_RunsInBackgroundAndDrainsOnClose(t *testing.T) {
	notifier := &recordingNotifier{release: make(chan struct{})}
	d := NewInlineDispatcher(notifier, time.Second, quietLogger())

	require.NoError(t, d.Dispatch(context.Background(), testBooking()))
	assert.Empty(t, notifier.notified(), "dispatch must not wait for the notification")

	close(notifier.release)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, []string{"b-1"}, notifier.notified())
}

func TestInlineDispatcher_SurvivesRequestCancellation(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewInlineDispatcher(notifier, time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(ctx, testBooking()))
	cancel()

	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, notifier.notified(), 1)
}

func TestInlineDispatcher_RejectsAfterClose(t *testing.T) {
	d := NewInlineDispatcher(&recordingNotifier{}, time.Second, quietLogger())
	require.NoError(t, d.Close(context.Background()))

	assert.Error(t, d.Dispatch(context.Background(), testBooking()))
}

func TestInlineDispatcher_CloseHonoursDeadline(t *testing.T) {
	notifier := &recordingNotifier{release: make(chan struct{})}
	defer close(notifier.release)
	d := NewInlineDispatcher(notifier, time.Minute, quietLogger())
	require.NoError(t, d.Dispatch(context.Background(), testBooking()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

type recordingPublisher struct {
	events []queue.BookingConfirmedEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestQueueDispatcher(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewQueueDispatcher(pub, quietLogger())

	require.NoError(t, d.Dispatch(context.Background(), testBooking()))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "b-1", pub.events[0].BookingID)
	assert.Equal(t, "order_1", pub.events[0].OrderID)

	require.NoError(t, d.Close(context.Background()))
	assert.True(t, pub.closed)
}

func TestQueueDispatcher_PublishError(t *testing.T) {
	d := NewQueueDispatcher(&recordingPublisher{err: errors.New("channel closed")}, quietLogger())
	assert.Error(t, d.Dispatch(context.Background(), testBooking()))
}

func TestNotificationWorker_Handle(t *testing.T) {
	store := repositories.NewMemoryBookingRepository()
	saved, _, err := store.Create(context.Background(), testBooking())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	w := NewNotificationWorker(store, notifier, quietLogger())

	require.NoError(t, w.Handle(context.Background(), queue.BookingConfirmedEvent{BookingID: saved.ID}))
	assert.Equal(t, []string{saved.ID}, notifier.notified())

	require.NoError(t, w.Handle(context.Background(), queue.BookingConfirmedEvent{BookingID: "missing"}))
	assert.Len(t, notifier.notified(), 1)
}

func TestNotificationWorker_NotifyErrorIsReturned(t *testing.T) {
	store := repositories.NewMemoryBookingRepository()
	saved, _, err := store.Create(context.Background(), testBooking())
	require.NoError(t, err)

	w := NewNotificationWorker(store, &recordingNotifier{err: errors.New("smtp down")}, quietLogger())

	err = w.Handle(context.Background(), queue.BookingConfirmedEvent{BookingID: saved.ID})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrBookingNotFound)
}
