package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/models"
)

func TestMemoryBookingRepository(t *testing.T) {
	runBookingStoreTests(t, NewMemoryBookingRepository())
}

func TestMemoryBookingRepository_ConcurrentCreate(t *testing.T) {
	repo := NewMemoryBookingRepository()
	b := newTestBooking()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repo.Create(context.Background(), b)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	assert.Equal(t, 1, repo.Count())
}

func TestMemoryBookingRepository_FailNext(t *testing.T) {
	repo := NewMemoryBookingRepository()
	outage := errors.New("connection refused")
	repo.FailNext(outage)

	_, _, err := repo.Create(context.Background(), newTestBooking())
	assert.ErrorIs(t, err, outage)
	assert.Equal(t, 0, repo.Count())

	_, created, err := repo.Create(context.Background(), newTestBooking())
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMemoryBookingRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryBookingRepository()
	stored, _, err := repo.Create(context.Background(), newTestBooking())
	require.NoError(t, err)

	stored.Status = models.BookingFailed
	stored.Tickets[0].Quantity = 99

	got, err := repo.GetByID(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, got.Status)
	assert.Equal(t, 2, got.Tickets[0].Quantity)
}

func TestMemoryBookingRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := repo.Create(ctx, newTestBooking())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, repo.Count())
}
