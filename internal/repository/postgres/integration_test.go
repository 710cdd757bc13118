//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
	"evently-backend/internal/repository/postgres"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/postgres/
func openIntegrationStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping postgres integration test - TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(20)

	require.NoError(t, db.Ping())
	require.NoError(t, postgres.Migrate(db, "up"))
	return postgres.NewStore(db)
}

func seedIntegrationEvent(t *testing.T, store *repository.Store, max *int32, users int) (string, []string) {
	t.Helper()
	ctx := context.Background()

	eventID := uuid.NewString()
	require.NoError(t, store.EventRepository.Create(ctx, &domain.Event{
		ID: eventID, Title: "Load test", StartDateTime: time.Now().Add(24 * time.Hour), MaxAttendees: max, IsFree: true,
	}))

	userIDs := make([]string, users)
	for i := range userIDs {
		userIDs[i] = uuid.NewString()
		require.NoError(t, store.UserRepository.Create(ctx, &domain.User{
			ID: userIDs[i], Email: fmt.Sprintf("%s@example.com", userIDs[i]), Name: fmt.Sprintf("User %d", i),
		}))
	}
	return eventID, userIDs
}

func TestIntegration_ConcurrentRegisterRespectsCapacity(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()
	max := int32(5)
	eventID, userIDs := seedIntegrationEvent(t, store, &max, 40)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, full int
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			err := store.ParticipationRepository.Register(ctx, &domain.Participation{
				EventID: eventID, UserID: userID, RegisteredAt: time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrCapacityExceeded):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(userID)
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 35, full)

	event, err := store.EventRepository.GetByID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), event.AttendeeCount)

	counts, err := store.ParticipationRepository.CountByStatus(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), counts[domain.ParticipationStatusRegistered])
}

func TestIntegration_SameUserRegistersOnce(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()
	eventID, userIDs := seedIntegrationEvent(t, store, nil, 1)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.ParticipationRepository.Register(ctx, &domain.Participation{
				EventID: eventID, UserID: userIDs[0], RegisteredAt: time.Now().UTC(),
			})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	}
	assert.Equal(t, 1, succeeded)

	event, err := store.EventRepository.GetByID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), event.AttendeeCount)
}

func TestIntegration_PaymentRefIsSingleUse(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()
	eventID, userIDs := seedIntegrationEvent(t, store, nil, 2)
	ref := "pi_" + uuid.NewString()

	require.NoError(t, store.ParticipationRepository.Register(ctx, &domain.Participation{
		EventID: eventID, UserID: userIDs[0], PaymentRef: &ref, IsPaid: true, RegisteredAt: time.Now().UTC(),
	}))
	err := store.ParticipationRepository.Register(ctx, &domain.Participation{
		EventID: eventID, UserID: userIDs[1], PaymentRef: &ref, IsPaid: true, RegisteredAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrPaymentAlreadyUsed)

	event, err := store.EventRepository.GetByID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), event.AttendeeCount, "the rejected join released its seat")
}

func TestIntegration_ListByUserFilters(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	upcomingEvent, userIDs := seedIntegrationEvent(t, store, nil, 1)
	pastEvent := uuid.NewString()
	require.NoError(t, store.EventRepository.Create(ctx, &domain.Event{
		ID: pastEvent, Title: "Yesterday", StartDateTime: now.Add(-24 * time.Hour), IsFree: true,
	}))
	for _, eventID := range []string{upcomingEvent, pastEvent} {
		require.NoError(t, store.ParticipationRepository.Register(ctx, &domain.Participation{
			EventID: eventID, UserID: userIDs[0], RegisteredAt: now,
		}))
	}

	all, err := store.ParticipationRepository.ListByUser(ctx, userIDs[0], domain.ParticipationFilter{}, now)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, upcomingEvent, all[0].EventID)
	assert.Equal(t, "Yesterday", all[1].EventTitle)

	past := false
	registered := domain.ParticipationStatusRegistered
	filtered, err := store.ParticipationRepository.ListByUser(ctx, userIDs[0],
		domain.ParticipationFilter{Status: &registered, Upcoming: &past}, now)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, pastEvent, filtered[0].EventID)
}
