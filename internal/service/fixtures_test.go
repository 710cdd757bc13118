package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"evently-backend/internal/domain"
	"evently-backend/internal/mail"
	"evently-backend/internal/repository"
	"evently-backend/internal/repository/memory"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fakeGateway struct {
	mu   sync.Mutex
	err  error
	id   string
	sent []mail.Message
}

func (g *fakeGateway) Send(ctx context.Context, msg mail.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, msg)
	if g.err != nil {
		return "", g.err
	}
	if g.id == "" {
		return "msg-1", nil
	}
	return g.id, nil
}

func failingGateway() *fakeGateway {
	return &fakeGateway{err: errors.New("smtp: connection refused")}
}

func seedUser(t *testing.T, store *repository.Store, id, email, name string) {
	t.Helper()
	require.NoError(t, store.UserRepository.Create(context.Background(), &domain.User{ID: id, Email: email, Name: name}))
}

func seedOrg(t *testing.T, store *repository.Store, id, name string) {
	t.Helper()
	require.NoError(t, store.OrganizationRepository.Create(context.Background(), &domain.Organization{ID: id, Name: name}))
}

func seedMember(t *testing.T, store *repository.Store, userID, orgID string, role domain.MemberRole) {
	t.Helper()
	require.NoError(t, store.MembershipRepository.Add(context.Background(), &domain.Membership{UserID: userID, OrganizationID: orgID, Role: role}))
}

func seedEvent(t *testing.T, store *repository.Store, e domain.Event) *domain.Event {
	t.Helper()
	if e.StartDateTime.IsZero() {
		e.StartDateTime = testNow.Add(48 * time.Hour)
	}
	if e.Title == "" {
		e.Title = "Go Meetup"
	}
	require.NoError(t, store.EventRepository.Create(context.Background(), &e))
	return &e
}

func int32Ptr(v int32) *int32 { return &v }

func strPtr(v string) *string { return &v }

func newTestStore() *repository.Store {
	return memory.NewStore()
}
