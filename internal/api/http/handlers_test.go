package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evently-backend/internal/domain"
	"evently-backend/internal/mail"
	"evently-backend/internal/repository"
	"evently-backend/internal/repository/memory"
	"evently-backend/internal/scheduler"
	"evently-backend/internal/security"
	"evently-backend/internal/service"
)

const (
	jwtSecret = "0123456789abcdef0123456789abcdef"
	hostOrgID = "5b0c8f0e-4d7a-4a8e-9a53-3f3c2f6b1a01"
	guestOrg  = "9e7d2f61-0c35-4c43-8d0a-7a2b4f5e6c02"
)

var now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

type apiFixture struct {
	store  *repository.Store
	tokens security.TokenManager
	router http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clock := func() time.Time { return now }

	require.NoError(t, store.OrganizationRepository.Create(ctx, &domain.Organization{ID: hostOrgID, Name: "Host"}))
	require.NoError(t, store.OrganizationRepository.Create(ctx, &domain.Organization{ID: guestOrg, Name: "Guest"}))
	for _, u := range []string{"owner", "alice", "bob"} {
		require.NoError(t, store.UserRepository.Create(ctx, &domain.User{ID: u, Email: u + "@example.com", Name: u}))
	}
	require.NoError(t, store.MembershipRepository.Add(ctx, &domain.Membership{UserID: "owner", OrganizationID: hostOrgID, Role: domain.MemberRoleOwner}))
	require.NoError(t, store.EventRepository.Create(ctx, &domain.Event{
		ID: "evt", Title: "Meetup", OrganizationID: strPtr(hostOrgID), StartDateTime: now.Add(24 * time.Hour),
		MaxAttendees: int32Ptr(1), IsFree: true,
	}))

	tokens := security.NewTokenManager(jwtSecret, time.Hour)
	delivery := service.NewInviteDelivery(store, mail.NewLogGateway(), "https://evently.app", clock)
	router := NewAPIRouter(tokens, APIHandlers{
		Participations: NewParticipationHandler(service.NewParticipationService(store, nil, clock)),
		Invites:        NewInviteHandler(service.NewInviteService(store, delivery, service.InviteSettings{Expiry: 7 * 24 * time.Hour, MaxAttempts: 3}, clock)),
		Jobs:           NewJobHandler(service.NewJobService(store, 3, clock)),
	})
	return &apiFixture{store: store, tokens: tokens, router: router}
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := f.tokens.GenerateAccessToken(userID, userID+"@example.com")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func strPtr(v string) *string { return &v }

func int32Ptr(v int32) *int32 { return &v }

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJoinAndCancelFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/events/evt/participations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/events/evt/participations", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	participationID := decodeBody(t, rec)["id"].(string)

	rec = f.do(t, http.MethodPost, "/api/events/evt/participations", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Already registered for this event", decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/api/events/evt/participations", "bob", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Event is at full capacity", decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/api/events/evt/participants", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])
	assert.NotContains(t, rec.Body.String(), "alice@example.com")

	rec = f.do(t, http.MethodGet, "/api/events/evt/participation", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["registered"])

	rec = f.do(t, http.MethodDelete, "/api/participations/"+participationID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/participations/"+participationID+"/attend", "owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ATTENDED", decodeBody(t, rec)["status"])

	rec = f.do(t, http.MethodDelete, "/api/participations/"+participationID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decodeBody(t, rec)["status"])

	rec = f.do(t, http.MethodDelete, "/api/participations/"+participationID, "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJoin_BadRequests(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/events/missing/participations", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found", decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/api/events/evt/participations", "alice", map[string]string{"organization_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/events/evt/participations", "alice", map[string]string{"organization_id": guestOrg})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.ErrNotOrgMember.Reason, decodeBody(t, rec)["error"])
}

func TestInviteFlow(t *testing.T) {
	f := newAPIFixture(t)
	path := "/api/organizations/" + hostOrgID + "/invites"

	rec := f.do(t, http.MethodPost, path, "owner", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "email")

	rec = f.do(t, http.MethodPost, path, "owner", map[string]string{"email": "bob@example.com", "role": "OWNER"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, path, "alice", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, path, "owner", map[string]string{"email": "bob@example.com", "role": "ADMIN"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inviteID := decodeBody(t, rec)["invite_id"].(string)

	invite, err := f.store.InviteRepository.GetByID(context.Background(), inviteID)
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/api/invites/"+invite.Token+"/accept", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "token belongs to bob's address")

	rec = f.do(t, http.MethodPost, "/api/invites/"+invite.Token+"/accept", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ADMIN", decodeBody(t, rec)["role"])

	rec = f.do(t, http.MethodPost, "/api/invites/"+inviteID+"/resend", "owner", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListParticipants_ContactDetailsForHostsOnly(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.store.EventRepository.Create(context.Background(), &domain.Event{
		ID: "paid", Title: "Workshop", OrganizationID: strPtr(hostOrgID), StartDateTime: now.Add(24 * time.Hour),
	}))

	rec := f.do(t, http.MethodPost, "/api/events/paid/participations", "alice", map[string]string{"payment_ref": "pi_alice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	participantRow := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rows := decodeBody(t, rec)["participants"].([]interface{})
		require.Len(t, rows, 1)
		return rows[0].(map[string]interface{})
	}

	anonymous := participantRow(f.do(t, http.MethodGet, "/api/events/paid/participants", "", nil))
	assert.Equal(t, "alice", anonymous["user_name"])
	assert.NotContains(t, anonymous, "user_email")
	assert.NotContains(t, anonymous, "payment_ref")

	outsider := participantRow(f.do(t, http.MethodGet, "/api/events/paid/participants", "bob", nil))
	assert.NotContains(t, outsider, "user_email")
	assert.NotContains(t, outsider, "payment_ref")

	host := participantRow(f.do(t, http.MethodGet, "/api/events/paid/participants", "owner", nil))
	assert.Equal(t, "alice@example.com", host["user_email"])
	assert.Equal(t, "pi_alice", host["payment_ref"])

	req := httptest.NewRequest(http.MethodGet, "/api/events/paid/participants", nil)
	req.Header.Set("Authorization", "Bearer forged")
	bad := httptest.NewRecorder()
	f.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	rec = f.do(t, http.MethodPost, "/api/events/evt/participations", "bob", map[string]string{"payment_ref": "pi_alice"})
	require.Equal(t, http.StatusCreated, rec.Code, "free events ignore the reference")
}

func TestParticipationHistory(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.MembershipRepository.Add(ctx, &domain.Membership{UserID: "alice", OrganizationID: guestOrg, Role: domain.MemberRoleMember}))
	require.NoError(t, f.store.EventRepository.Create(ctx, &domain.Event{
		ID: "past", Title: "Last week", OrganizationID: strPtr(hostOrgID), StartDateTime: now.Add(-7 * 24 * time.Hour), IsFree: true,
	}))
	require.NoError(t, f.store.ParticipationRepository.Register(ctx, &domain.Participation{
		EventID: "past", UserID: "alice", OrganizationID: strPtr(guestOrg), RegisteredAt: now.Add(-8 * 24 * time.Hour),
	}))

	rec := f.do(t, http.MethodPost, "/api/events/evt/participations", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/me/participations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/me/participations", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["count"])
	first := body["participations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "evt", first["event_id"])
	assert.Equal(t, "Meetup", first["event_title"])

	rec = f.do(t, http.MethodGet, "/api/me/participations?upcoming=false", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/api/me/participations?status=CANCELLED", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/api/me/participations?status=GONE", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/me/participations?upcoming=soon", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/organizations/"+guestOrg+"/participations", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/api/organizations/"+guestOrg+"/participations", "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScheduleEventJob(t *testing.T) {
	f := newAPIFixture(t)
	at := now.Add(12 * time.Hour)

	rec := f.do(t, http.MethodPost, "/api/events/evt/jobs", "owner", map[string]interface{}{
		"type":         "SEND_EVENT_REMINDER",
		"scheduled_at": at,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := decodeBody(t, rec)["job_id"].(string)

	job, err := f.store.JobRepository.GetByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeSendEventReminder, job.Type)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.EqualValues(t, 3, job.MaxAttempts)
	assert.True(t, job.ScheduledAt.Equal(at))
	assert.JSONEq(t, `{"eventId":"evt"}`, string(job.Payload))

	rec = f.do(t, http.MethodPost, "/api/events/evt/jobs", "alice", map[string]string{"type": "GENERATE_REPORT"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.ErrNotEventManager.Reason, decodeBody(t, rec)["error"])

	rec = f.do(t, http.MethodPost, "/api/events/evt/jobs", "owner", map[string]string{"type": "CLEANUP_DATA"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/events/evt/jobs", "owner", map[string]interface{}{
		"type":    "GENERATE_REPORT",
		"payload": map[string]string{"eventId": "someone-elses"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "payload is derived from the path")

	rec = f.do(t, http.MethodPost, "/api/events/missing/jobs", "owner", map[string]string{"type": "GENERATE_REPORT"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/events/evt/jobs", "", map[string]string{"type": "GENERATE_REPORT"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/jobs", "owner", map[string]string{"type": "CLEANUP_DATA"})
	assert.NotEqual(t, http.StatusAccepted, rec.Code)

	due, err := f.store.JobRepository.ListDue(context.Background(), at, 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

type fakeTriggerer struct {
	tasks []scheduler.Task
	err   error
}

func (f *fakeTriggerer) Trigger(ctx context.Context, task scheduler.Task) error {
	f.tasks = append(f.tasks, task)
	return f.err
}

func postTrigger(t *testing.T, router http.Handler, body string, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/trigger", bytes.NewBufferString(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTriggerHandler(t *testing.T) {
	triggerer := &fakeTriggerer{}
	router := NewTriggerRouter(NewTriggerHandler(security.NewTriggerAuthorizer("s3cret", false), triggerer))

	rec := postTrigger(t, router, `{"type":"jobs"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, triggerer.tasks)

	rec = postTrigger(t, router, `{"type":"reports"}`, "Bearer s3cret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid job type. Use: invites, jobs, cleanup, or all", decodeBody(t, rec)["error"])

	rec = postTrigger(t, router, `{"type":"all"}`, "Bearer s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "All jobs triggered successfully", decodeBody(t, rec)["message"])
	assert.Equal(t, []scheduler.Task{scheduler.TaskAll}, triggerer.tasks)

	triggerer.err = errors.New("database is down")
	rec = postTrigger(t, router, `{"type":"cleanup"}`, "Bearer s3cret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeBody(t, rec)["error"])
}

func TestTriggerHandler_DevelopmentMode(t *testing.T) {
	triggerer := &fakeTriggerer{}
	router := NewTriggerRouter(NewTriggerHandler(security.NewTriggerAuthorizer("", true), triggerer))

	rec := postTrigger(t, router, `{"type":"invites"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Invite processing triggered successfully", decodeBody(t, rec)["message"])
}
