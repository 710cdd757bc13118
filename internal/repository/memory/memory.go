// Package memory is an in-process implementation of the repositories. It
// backs development mode and the behaviour tests; a single mutex gives every
// operation the atomicity the postgres store gets from transactions.
package memory

import (
	"sort"
	"strings"
	"sync"

	"evently-backend/internal/domain"
	"evently-backend/internal/repository"
)

type memberKey struct {
	userID string
	orgID  string
}

// DB holds all rows of the in-memory store.
type DB struct {
	mu             sync.Mutex
	users          map[string]domain.User
	orgs           map[string]domain.Organization
	members        map[memberKey]domain.Membership
	events         map[string]domain.Event
	participations map[string]domain.Participation
	invites        map[string]domain.Invite
	jobs           map[string]domain.Job
}

func New() *DB {
	return &DB{
		users:          make(map[string]domain.User),
		orgs:           make(map[string]domain.Organization),
		members:        make(map[memberKey]domain.Membership),
		events:         make(map[string]domain.Event),
		participations: make(map[string]domain.Participation),
		invites:        make(map[string]domain.Invite),
		jobs:           make(map[string]domain.Job),
	}
}

// NewStore returns a repository.Store backed by a fresh in-memory DB.
func NewStore() *repository.Store {
	return New().Store()
}

// Store exposes d through the repository interfaces.
func (d *DB) Store() *repository.Store {
	return &repository.Store{
		UserRepository:          &userRepository{db: d},
		OrganizationRepository:  &organizationRepository{db: d},
		MembershipRepository:    &membershipRepository{db: d},
		EventRepository:         &eventRepository{db: d},
		ParticipationRepository: &participationRepository{db: d},
		InviteRepository:        &inviteRepository{db: d},
		JobRepository:           &jobRepository{db: d},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
