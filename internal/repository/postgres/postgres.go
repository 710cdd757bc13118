package postgres

import (
	"database/sql"

	_ "github.com/lib/pq"

	"evently-backend/internal/repository"
)

type scanner interface {
	Scan(dest ...any) error
}

// NewStore wires every postgres repository onto one connection pool.
func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		UserRepository:          NewUserRepository(db),
		OrganizationRepository:  NewOrganizationRepository(db),
		MembershipRepository:    NewMembershipRepository(db),
		EventRepository:         NewEventRepository(db),
		ParticipationRepository: NewParticipationRepository(db),
		InviteRepository:        NewInviteRepository(db),
		JobRepository:           NewJobRepository(db),
	}
}
