package guest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grandline-hms/service-reservation/internal/domain"
)

// Guest is a person who books or stays. Identity is keyed by email.
type Guest struct {
	id        uuid.UUID
	firstName string
	lastName  string
	email     string
	phone     string
	createdAt time.Time
	updatedAt time.Time
}

// NewGuest creates a guest. Email, first and last name are required.
func NewGuest(firstName, lastName, email, phone string) (*Guest, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.ToLower(strings.TrimSpace(email))

	if firstName == "" || lastName == "" {
		return nil, domain.NewValidationError("guest first and last name are required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("a valid guest email is required")
	}

	now := time.Now().UTC()
	return &Guest{
		id:        uuid.New(),
		firstName: firstName,
		lastName:  lastName,
		email:     email,
		phone:     strings.TrimSpace(phone),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstitute rebuilds a Guest from persistence.
func Reconstitute(id uuid.UUID, firstName, lastName, email, phone string, createdAt, updatedAt time.Time) *Guest {
	return &Guest{
		id:        id,
		firstName: firstName,
		lastName:  lastName,
		email:     email,
		phone:     phone,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (g *Guest) ID() uuid.UUID        { return g.id }
func (g *Guest) FirstName() string    { return g.firstName }
func (g *Guest) LastName() string     { return g.lastName }
func (g *Guest) Email() string        { return g.email }
func (g *Guest) Phone() string        { return g.phone }
func (g *Guest) CreatedAt() time.Time { return g.createdAt }
func (g *Guest) UpdatedAt() time.Time { return g.updatedAt }

// FullName returns "First Last" for display and activity messages.
func (g *Guest) FullName() string {
	return g.firstName + " " + g.lastName
}

// UpdateContact replaces the phone number.
func (g *Guest) UpdateContact(phone string) {
	g.phone = strings.TrimSpace(phone)
	g.updatedAt = time.Now().UTC()
}

// Directory is the guest directory contract. Save is an idempotent upsert
// keyed by email.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Guest, error)
	FindByEmail(ctx context.Context, email string) (*Guest, error)
	Save(ctx context.Context, g *Guest) error
}
