package attendance

import (
	"context"
	"strings"

	"labourtrack/internal/domain/users"
)

// UserDirectory is the slice of the user store the ingestion needs.
type UserDirectory interface {
	FindByEPNumber(ctx context.Context, epNumber string) (*users.User, error)
	CreateEmployee(ctx context.Context, u users.User) (*users.User, bool, error)
}

// Resolver maps EP numbers to user accounts, provisioning an
// employee-tier account on first sight. Resolutions are memoized for
// the life of one ingestion run, so repeated rows for the same EP
// number hit the directory once.
type Resolver struct {
	directory UserDirectory
	seen      map[string]*users.User
}

func NewResolver(directory UserDirectory) *Resolver {
	return &Resolver{directory: directory, seen: map[string]*users.User{}}
}

func (r *Resolver) Resolve(ctx context.Context, rec NormalizedRecord) (*users.User, bool, error) {
	if cached, ok := r.seen[rec.EPNumber]; ok {
		return cached, false, nil
	}

	existing, err := r.directory.FindByEPNumber(ctx, rec.EPNumber)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		r.seen[rec.EPNumber] = existing
		return existing, false, nil
	}

	firstName, lastName := SplitName(rec.Name)
	created, wasCreated, err := r.directory.CreateEmployee(ctx, users.User{
		EPNumber:    rec.EPNumber,
		FirstName:   firstName,
		LastName:    lastName,
		CompanyName: rec.CompanyName,
		Plant:       rec.Plant,
		Department:  rec.Department,
		Trade:       rec.Trade,
		Skill:       rec.Skill,
		Shift:       rec.Shift,
	})
	if err != nil {
		return nil, false, err
	}
	r.seen[rec.EPNumber] = created
	return created, wasCreated, nil
}

// SplitName divides a full name on the first whitespace run: the first
// token becomes the first name, the remainder the last name.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
