package content

import (
	"time"

	"github.com/eringen/clubsite/remote"
)

const ProfilesTable = "profiles"

// Profile roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Profile struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Profile) RecordID() string { return p.ID }

func profileFromRow(r remote.Row) (Profile, error) {
	p := Profile{
		ID:        rowString(r, "id"),
		Email:     rowString(r, "email"),
		Role:      rowString(r, "role"),
		CreatedAt: rowTime(r, "created_at"),
		UpdatedAt: rowTime(r, "updated_at"),
	}
	if p.Role == "" {
		p.Role = RoleUser
	}
	return p, nil
}
