package domain

import (
	"encoding/json"
	"fmt"
)

// User roles understood by the users endpoint.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// ExportRoles are the roles whose members are resolved for every export.
var ExportRoles = []string{RoleAdmin, RoleAgent}

// UnknownName fills both halves of the sentinel identity.
const UnknownName = "UNKNOWN"

// UnknownUser is attached to access logs whose user is not in the directory.
var UnknownUser = MappedUser{Name: UnknownName, Email: UnknownName}

// User is a helpdesk user as returned by the users endpoint.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// MappedUser is the (name, email) identity attached to an access log.
// It serializes as a two-element JSON array.
type MappedUser struct {
	Name  string
	Email string
}

// MarshalJSON encodes the identity as ["name", "email"].
func (m MappedUser) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{m.Name, m.Email})
}

// UnmarshalJSON decodes the ["name", "email"] form.
func (m *MappedUser) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode mapped user: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode mapped user: want 2 elements, got %d", len(pair))
	}
	m.Name, m.Email = pair[0], pair[1]
	return nil
}

// Directory maps user IDs to identities. It is built once per export cycle
// and is read-only afterwards.
type Directory struct {
	users map[int64]MappedUser
}

// NewDirectory indexes users by ID. A later duplicate ID replaces an earlier one.
func NewDirectory(users []User) *Directory {
	m := make(map[int64]MappedUser, len(users))
	for _, u := range users {
		m[u.ID] = MappedUser{Name: u.Name, Email: u.Email}
	}
	return &Directory{users: m}
}

// Lookup returns the identity for id, or UnknownUser.
func (d *Directory) Lookup(id int64) MappedUser {
	if d != nil {
		if u, ok := d.users[id]; ok {
			return u
		}
	}
	return UnknownUser
}

// Len returns the number of distinct users.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.users)
}
