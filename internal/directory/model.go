package directory

import (
	"time"

	"github.com/fkhayef/splitdraft/internal/expense/split"
)

// User represents a person who can take part in expenses
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant converts a user to the read-only view the split engine uses
func (u *User) Participant() split.Participant {
	p := split.Participant{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	return p
}

// Group represents a named set of users that share expenses
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
