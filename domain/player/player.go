// Package player provides the club player value type.
// Players are owned by the roster; billing only needs to know they exist.
package player

import (
	"net/mail"
	"strings"
	"time"
)

// Player is a club member who can be billed (immutable value type).
type Player struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Position     string
	JerseyNumber int
	JoinDate     time.Time
	Active       bool
	CreatedAt    time.Time
}

// ValidationError describes an invalid player field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validate checks the fields required to register a player.
func (p Player) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return &ValidationError{Field: "email", Reason: "is not a valid address"}
		}
	}
	if p.JerseyNumber < 0 || p.JerseyNumber > 99 {
		return &ValidationError{Field: "jersey_number", Reason: "must be between 0 and 99"}
	}
	return nil
}

// Normalize trims whitespace and lowercases the email.
// This is a PURE function.
func (p Player) Normalize() Player {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Position = strings.TrimSpace(p.Position)
	return p
}
