package player_test

import (
	"errors"
	"testing"

	"github.com/artpar/clubdues/domain/player"
)

func TestPlayer_Validate(t *testing.T) {
	tests := []struct {
		name      string
		p         player.Player
		wantField string
	}{
		{"valid", player.Player{Name: "Ana", Email: "ana@club.test", JerseyNumber: 10}, ""},
		{"no email", player.Player{Name: "Ana"}, ""},
		{"missing name", player.Player{Name: "  "}, "name"},
		{"bad email", player.Player{Name: "Ana", Email: "not-an-email"}, "email"},
		{"jersey out of range", player.Player{Name: "Ana", JerseyNumber: 100}, "jersey_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *player.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestPlayer_Normalize(t *testing.T) {
	p := player.Player{Name: " Ana Lima ", Email: " Ana@Club.TEST "}.Normalize()
	if p.Name != "Ana Lima" {
		t.Errorf("Name = %q, want %q", p.Name, "Ana Lima")
	}
	if p.Email != "ana@club.test" {
		t.Errorf("Email = %q, want %q", p.Email, "ana@club.test")
	}
}
