package app

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/domain/player"
	"github.com/artpar/clubdues/ports"
	"github.com/rs/zerolog"
)

// PlayerService registers and looks up club players.
type PlayerService struct {
	players ports.PlayerStore
	ids     ports.IDGenerator
	clock   ports.Clock
	logger  zerolog.Logger
}

// NewPlayerService creates a new player service.
func NewPlayerService(players ports.PlayerStore, ids ports.IDGenerator, clock ports.Clock, logger zerolog.Logger) *PlayerService {
	return &PlayerService{
		players: players,
		ids:     ids,
		clock:   clock,
		logger:  logger.With().Str("service", "player").Logger(),
	}
}

// CreatePlayerRequest is the input of CreatePlayer.
type CreatePlayerRequest struct {
	Name         string
	Email        string
	Phone        string
	Position     string
	JerseyNumber int
	JoinDate     *time.Time
	Active       *bool // defaults to true
}

// CreatePlayer validates and stores a new player.
func (s *PlayerService) CreatePlayer(ctx context.Context, req CreatePlayerRequest) (player.Player, error) {
	now := s.clock.Now().UTC()

	p := player.Player{
		ID:           s.ids.New(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Position:     req.Position,
		JerseyNumber: req.JerseyNumber,
		JoinDate:     AsDate(now),
		Active:       true,
		CreatedAt:    now,
	}
	if req.JoinDate != nil {
		p.JoinDate = AsDate(*req.JoinDate)
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		var ve *player.ValidationError
		if errors.As(err, &ve) {
			return player.Player{}, &billing.ValidationError{Field: ve.Field, Reason: ve.Reason}
		}
		return player.Player{}, err
	}

	if err := s.players.Create(ctx, p); err != nil {
		return player.Player{}, err
	}

	s.logger.Info().Str("player_id", p.ID).Msg("player created")
	return p, nil
}

// GetPlayer retrieves a player by ID.
func (s *PlayerService) GetPlayer(ctx context.Context, id string) (player.Player, error) {
	return s.players.Get(ctx, id)
}

// ListPlayers returns players ordered by name.
func (s *PlayerService) ListPlayers(ctx context.Context, limit, offset int) ([]player.Player, error) {
	return s.players.List(ctx, limit, offset)
}
