package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/domain/player"
	"github.com/artpar/clubdues/ports"
)

// PlayerStore implements ports.PlayerStore using SQLite.
type PlayerStore struct {
	db *DB
}

// NewPlayerStore creates a new SQLite player store.
func NewPlayerStore(db *DB) *PlayerStore {
	return &PlayerStore{db: db}
}

// Get retrieves a player by ID.
func (s *PlayerStore) Get(ctx context.Context, id string) (player.Player, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, position, jersey_number, join_date, active, created_at
		FROM players WHERE id = ?
	`, id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return player.Player{}, billing.ErrNotFound
	}
	return p, err
}

// Create stores a new player.
func (s *PlayerStore) Create(ctx context.Context, p player.Player) error {
	var joinDate sql.NullTime
	if !p.JoinDate.IsZero() {
		joinDate = sql.NullTime{Time: p.JoinDate.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, email, phone, position, jersey_number, join_date, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, nullString(p.Email), nullString(p.Phone), nullString(p.Position),
		p.JerseyNumber, joinDate, p.Active, p.CreatedAt.UTC())
	if isUniqueConstraintError(err) {
		return fmt.Errorf("player %s: %w", p.ID, billing.ErrConflict)
	}
	return err
}

// List returns players ordered by name.
func (s *PlayerStore) List(ctx context.Context, limit, offset int) ([]player.Player, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone, position, jersey_number, join_date, active, created_at
		FROM players
		ORDER BY name, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func scanPlayer(sc scanner) (player.Player, error) {
	var (
		p                      player.Player
		email, phone, position sql.NullString
		joinDate               sql.NullTime
	)
	err := sc.Scan(&p.ID, &p.Name, &email, &phone, &position, &p.JerseyNumber, &joinDate, &p.Active, &p.CreatedAt)
	if err != nil {
		return player.Player{}, err
	}
	p.Email = email.String
	p.Phone = phone.String
	p.Position = position.String
	if joinDate.Valid {
		p.JoinDate = joinDate.Time
	}
	return p, nil
}

// Ensure interface compliance.
var _ ports.PlayerStore = (*PlayerStore)(nil)
