package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/artpar/clubdues/domain/billing"
	"github.com/artpar/clubdues/domain/player"
	"github.com/artpar/clubdues/ports"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type playerModel struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email,omitempty"`
	Phone        string     `bson:"phone,omitempty"`
	Position     string     `bson:"position,omitempty"`
	JerseyNumber int        `bson:"jersey_number"`
	JoinDate     *time.Time `bson:"join_date,omitempty"`
	Active       bool       `bson:"active"`
	CreatedAt    time.Time  `bson:"created_at"`
}

// PlayerStore implements ports.PlayerStore using MongoDB.
type PlayerStore struct {
	col *mongo.Collection
}

// NewPlayerStore creates a new MongoDB player store.
func NewPlayerStore(db *DB) *PlayerStore {
	return &PlayerStore{col: db.db.Collection(colPlayers)}
}

// Get retrieves a player by ID.
func (s *PlayerStore) Get(ctx context.Context, id string) (player.Player, error) {
	var m playerModel
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return player.Player{}, billing.ErrNotFound
		}
		return player.Player{}, fmt.Errorf("clubdues/mongo: get player: %w", err)
	}
	return fromPlayerModel(m), nil
}

// Create stores a new player.
func (s *PlayerStore) Create(ctx context.Context, p player.Player) error {
	m := playerModel{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		Phone:        p.Phone,
		Position:     p.Position,
		JerseyNumber: p.JerseyNumber,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt.UTC(),
	}
	if !p.JoinDate.IsZero() {
		jd := p.JoinDate.UTC()
		m.JoinDate = &jd
	}

	if _, err := s.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("player %s: %w", p.ID, billing.ErrConflict)
		}
		return fmt.Errorf("clubdues/mongo: create player: %w", err)
	}
	return nil
}

// List returns players ordered by name.
func (s *PlayerStore) List(ctx context.Context, limit, offset int) ([]player.Player, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("clubdues/mongo: list players: %w", err)
	}
	var models []playerModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("clubdues/mongo: decode players: %w", err)
	}

	players := make([]player.Player, 0, len(models))
	for _, m := range models {
		players = append(players, fromPlayerModel(m))
	}
	return players, nil
}

func fromPlayerModel(m playerModel) player.Player {
	p := player.Player{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		Position:     m.Position,
		JerseyNumber: m.JerseyNumber,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt.UTC(),
	}
	if m.JoinDate != nil {
		p.JoinDate = m.JoinDate.UTC()
	}
	return p
}

// Ensure interface compliance.
var _ ports.PlayerStore = (*PlayerStore)(nil)
