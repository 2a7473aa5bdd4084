// Package mongo provides MongoDB implementations of the store ports.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	colInvoices = "payments"
	colPlayers  = "players"
)

// DB wraps a MongoDB client bound to one database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and selects the named database.
func Open(ctx context.Context, uri, name string) (*DB, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("clubdues/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("clubdues/mongo: ping: %w", err)
	}
	return &DB{client: client, db: client.Database(name)}, nil
}

// Migrate creates the collection indexes. Index creation is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := d.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("clubdues/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{
				Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "installment_number", Value: 1}},
				Options: options.Index().
					SetName("uq_plan_installment").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"has_plan": true}),
			},
			{
				Keys: bson.D{{Key: "plan_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}},
				Options: options.Index().
					SetName("uq_monthly_period").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"has_plan": true, "payment_type": "monthly"}),
			},
			{
				Keys: bson.D{{Key: "player_id", Value: 1}, {Key: "month", Value: 1}, {Key: "year", Value: 1}},
				Options: options.Index().
					SetName("uq_player_period").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"has_plan": false}),
			},
			{Keys: bson.D{{Key: "year", Value: -1}, {Key: "month", Value: -1}}},
			{Keys: bson.D{{Key: "payment_type", Value: 1}}},
		},
		colPlayers: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
	}
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Drop removes the whole database (for tests).
func (d *DB) Drop(ctx context.Context) error {
	return d.db.Drop(ctx)
}

// Close disconnects the client.
func (d *DB) Close() error {
	return d.client.Disconnect(context.Background())
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
