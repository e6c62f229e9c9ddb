package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
)

const (
	auditCollection = "user_audit"
	writeTimeout    = 5 * time.Second
)

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(auditCollection)}
}

type auditDocument struct {
	Action     string    `bson:"action"`
	UserID     int64     `bson:"user_id"`
	ActorID    int64     `bson:"actor_id,omitempty"`
	Email      string    `bson:"email,omitempty"`
	At         time.Time `bson:"at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func toAuditDocument(e domain.AuditEvent) auditDocument {
	return auditDocument{
		Action:     string(e.Action),
		UserID:     e.UserID,
		ActorID:    e.ActorID,
		Email:      e.Email,
		At:         e.At.UTC(),
		RecordedAt: time.Now().UTC(),
	}
}

// Insert appends one event to the audit collection.
func (r *AuditRepository) Insert(ctx context.Context, event domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toAuditDocument(event)); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes on the audit collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
