package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/debit-ledger/internal/domain/history"
	"github.com/debit-ledger/internal/domain/shared"
)

const (
	// HistoryCollectionName is the collection holding one document per processed envelope
	HistoryCollectionName = "transaction_history"
)

// HistoryRepository implements history.Repository for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *HistoryRepository) collection() *mongo.Collection {
	return r.db.Collection(HistoryCollectionName)
}

// EnsureIndexes creates the lookup indexes. Transaction ids are unique so a replayed
// outbox message cannot archive the same result twice.
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "source_account", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := r.collection().Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Error("Failed to create history indexes", "error", err)
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

// Create archives a record. Returns ErrDuplicateRecord if the transaction is already archived.
func (r *HistoryRepository) Create(ctx context.Context, record *history.Record) error {
	existing, err := r.GetByTransactionID(ctx, record.TransactionID)
	if err != nil && !errors.Is(err, history.ErrRecordNotFound{}) {
		r.logger.Error("Failed to check for existing history record",
			"transaction_id", record.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing history record: %w", err)
	}
	if existing != nil {
		return history.ErrDuplicateRecord{TransactionID: record.TransactionID}
	}

	if _, err := r.collection().InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return history.ErrDuplicateRecord{TransactionID: record.TransactionID}
		}
		r.logger.Error("Failed to create history record",
			"transaction_id", record.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create history record: %w", err)
	}

	return nil
}

// GetByTransactionID returns ErrRecordNotFound if the transaction was never archived
func (r *HistoryRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*history.Record, error) {
	var record history.Record
	err := r.collection().FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, history.ErrRecordNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get history record",
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}

	return &record, nil
}

// GetByIdempotencyKey returns nil without error when no record carries the key
func (r *HistoryRepository) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*history.Record, error) {
	if idempotencyKey == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	var record history.Record
	err := r.collection().FindOne(ctx, bson.M{"idempotency_key": idempotencyKey}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get history record by idempotency key",
			"idempotency_key", idempotencyKey,
			"error", err)
		return nil, fmt.Errorf("failed to get history record by idempotency key: %w", err)
	}

	return &record, nil
}

// GetBySourceAccount pages through an account's transactions, newest first
func (r *HistoryRepository) GetBySourceAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*history.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection().Find(ctx, bson.M{"source_account": accountID}, opts)
	if err != nil {
		r.logger.Error("Failed to get history records",
			"source_account", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get history records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*history.Record{}
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode history records",
			"source_account", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode history records: %w", err)
	}

	return records, nil
}

func (r *HistoryRepository) CountBySourceAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	count, err := r.collection().CountDocuments(ctx, bson.M{"source_account": accountID})
	if err != nil {
		r.logger.Error("Failed to count history records",
			"source_account", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count history records: %w", err)
	}

	return count, nil
}

// UpdateStatus sets the status, failure reason and processed timestamp
func (r *HistoryRepository) UpdateStatus(ctx context.Context, transactionID uuid.UUID, status shared.TransactionStatus, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"status":         status,
			"failure_reason": reason,
			"processed_at":   time.Now().UTC(),
		},
	}

	result, err := r.collection().UpdateOne(ctx, bson.M{"transaction_id": transactionID}, update)
	if err != nil {
		r.logger.Error("Failed to update history record status",
			"transaction_id", transactionID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update history record status: %w", err)
	}

	if result.MatchedCount == 0 {
		return history.ErrRecordNotFound{TransactionID: transactionID}
	}

	return nil
}
