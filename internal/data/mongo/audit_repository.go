package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/splitledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "settlement_audit"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit trail repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new audit entry after checking for duplicates.
// Returns ErrDuplicateEntry if an entry with the same event ID exists.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	// Check if entry already exists
	existingEntry, err := r.GetByEventID(ctx, entry.EventID)
	if err != nil && !errors.Is(err, audit.ErrEntryNotFound{EventID: entry.EventID}) {
		r.logger.Error("Failed to check for existing audit entry",
			"event_id", entry.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing audit entry: %w", err)
	}

	if existingEntry != nil {
		return audit.ErrDuplicateEntry{EventID: entry.EventID}
	}

	// Insert the entry
	_, err = collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to create audit entry",
			"event_id", entry.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// GetByEventID retrieves an audit entry by its event ID.
// Returns ErrEntryNotFound if no entry exists for the given event.
func (r *AuditRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"event_id": eventID}
	var entry audit.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrEntryNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get audit entry",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	return &entry, nil
}

// GetBySettlementID retrieves all audit entries for a settlement.
// Results are sorted by recording time in ascending order to read as a history.
func (r *AuditRepository) GetBySettlementID(ctx context.Context, settlementID uuid.UUID) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"settlement_id": settlementID}
	opts := options.Find().SetSort(bson.M{"recorded_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries",
			"settlement_id", settlementID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"settlement_id", settlementID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// GetByLedgerID retrieves paginated audit entries for a ledger.
// Results are sorted by recording time in descending order (newest first).
func (r *AuditRepository) GetByLedgerID(ctx context.Context, ledgerID uuid.UUID, limit, offset int) ([]*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"ledger_id": ledgerID}
	opts := options.Find().
		SetSort(bson.M{"recorded_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit entries by ledger",
			"ledger_id", ledgerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entries by ledger: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*audit.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"ledger_id", ledgerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// CountByLedgerID counts the total number of audit entries for a ledger
func (r *AuditRepository) CountByLedgerID(ctx context.Context, ledgerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"ledger_id": ledgerID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count audit entries",
			"ledger_id", ledgerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	return count, nil
}
