package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// AuditRepo implements outbound.AuditRepository on a MongoDB collection.
type AuditRepo struct {
	store *Store
	coll  *mongo.Collection
}

func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store, coll: store.db.Collection(auditCollection)}
}

var _ outbound.AuditRepository = (*AuditRepo)(nil)

// orderFields maps the repository's order column names onto document fields.
var orderFields = map[string]string{
	"created_at": "createdAt",
	"severity":   "severity",
	"action":     "action",
	"category":   "category",
	"actor_id":   "actorId",
}

func (r *AuditRepo) Create(ctx context.Context, rec model.AuditRecord) (model.AuditRecord, error) {
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]any)
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return model.AuditRecord{}, fmt.Errorf("inserting audit record: %w", err)
	}
	return rec, nil
}

func (r *AuditRepo) GetByID(ctx context.Context, id string) (model.AuditRecord, error) {
	var rec model.AuditRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("fetching audit record: %w", err)
	}
	return normalize(rec), nil
}

func (r *AuditRepo) List(ctx context.Context, filter outbound.AuditFilter, page outbound.PageRequest) (outbound.PageResult[model.AuditRecord], error) {
	q := buildFilter(filter)

	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("counting audit records: %w", err)
	}

	field := "createdAt"
	if page.OrderBy != "" {
		f, ok := orderFields[page.OrderBy]
		if !ok {
			return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("invalid order column: %q", page.OrderBy)
		}
		field = f
	}
	dir := 1
	if page.Desc {
		dir = -1
	}
	size := page.Size
	if size <= 0 {
		size = 20
	}
	pageNum := max(page.Page, 1)

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64((pageNum - 1) * size)).
		SetLimit(int64(size))

	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("listing audit records: %w", err)
	}
	defer cur.Close(ctx)

	items := make([]model.AuditRecord, 0, size)
	for cur.Next(ctx) {
		var rec model.AuditRecord
		if err := cur.Decode(&rec); err != nil {
			return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("decoding audit record: %w", err)
		}
		items = append(items, normalize(rec))
	}
	if err := cur.Err(); err != nil {
		return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("iterating audit records: %w", err)
	}

	return outbound.PageResult[model.AuditRecord]{
		Items:      items,
		TotalCount: total,
		Page:       pageNum,
		Size:       size,
	}, nil
}

func (r *AuditRepo) Count(ctx context.Context, filter outbound.AuditFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("counting audit records: %w", err)
	}
	return n, nil
}

// UpdateMetadata sets each patch key under metadata and increments version in a
// single document update matched on both id and expected version.
func (r *AuditRepo) UpdateMetadata(ctx context.Context, id string, expectedVersion int64, patch map[string]any) (model.AuditRecord, error) {
	set := bson.M{}
	for k, v := range patch {
		set["metadata."+k] = v
	}
	update := bson.M{"$inc": bson.M{"version": 1}}
	if len(set) > 0 {
		update["$set"] = set
	}

	var rec model.AuditRecord
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := r.coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return model.AuditRecord{}, fmt.Errorf("checking audit record: %w", cerr)
		}
		if n == 0 {
			return model.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, model.ErrNotFound)
		}
		return model.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, model.ErrConflict)
	}
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("updating audit metadata: %w", err)
	}
	return normalize(rec), nil
}

func (r *AuditRepo) Ping(ctx context.Context) error { return r.store.Ping(ctx) }

func buildFilter(f outbound.AuditFilter) bson.M {
	q := bson.M{}
	if len(f.Actions) > 0 {
		q["action"] = bson.M{"$in": f.Actions}
	}
	if len(f.Categories) > 0 {
		q["category"] = bson.M{"$in": f.Categories}
	}
	if len(f.Severities) > 0 {
		q["severity"] = bson.M{"$in": f.Severities}
	}
	if f.ActorID != "" {
		q["actorId"] = f.ActorID
	}
	created := bson.M{}
	if f.Since != nil {
		created["$gte"] = f.Since.UTC()
	}
	if f.Until != nil {
		created["$lte"] = f.Until.UTC()
	}
	if len(created) > 0 {
		q["createdAt"] = created
	}
	return q
}

func normalize(rec model.AuditRecord) model.AuditRecord {
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]any)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec
}
