package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// AuditRepo implements outbound.AuditRepository using SQLite.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo backed by the given store.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{db: store.DB}
}

var _ outbound.AuditRepository = (*AuditRepo)(nil)

const auditColumns = `id, action, category, severity, description, actor_id, ip, user_agent, metadata, version, created_at`

// Create inserts a new audit record row.
func (r *AuditRepo) Create(ctx context.Context, rec model.AuditRecord) (model.AuditRecord, error) {
	meta, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("marshaling audit metadata: %w", err)
	}
	if rec.Version == 0 {
		rec.Version = 1
	}

	const q = `INSERT INTO audit_records (` + auditColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?)`

	_, err = r.db.ExecContext(ctx, q,
		rec.ID, string(rec.Action), string(rec.Category), string(rec.Severity),
		rec.Description, rec.ActorID, rec.IP, rec.UserAgent,
		meta, rec.Version, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("inserting audit record: %w", err)
	}
	return rec, nil
}

// GetByID fetches a single audit record by primary key.
func (r *AuditRepo) GetByID(ctx context.Context, id string) (model.AuditRecord, error) {
	return getAuditRecord(ctx, r.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAuditRecord(ctx context.Context, db queryRower, id string) (model.AuditRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_records WHERE id = ?`, id)
	rec, err := scanAuditRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("fetching audit record: %w", err)
	}
	return rec, nil
}

// allowedAuditOrderColumns defines valid columns for ORDER BY to prevent SQL injection.
var allowedAuditOrderColumns = map[string]bool{
	"created_at": true, "severity": true, "action": true,
	"category": true, "actor_id": true,
}

// List returns a paginated, filtered list of audit records. Pages are 1-based.
func (r *AuditRepo) List(ctx context.Context, filter outbound.AuditFilter, page outbound.PageRequest) (outbound.PageResult[model.AuditRecord], error) {
	where, args := buildAuditWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("counting audit records: %w", err)
	}

	orderCol := "created_at"
	if page.OrderBy != "" {
		if !allowedAuditOrderColumns[page.OrderBy] {
			return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("invalid order column: %q", page.OrderBy)
		}
		orderCol = page.OrderBy
	}
	dir := "ASC"
	if page.Desc {
		dir = "DESC"
	}
	size := page.Size
	if size <= 0 {
		size = 20
	}
	pageNum := max(page.Page, 1)
	offset := (pageNum - 1) * size

	dataQ := fmt.Sprintf(`SELECT %s FROM audit_records%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?`,
		auditColumns, where, orderCol, dir, dir)

	rows, err := r.db.QueryContext(ctx, dataQ, append(args, size, offset)...)
	if err != nil {
		return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("listing audit records: %w", err)
	}
	defer rows.Close()

	items := make([]model.AuditRecord, 0, size)
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("scanning audit record: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.AuditRecord]{}, fmt.Errorf("iterating audit records: %w", err)
	}

	return outbound.PageResult[model.AuditRecord]{
		Items:      items,
		TotalCount: total,
		Page:       pageNum,
		Size:       size,
	}, nil
}

// Count returns the number of audit records matching filter.
func (r *AuditRepo) Count(ctx context.Context, filter outbound.AuditFilter) (int64, error) {
	where, args := buildAuditWhere(filter)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit records: %w", err)
	}
	return n, nil
}

// UpdateMetadata merges patch into the record's metadata and bumps its version,
// provided the stored version still equals expectedVersion.
func (r *AuditRepo) UpdateMetadata(ctx context.Context, id string, expectedVersion int64, patch map[string]any) (model.AuditRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("beginning metadata update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := getAuditRecord(ctx, tx, id)
	if err != nil {
		return model.AuditRecord{}, err
	}
	if rec.Version != expectedVersion {
		return model.AuditRecord{}, fmt.Errorf("audit record %s at version %d: %w", id, rec.Version, model.ErrConflict)
	}

	rec = rec.MergeMetadata(patch)
	meta, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("marshaling audit metadata: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE audit_records SET metadata = ?, version = version + 1 WHERE id = ? AND version = ?`,
		meta, id, expectedVersion,
	)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("updating audit metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, model.ErrConflict)
	}
	if err := tx.Commit(); err != nil {
		return model.AuditRecord{}, fmt.Errorf("committing metadata update: %w", err)
	}

	rec.Version = expectedVersion + 1
	return rec, nil
}

// Ping verifies the database is reachable.
func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- helpers ---

type auditScanner interface {
	Scan(dest ...any) error
}

func scanAuditRecord(s auditScanner) (model.AuditRecord, error) {
	var rec model.AuditRecord
	var action, category, severity, metaJSON string

	err := s.Scan(
		&rec.ID, &action, &category, &severity,
		&rec.Description, &rec.ActorID, &rec.IP, &rec.UserAgent,
		&metaJSON, &rec.Version, &rec.CreatedAt,
	)
	if err != nil {
		return model.AuditRecord{}, err
	}
	rec.Action = model.AuditAction(action)
	rec.Category = model.AuditCategory(category)
	rec.Severity = model.Severity(severity)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil || rec.Metadata == nil {
		rec.Metadata = make(map[string]any)
	}
	return rec, nil
}

func buildAuditWhere(f outbound.AuditFilter) (string, []any) {
	var clauses []string
	var args []any

	addIn := func(col string, values []string) {
		if len(values) == 0 {
			return
		}
		clauses = append(clauses, col+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")+")")
		for _, v := range values {
			args = append(args, v)
		}
	}
	addIn("action", toStrings(f.Actions))
	addIn("category", toStrings(f.Categories))
	addIn("severity", toStrings(f.Severities))

	if f.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until.UTC())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
