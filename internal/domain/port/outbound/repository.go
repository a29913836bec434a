package outbound

import (
	"context"
	"time"

	"github.com/medme/secwatch/internal/domain/model"
)

type PageRequest struct {
	Page    int
	Size    int
	OrderBy string
	Desc    bool
}

type PageResult[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

// AuditFilter selects audit records. Empty fields do not constrain the query.
type AuditFilter struct {
	Actions    []model.AuditAction
	Categories []model.AuditCategory
	Severities []model.Severity
	ActorID    string
	Since      *time.Time
	Until      *time.Time
}

type UserFilter struct {
	Role     model.Role
	Verified *bool
}

// AuditRepository stores append-only audit records. UpdateMetadata merges patch into the
// record's metadata only if its version still equals expectedVersion, returning
// model.ErrConflict otherwise and model.ErrNotFound for an unknown id.
type AuditRepository interface {
	Create(ctx context.Context, record model.AuditRecord) (model.AuditRecord, error)
	GetByID(ctx context.Context, id string) (model.AuditRecord, error)
	List(ctx context.Context, filter AuditFilter, page PageRequest) (PageResult[model.AuditRecord], error)
	Count(ctx context.Context, filter AuditFilter) (int64, error)
	UpdateMetadata(ctx context.Context, id string, expectedVersion int64, patch map[string]any) (model.AuditRecord, error)
	Ping(ctx context.Context) error
}

type UserRepository interface {
	Upsert(ctx context.Context, user model.User) error
	Count(ctx context.Context, filter UserFilter) (int64, error)
}
