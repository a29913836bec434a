package service_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// --- in-memory audit repository ---

type memAuditRepo struct {
	mu        sync.Mutex
	records   map[string]model.AuditRecord
	createErr error
	listErr   error
	updateErr error
	// beforeUpdate runs inside UpdateMetadata before the version check.
	beforeUpdate func(r *memAuditRepo, id string)
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{records: make(map[string]model.AuditRecord)}
}

func (r *memAuditRepo) Create(_ context.Context, rec model.AuditRecord) (model.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return model.AuditRecord{}, r.createErr
	}
	r.records[rec.ID] = rec
	return rec, nil
}

func (r *memAuditRepo) GetByID(_ context.Context, id string) (model.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return model.AuditRecord{}, fmt.Errorf("audit record %s: %w", id, model.ErrNotFound)
	}
	return rec, nil
}

func (r *memAuditRepo) matching(filter outbound.AuditFilter) []model.AuditRecord {
	var out []model.AuditRecord
	for _, rec := range r.records {
		if len(filter.Actions) > 0 && !slices.Contains(filter.Actions, rec.Action) {
			continue
		}
		if len(filter.Categories) > 0 && !slices.Contains(filter.Categories, rec.Category) {
			continue
		}
		if len(filter.Severities) > 0 && !slices.Contains(filter.Severities, rec.Severity) {
			continue
		}
		if filter.ActorID != "" && rec.ActorID != filter.ActorID {
			continue
		}
		if filter.Since != nil && rec.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && rec.CreatedAt.After(*filter.Until) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memAuditRepo) List(_ context.Context, filter outbound.AuditFilter, page outbound.PageRequest) (outbound.PageResult[model.AuditRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return outbound.PageResult[model.AuditRecord]{}, r.listErr
	}
	all := r.matching(filter)
	start := (page.Page - 1) * page.Size
	if start > len(all) {
		start = len(all)
	}
	end := min(start+page.Size, len(all))
	return outbound.PageResult[model.AuditRecord]{
		Items:      all[start:end],
		TotalCount: int64(len(all)),
		Page:       page.Page,
		Size:       page.Size,
	}, nil
}

func (r *memAuditRepo) Count(_ context.Context, filter outbound.AuditFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return 0, r.listErr
	}
	return int64(len(r.matching(filter))), nil
}

func (r *memAuditRepo) UpdateMetadata(_ context.Context, id string, expectedVersion int64, patch map[string]any) (model.AuditRecord, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate(r, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return model.AuditRecord{}, r.updateErr
	}
	rec, ok := r.records[id]
	if !ok {
		return model.AuditRecord{}, model.ErrNotFound
	}
	if rec.Version != expectedVersion {
		return model.AuditRecord{}, model.ErrConflict
	}
	rec = rec.MergeMetadata(patch)
	rec.Version++
	r.records[id] = rec
	return rec, nil
}

func (r *memAuditRepo) Ping(context.Context) error { return nil }

func (r *memAuditRepo) byAction(action model.AuditAction) []model.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matching(outbound.AuditFilter{Actions: []model.AuditAction{action}})
}

func (r *memAuditRepo) put(rec model.AuditRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
}

var _ outbound.AuditRepository = (*memAuditRepo)(nil)

// createCountingRepo fails every Create after the first failAfter calls.
type createCountingRepo struct {
	*memAuditRepo
	failAfter int
	calls     *int
}

func (r *createCountingRepo) Create(ctx context.Context, rec model.AuditRecord) (model.AuditRecord, error) {
	*r.calls++
	if *r.calls > r.failAfter {
		return model.AuditRecord{}, errStoreDown
	}
	return r.memAuditRepo.Create(ctx, rec)
}

// --- in-memory user repository ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
	err   error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]model.User)}
}

func (r *memUserRepo) Upsert(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if prev, ok := r.users[u.ID]; ok {
		u.CreatedAt = prev.CreatedAt
	}
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) Count(_ context.Context, f outbound.UserFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for _, u := range r.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Verified != nil && u.Verified != *f.Verified {
			continue
		}
		n++
	}
	return n, nil
}

var _ outbound.UserRepository = (*memUserRepo)(nil)

// --- recording notifier ---

type recordingNotifier struct {
	mu   sync.Mutex
	sent []outbound.AlertNotification
	err  error
}

func (n *recordingNotifier) NotifySecurityAlert(_ context.Context, a outbound.AlertNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, a)
	return n.err
}

var _ outbound.Notifier = (*recordingNotifier)(nil)

// --- map cache ---

type mapCache struct {
	mu     sync.Mutex
	items  map[string][]byte
	purges int
}

func newMapCache() *mapCache { return &mapCache{items: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *mapCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string][]byte)
	c.purges++
	return nil
}

var _ outbound.Cache = (*mapCache)(nil)

var errStoreDown = errors.New("connection refused")
