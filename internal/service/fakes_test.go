package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/repository"
)

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.ServiceRequest
	failID   string
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*domain.ServiceRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *fakeRequestRepo) Update(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == r.failID {
		return fmt.Errorf("simulated update failure")
	}
	if _, ok := r.requests[req.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepo) GetByTrackingCode(_ context.Context, code string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.TrackingCode == code {
			clone := *req
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRequestRepo) TrackingCodeExists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.TrackingCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRequestRepo) ListWithFilter(_ context.Context, filter repository.RequestFilter) ([]domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ServiceRequest
	for _, req := range r.requests {
		if matchesFilter(req, filter) {
			result = append(result, *req)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *fakeRequestRepo) CountWithFilter(ctx context.Context, filter repository.RequestFilter) (int, error) {
	items, err := r.ListWithFilter(ctx, filter)
	return len(items), err
}

func (r *fakeRequestRepo) ListOpen(_ context.Context) ([]domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ServiceRequest
	for _, req := range r.requests {
		if !req.Status.Terminal() {
			result = append(result, *req)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func matchesFilter(req *domain.ServiceRequest, filter repository.RequestFilter) bool {
	if filter.MunicipalityID != nil && req.MunicipalityID != *filter.MunicipalityID {
		return false
	}
	if filter.DistrictID != nil && req.DistrictID != *filter.DistrictID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, req.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !containsCategory(filter.Categories, req.Category) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, req.Priority) {
		return false
	}
	return true
}

func containsStatus(set []domain.RequestStatus, v domain.RequestStatus) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsCategory(set []domain.RequestCategory, v domain.RequestCategory) bool {
	for _, c := range set {
		if c == v {
			return true
		}
	}
	return false
}

func containsPriority(set []domain.RequestPriority, v domain.RequestPriority) bool {
	for _, p := range set {
		if p == v {
			return true
		}
	}
	return false
}

type fakeUpdateRepo struct {
	mu      sync.Mutex
	updates []domain.RequestUpdate
}

func newFakeUpdateRepo() *fakeUpdateRepo {
	return &fakeUpdateRepo{}
}

func (r *fakeUpdateRepo) Create(_ context.Context, update *domain.RequestUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, *update)
	return nil
}

func (r *fakeUpdateRepo) ListByRequest(_ context.Context, requestID string, includeInternal bool) ([]domain.RequestUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.RequestUpdate
	for _, update := range r.updates {
		if update.RequestID != requestID {
			continue
		}
		if update.IsInternal && !includeInternal {
			continue
		}
		result = append(result, update)
	}
	return result, nil
}

func (r *fakeUpdateRepo) byRequest(requestID string) []domain.RequestUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.RequestUpdate
	for _, update := range r.updates {
		if update.RequestID == requestID {
			result = append(result, update)
		}
	}
	return result
}

type fakeDistrictRepo struct {
	districts map[string]*domain.District
}

func newFakeDistrictRepo(districts ...*domain.District) *fakeDistrictRepo {
	repo := &fakeDistrictRepo{districts: make(map[string]*domain.District)}
	for _, district := range districts {
		repo.districts[district.ID] = district
	}
	return repo
}

func (r *fakeDistrictRepo) GetByID(_ context.Context, id string) (*domain.District, error) {
	district, ok := r.districts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return district, nil
}

func (r *fakeDistrictRepo) List(_ context.Context) ([]domain.District, error) {
	var result []domain.District
	for _, district := range r.districts {
		result = append(result, *district)
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}
