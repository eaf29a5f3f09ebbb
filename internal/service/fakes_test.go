package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"assetdesk/internal/model"
	"assetdesk/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes for the repository layer. The fake transaction manager
// snapshots the store before running the unit of work and restores it on
// error, matching the all-or-nothing contract of the real one.

type memStore struct {
	requests    map[uuid.UUID]model.Request
	assets      map[uuid.UUID]model.Asset
	users       map[uuid.UUID]model.User
	departments map[uuid.UUID]model.Department
	audit       []model.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		requests:    make(map[uuid.UUID]model.Request),
		assets:      make(map[uuid.UUID]model.Asset),
		users:       make(map[uuid.UUID]model.User),
		departments: make(map[uuid.UUID]model.Department),
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.assets {
		c.assets[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	c.audit = append(c.audit, s.audit...)
	return c
}

// --- TransactionManager ---

type fakeTxManager struct {
	store *memStore
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	snapshot := t.store.clone()
	if err := fn(ctx); err != nil {
		*t.store = *snapshot
		return err
	}
	return nil
}

// --- RequestRepository ---

type fakeRequestRepo struct {
	store *memStore
}

func (r *fakeRequestRepo) Create(_ context.Context, req *model.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	r.store.requests[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Request, error) {
	req, ok := r.store.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *fakeRequestRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AssetID != nil {
		if asset, ok := r.store.assets[*req.AssetID]; ok {
			req.Asset = &asset
		}
	}
	if requester, ok := r.store.users[req.RequestedBy]; ok {
		req.Requester = &requester
	}
	if req.RequestedTo != nil {
		if assignee, ok := r.store.users[*req.RequestedTo]; ok {
			req.Assignee = &assignee
		}
	}
	if req.ResolvedBy != nil {
		if resolver, ok := r.store.users[*req.ResolvedBy]; ok {
			req.Resolver = &resolver
		}
	}
	return req, nil
}

func (r *fakeRequestRepo) matches(req model.Request, filter repository.RequestFilter) bool {
	if filter.RequestedBy != nil && req.RequestedBy != *filter.RequestedBy {
		return false
	}
	if filter.RequestedTo != nil && (req.RequestedTo == nil || *req.RequestedTo != *filter.RequestedTo) {
		return false
	}
	if filter.DepartmentID != nil && (req.DepartmentID == nil || *req.DepartmentID != *filter.DepartmentID) {
		return false
	}
	if filter.Type != "" && req.Type != filter.Type {
		return false
	}
	if filter.Status != "" && req.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		if req.AssetID == nil {
			return false
		}
		asset, ok := r.store.assets[*req.AssetID]
		if !ok {
			return false
		}
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(asset.Name), needle) &&
			!strings.Contains(strings.ToLower(asset.Tag), needle) {
			return false
		}
	}
	return true
}

func (r *fakeRequestRepo) List(_ context.Context, filter repository.RequestFilter, page, limit int) ([]model.Request, int64, error) {
	var all []model.Request
	for _, req := range r.store.requests {
		if r.matches(req, filter) {
			all = append(all, req)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	offset := (page - 1) * limit
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.requests, id)
	return nil
}

func (r *fakeRequestRepo) TransitionStatus(_ context.Context, id uuid.UUID, newStatus string, resolvedBy *uuid.UUID, reason string) (int64, error) {
	req, ok := r.store.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return 0, nil
	}
	now := time.Now()
	req.Status = newStatus
	req.ResolvedBy = resolvedBy
	req.ResolvedAt = &now
	req.RejectionReason = reason
	req.UpdatedAt = now
	r.store.requests[id] = req
	return 1, nil
}

func (r *fakeRequestRepo) CountByType(_ context.Context, filter repository.RequestFilter) (map[string]int64, error) {
	counts := make(map[string]int64, len(model.RequestTypes))
	for _, t := range model.RequestTypes {
		counts[t] = 0
	}
	for _, req := range r.store.requests {
		if r.matches(req, filter) {
			counts[req.Type]++
		}
	}
	return counts, nil
}

// --- AssetRepository ---

type fakeAssetRepo struct {
	store *memStore
	// failMutation, when set, makes SetAssignment/SetStatus fail. Used to
	// exercise transaction rollback.
	failMutation error
}

func (r *fakeAssetRepo) Create(_ context.Context, asset *model.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	r.store.assets[asset.ID] = *asset
	return nil
}

func (r *fakeAssetRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Asset, error) {
	asset, ok := r.store.assets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &asset, nil
}

func (r *fakeAssetRepo) FindByTag(_ context.Context, tag string) (*model.Asset, error) {
	for _, asset := range r.store.assets {
		if asset.Tag == tag {
			a := asset
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAssetRepo) List(_ context.Context, _, _ string, _ *uuid.UUID, _, _ int) ([]model.Asset, int64, error) {
	var all []model.Asset
	for _, asset := range r.store.assets {
		all = append(all, asset)
	}
	return all, int64(len(all)), nil
}

func (r *fakeAssetRepo) Update(_ context.Context, asset *model.Asset) error {
	r.store.assets[asset.ID] = *asset
	return nil
}

func (r *fakeAssetRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.assets, id)
	return nil
}

func (r *fakeAssetRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.store.assets[id]
	return ok, nil
}

func (r *fakeAssetRepo) SetAssignment(_ context.Context, id uuid.UUID, assignedTo *uuid.UUID, status string) error {
	if r.failMutation != nil {
		return r.failMutation
	}
	asset, ok := r.store.assets[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	asset.AssignedTo = assignedTo
	asset.Status = status
	r.store.assets[id] = asset
	return nil
}

func (r *fakeAssetRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	if r.failMutation != nil {
		return r.failMutation
	}
	asset, ok := r.store.assets[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	asset.Status = status
	r.store.assets[id] = asset
	return nil
}

// --- UserRepository ---

type fakeUserRepo struct {
	store *memStore
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range r.store.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range r.store.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, _ string, _ *uuid.UUID, _, _ int) ([]model.User, int64, error) {
	var all []model.User
	for _, user := range r.store.users {
		all = append(all, user)
	}
	return all, int64(len(all)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.users, id)
	return nil
}

func (r *fakeUserRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.store.users[id]
	return ok, nil
}

func (r *fakeUserRepo) RoleOf(_ context.Context, id uuid.UUID) (string, error) {
	user, ok := r.store.users[id]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return user.Role, nil
}

// --- DepartmentRepository ---

type fakeDepartmentRepo struct {
	store *memStore
}

func (r *fakeDepartmentRepo) Create(_ context.Context, department *model.Department) error {
	if department.ID == uuid.Nil {
		department.ID = uuid.New()
	}
	r.store.departments[department.ID] = *department
	return nil
}

func (r *fakeDepartmentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Department, error) {
	department, ok := r.store.departments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &department, nil
}

func (r *fakeDepartmentRepo) FindByName(_ context.Context, name string) (*model.Department, error) {
	for _, department := range r.store.departments {
		if department.Name == name {
			d := department
			return &d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDepartmentRepo) List(_ context.Context, _, _ int) ([]model.Department, int64, error) {
	var all []model.Department
	for _, department := range r.store.departments {
		all = append(all, department)
	}
	return all, int64(len(all)), nil
}

func (r *fakeDepartmentRepo) Update(_ context.Context, department *model.Department) error {
	r.store.departments[department.ID] = *department
	return nil
}

func (r *fakeDepartmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.departments, id)
	return nil
}

func (r *fakeDepartmentRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.store.departments[id]
	return ok, nil
}

// --- AuditRepository ---

type fakeAuditRepo struct {
	store *memStore
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	r.store.audit = append(r.store.audit, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	total := int64(len(r.store.audit))
	offset := (page - 1) * limit
	if offset >= len(r.store.audit) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(r.store.audit) {
		end = len(r.store.audit)
	}
	return r.store.audit[offset:end], total, nil
}

// --- EventPublisher ---

type capturePublisher struct {
	messages [][]byte
}

func (p *capturePublisher) Publish(message []byte) {
	p.messages = append(p.messages, message)
}

// --- Fixture ---

type fixture struct {
	store  *memStore
	assets *fakeAssetRepo
	events *capturePublisher
	svc    RequestService
	query  RequestQueryService
}

func newFixture() *fixture {
	store := newMemStore()
	requests := &fakeRequestRepo{store: store}
	assets := &fakeAssetRepo{store: store}
	users := &fakeUserRepo{store: store}
	departments := &fakeDepartmentRepo{store: store}
	audit := &fakeAuditRepo{store: store}
	tx := &fakeTxManager{store: store}
	events := &capturePublisher{}

	return &fixture{
		store:  store,
		assets: assets,
		events: events,
		svc:    NewRequestService(requests, assets, users, departments, audit, tx, events),
		query:  NewRequestQueryService(requests),
	}
}

func (f *fixture) seedUser(role string) uuid.UUID {
	id := uuid.New()
	f.store.users[id] = model.User{
		ID:       id,
		Username: "user-" + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Role:     role,
	}
	return id
}

func (f *fixture) seedAsset(status string, assignedTo *uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.store.assets[id] = model.Asset{
		ID:         id,
		Tag:        "AST-" + id.String()[:8],
		Name:       "ThinkPad " + id.String()[:4],
		Status:     status,
		AssignedTo: assignedTo,
	}
	return id
}

func (f *fixture) seedDepartment() uuid.UUID {
	id := uuid.New()
	f.store.departments[id] = model.Department{ID: id, Name: "dept-" + id.String()[:8]}
	return id
}

func uuidMust(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (f *fixture) auditActions() []string {
	actions := make([]string, 0, len(f.store.audit))
	for _, entry := range f.store.audit {
		actions = append(actions, entry.Action)
	}
	return actions
}
