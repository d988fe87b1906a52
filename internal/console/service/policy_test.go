package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// memStore — потокобезопасная реализация PolicyStore в памяти,
// воспроизводящая инварианты боевого хранилища: один черновик на тип,
// одна опубликованная версия, номера не переиспользуются.
type memStore struct {
	mu       sync.Mutex
	types    map[string]*domain.PolicyType
	versions map[string][]*domain.PolicyVersion
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		types:    make(map[string]*domain.PolicyType),
		versions: make(map[string][]*domain.PolicyVersion),
	}
}

func (m *memStore) GetOrCreateType(_ context.Context, typeKey, displayName, description string) (*domain.PolicyType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.types[typeKey]; ok {
		return t, nil
	}
	t := &domain.PolicyType{TypeKey: typeKey, DisplayName: displayName, Description: description, CreatedAt: time.Now()}
	m.types[typeKey] = t
	return t, nil
}

func (m *memStore) GetType(_ context.Context, typeKey string) (*domain.PolicyType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[typeKey]
	if !ok {
		return nil, domain.ErrTypeNotFound
	}
	return t, nil
}

func (m *memStore) ListTypes(_ context.Context) ([]domain.PolicyType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PolicyType, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memStore) SaveDraft(_ context.Context, typeKey string, payload json.RawMessage, author string) (*domain.PolicyVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[typeKey]; !ok {
		return nil, domain.ErrTypeNotFound
	}
	for _, v := range m.versions[typeKey] {
		if v.Status == domain.StatusDraft {
			v.Payload = payload
			v.Author = author
			return v, nil
		}
	}
	m.nextID++
	v := &domain.PolicyVersion{
		ID: m.nextID, TypeKey: typeKey, Status: domain.StatusDraft,
		Payload: payload, Author: author, CreatedAt: time.Now(),
	}
	m.versions[typeKey] = append(m.versions[typeKey], v)
	return v, nil
}

func (m *memStore) GetDraft(_ context.Context, typeKey string) (*domain.PolicyVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions[typeKey] {
		if v.Status == domain.StatusDraft {
			return v, nil
		}
	}
	return nil, domain.ErrNoDraft
}

func (m *memStore) Publish(_ context.Context, typeKey, author string) (*domain.PolicyVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[typeKey]; !ok {
		return nil, domain.ErrTypeNotFound
	}
	var draft *domain.PolicyVersion
	var maxNo int64
	for _, v := range m.versions[typeKey] {
		if v.Status == domain.StatusDraft {
			draft = v
		}
		if v.VersionNo > maxNo {
			maxNo = v.VersionNo
		}
	}
	if draft == nil {
		return nil, domain.ErrNoDraft
	}
	for _, v := range m.versions[typeKey] {
		if v.Status == domain.StatusPublished {
			v.Status = domain.StatusSuperseded
		}
	}
	now := time.Now()
	draft.Status = domain.StatusPublished
	draft.VersionNo = maxNo + 1
	draft.Author = author
	draft.PublishedAt = &now
	return draft, nil
}

func (m *memStore) GetPublished(_ context.Context, typeKey string) (*domain.PolicyVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions[typeKey] {
		if v.Status == domain.StatusPublished {
			return v, nil
		}
	}
	return nil, domain.ErrNoPublished
}

func (m *memStore) ListVersions(_ context.Context, typeKey string, _ int) ([]domain.PolicyVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PolicyVersion, 0, len(m.versions[typeKey]))
	for _, v := range m.versions[typeKey] {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNo > out[j].VersionNo })
	return out, nil
}

func (m *memStore) GetVersion(_ context.Context, typeKey string, versionNo int64) (*domain.PolicyVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions[typeKey] {
		if v.VersionNo == versionNo {
			return v, nil
		}
	}
	return nil, domain.ErrNoPublished
}

func validPayload(desc string) json.RawMessage {
	raw, _ := json.Marshal(domain.PolicyDocument{
		SchemaVersion: domain.SchemaVersionCurrent,
		Description:   desc,
		Rules: []domain.PolicyRule{
			{ID: "R1", Path: "/api/v1/shipments*", Method: "GET", Scope: []string{domain.DimensionCustomer}},
		},
	})
	return raw
}

func newService(t *testing.T) (*PolicyService, *memStore) {
	t.Helper()
	store := newMemStore()
	if _, err := store.GetOrCreateType(context.Background(), domain.TypeKeyRoleScopePolicy, "Role scope policy", ""); err != nil {
		t.Fatal(err)
	}
	return NewPolicyService(store, nil, zap.NewNop()), store
}

func TestSaveDraftRejectsInvalidPayload(t *testing.T) {
	svc, store := newService(t)

	_, err := svc.SaveDraft(context.Background(), domain.TypeKeyRoleScopePolicy,
		json.RawMessage(`{"schema_version": "9.9", "rules": []}`), "op@example.com")

	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.GetDraft(context.Background(), domain.TypeKeyRoleScopePolicy); !errors.Is(err, domain.ErrNoDraft) {
		t.Fatal("invalid payload must never reach the store")
	}
}

func TestPublishWithoutDraft(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Publish(context.Background(), domain.TypeKeyRoleScopePolicy, "op@example.com")
	if !errors.Is(err, domain.ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft, got %v", err)
	}
}

func TestPublishAssignsMonotonicVersions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		if _, err := svc.SaveDraft(ctx, domain.TypeKeyRoleScopePolicy, validPayload("v"), "op@example.com"); err != nil {
			t.Fatal(err)
		}
		v, err := svc.Publish(ctx, domain.TypeKeyRoleScopePolicy, "op@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if v.VersionNo != want {
			t.Fatalf("publish %d: got version %d", want, v.VersionNo)
		}
	}

	// Ровно одна published, остальные superseded
	versions, _ := svc.ListVersions(ctx, domain.TypeKeyRoleScopePolicy, 0)
	published := 0
	for _, v := range versions {
		if v.Status == domain.StatusPublished {
			published++
		}
	}
	if published != 1 {
		t.Fatalf("expected exactly one published version, got %d", published)
	}
}

func TestPublishDrainsDraft(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	svc.SaveDraft(ctx, domain.TypeKeyRoleScopePolicy, validPayload("v"), "op@example.com")
	if _, err := svc.Publish(ctx, domain.TypeKeyRoleScopePolicy, "op@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetDraft(ctx, domain.TypeKeyRoleScopePolicy); !errors.Is(err, domain.ErrNoDraft) {
		t.Fatal("published draft must leave the draft slot empty")
	}
}

func TestPublishUnknownType(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Publish(context.Background(), "no_such_type", "op@example.com")
	if !errors.Is(err, domain.ErrTypeNotFound) {
		t.Fatalf("expected ErrTypeNotFound, got %v", err)
	}
}

func TestConcurrentPublishesNeverReuseVersionNumbers(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var assigned []int64

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SaveDraft(ctx, domain.TypeKeyRoleScopePolicy, validPayload("v"), "op@example.com"); err != nil {
				return
			}
			v, err := svc.Publish(ctx, domain.TypeKeyRoleScopePolicy, "op@example.com")
			if err != nil {
				// Чужая горутина могла опубликовать наш черновик — это не сбой
				if errors.Is(err, domain.ErrNoDraft) {
					return
				}
				t.Error(err)
				return
			}
			mu.Lock()
			assigned = append(assigned, v.VersionNo)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(assigned) == 0 {
		t.Fatal("no publish succeeded")
	}
	seen := make(map[int64]bool)
	var max int64
	for _, no := range assigned {
		if seen[no] {
			t.Fatalf("version number %d assigned twice", no)
		}
		seen[no] = true
		if no > max {
			max = no
		}
	}
	if max != int64(len(assigned)) {
		t.Fatalf("version numbers must be dense and monotonic: max %d for %d publishes", max, len(assigned))
	}
}
