package application_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// --- Template store ---

type mockTemplateStore struct {
	templates map[int64]model.BadgeTemplate
	gets      int
}

func newMockTemplateStore(templates ...model.BadgeTemplate) *mockTemplateStore {
	m := &mockTemplateStore{templates: make(map[int64]model.BadgeTemplate)}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

func (m *mockTemplateStore) Get(_ context.Context, id int64) (*model.BadgeTemplate, error) {
	m.gets++
	t, ok := m.templates[id]
	if !ok {
		return nil, driven.ErrTemplateNotFound
	}
	return &t, nil
}

func (m *mockTemplateStore) Upsert(_ context.Context, t model.BadgeTemplate) (int64, error) {
	m.templates[t.ID] = t
	return t.ID, nil
}

func (m *mockTemplateStore) ListAll(_ context.Context) ([]model.BadgeTemplate, error) {
	out := make([]model.BadgeTemplate, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

// --- User credential store ---

// mockCredentialStore keeps records in memory. WithTx snapshots the records
// and restores them when fn fails.
type mockCredentialStore struct {
	records map[int64]*model.UserCredential
	nextID  int64
	now     time.Time

	failStep   string // Tx method name that should fail.
	saveStates []model.BadgeState
	listErr    error

	// afterList runs after a List* query has taken its snapshot, with the
	// query's method name.
	afterList func(method string)
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{
		records: make(map[int64]*model.UserCredential),
		now:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func cloneCredential(c *model.UserCredential) *model.UserCredential {
	cp := *c
	cp.Attributes = append([]model.Attribute(nil), c.Attributes...)
	if c.DateOverride != nil {
		d := *c.DateOverride
		cp.DateOverride = &d
	}
	return &cp
}

func (m *mockCredentialStore) WithTx(_ context.Context, fn func(tx driven.UserCredentialTx) error) error {
	snapshot := make(map[int64]*model.UserCredential, len(m.records))
	for id, c := range m.records {
		snapshot[id] = cloneCredential(c)
	}
	nextID := m.nextID

	if err := fn(&mockCredentialTx{store: m}); err != nil {
		m.records = snapshot
		m.nextID = nextID
		return err
	}
	return nil
}

func (m *mockCredentialStore) find(username string, ref model.CredentialRef) *model.UserCredential {
	for _, c := range m.records {
		if c.Username == username && c.Credential == ref {
			return c
		}
	}
	return nil
}

// put stores a record directly, bypassing the issuer.
func (m *mockCredentialStore) put(c model.UserCredential) *model.UserCredential {
	m.nextID++
	c.ID = m.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now
	}
	m.records[c.ID] = &c
	return cloneCredential(&c)
}

func (m *mockCredentialStore) Get(_ context.Context, id int64) (*model.UserCredential, error) {
	c, ok := m.records[id]
	if !ok {
		return nil, driven.ErrCredentialNotFound
	}
	return cloneCredential(c), nil
}

func (m *mockCredentialStore) Find(_ context.Context, username string, ref model.CredentialRef) (*model.UserCredential, error) {
	c := m.find(username, ref)
	if c == nil {
		return nil, nil
	}
	return cloneCredential(c), nil
}

func (m *mockCredentialStore) ListByUsername(_ context.Context, username string) ([]model.UserCredential, error) {
	return m.list(func(c *model.UserCredential) bool { return c.Username == username }), nil
}

func (m *mockCredentialStore) SaveExternal(_ context.Context, id int64, externalID string, state model.BadgeState) error {
	c, ok := m.records[id]
	if !ok {
		return driven.ErrCredentialNotFound
	}
	c.ExternalID = externalID
	c.State = state
	return nil
}

func (m *mockCredentialStore) SaveState(_ context.Context, id int64, state model.BadgeState) error {
	c, ok := m.records[id]
	if !ok {
		return driven.ErrCredentialNotFound
	}
	c.State = state
	m.saveStates = append(m.saveStates, state)
	return nil
}

func (m *mockCredentialStore) ListUnpropagated(_ context.Context, kind model.CredentialKind, limit int) ([]model.UserCredential, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := limitCredentials(m.list(func(c *model.UserCredential) bool {
		return c.Credential.Kind == kind && c.Status == model.CredentialStatusAwarded && c.ExternalID == ""
	}), limit)
	if m.afterList != nil {
		m.afterList("ListUnpropagated")
	}
	return out, nil
}

func (m *mockCredentialStore) ListPendingRevocation(_ context.Context, kind model.CredentialKind, limit int) ([]model.UserCredential, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := limitCredentials(m.list(func(c *model.UserCredential) bool {
		return c.Credential.Kind == kind && c.Status == model.CredentialStatusRevoked && c.ExternalID != "" && !c.Revoked()
	}), limit)
	if m.afterList != nil {
		m.afterList("ListPendingRevocation")
	}
	return out, nil
}

func (m *mockCredentialStore) ListByState(_ context.Context, kind model.CredentialKind, state model.BadgeState, limit int) ([]model.UserCredential, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := limitCredentials(m.list(func(c *model.UserCredential) bool {
		return c.Credential.Kind == kind && c.State == state && c.ExternalID != ""
	}), limit)
	if m.afterList != nil {
		m.afterList("ListByState")
	}
	return out, nil
}

func (m *mockCredentialStore) list(match func(*model.UserCredential) bool) []model.UserCredential {
	var out []model.UserCredential
	for _, c := range m.records {
		if match(c) {
			out = append(out, *cloneCredential(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func limitCredentials(creds []model.UserCredential, limit int) []model.UserCredential {
	if limit > 0 && len(creds) > limit {
		return creds[:limit]
	}
	return creds
}

type mockCredentialTx struct {
	store *mockCredentialStore
}

func (t *mockCredentialTx) fail(step string) error {
	if t.store.failStep == step {
		return fmt.Errorf("%s: injected failure", step)
	}
	return nil
}

func (t *mockCredentialTx) GetOrCreate(_ context.Context, username string, ref model.CredentialRef, status model.CredentialStatus) (*model.UserCredential, bool, error) {
	if err := t.fail("GetOrCreate"); err != nil {
		return nil, false, err
	}
	if c := t.store.find(username, ref); c != nil {
		return cloneCredential(c), false, nil
	}
	created := t.store.put(model.UserCredential{
		Username:   username,
		Credential: ref,
		Status:     status,
		Attributes: []model.Attribute{},
	})
	return created, true, nil
}

func (t *mockCredentialTx) UpdateStatus(_ context.Context, id int64, status model.CredentialStatus) error {
	if err := t.fail("UpdateStatus"); err != nil {
		return err
	}
	t.store.records[id].Status = status
	return nil
}

func (t *mockCredentialTx) SetAttributes(_ context.Context, id int64, attrs []model.Attribute) error {
	if err := t.fail("SetAttributes"); err != nil {
		return err
	}
	c := t.store.records[id]
	for _, a := range attrs {
		replaced := false
		for i := range c.Attributes {
			if c.Attributes[i].Name == a.Name {
				c.Attributes[i].Value = a.Value
				replaced = true
			}
		}
		if !replaced {
			c.Attributes = append(c.Attributes, a)
		}
	}
	return nil
}

func (t *mockCredentialTx) SetDateOverride(_ context.Context, id int64, date *time.Time) error {
	if err := t.fail("SetDateOverride"); err != nil {
		return err
	}
	t.store.records[id].DateOverride = date
	return nil
}

// --- User directory ---

type mockUserDirectory struct {
	users map[string]model.User
}

func newMockUserDirectory(users ...model.User) *mockUserDirectory {
	m := &mockUserDirectory{users: make(map[string]model.User)}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUserDirectory) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, driven.ErrUserNotFound
	}
	return &u, nil
}

func (m *mockUserDirectory) Upsert(_ context.Context, user model.User) error {
	m.users[user.Username] = user
	return nil
}

// --- Notifier ---

type notification struct {
	Type       model.EventType
	Credential model.UserCredential
}

type mockNotifier struct {
	sent []notification
}

func (m *mockNotifier) NotifyBadgeAwarded(_ context.Context, cred model.UserCredential) {
	m.sent = append(m.sent, notification{Type: model.EventBadgeAwarded, Credential: cred})
}

func (m *mockNotifier) NotifyBadgeRevoked(_ context.Context, cred model.UserCredential) {
	m.sent = append(m.sent, notification{Type: model.EventBadgeRevoked, Credential: cred})
}

// --- Propagator ---

type mockPropagator struct {
	issues  []int64
	revokes []int64
	err     error
}

func (m *mockPropagator) Issue(_ context.Context, cred *model.UserCredential, _ model.BadgeTemplate) error {
	m.issues = append(m.issues, cred.ID)
	return m.err
}

func (m *mockPropagator) Revoke(_ context.Context, cred *model.UserCredential, _ model.BadgeTemplate) error {
	m.revokes = append(m.revokes, cred.ID)
	return m.err
}

// --- Credly ---

type mockCredlyAPI struct {
	issue  func(data driven.CredlyBadgeData) (*driven.CredlyBadgeResponse, error)
	revoke func(badgeID string, data driven.CredlyRevokeData) (*driven.CredlyBadgeResponse, error)
	fetch  func(badgeID string) (*driven.CredlyBadgeResponse, error)

	issued  []driven.CredlyBadgeData
	revoked []string
}

func (m *mockCredlyAPI) IssueBadge(_ context.Context, data driven.CredlyBadgeData) (*driven.CredlyBadgeResponse, error) {
	m.issued = append(m.issued, data)
	return m.issue(data)
}

func (m *mockCredlyAPI) RevokeBadge(_ context.Context, badgeID string, data driven.CredlyRevokeData) (*driven.CredlyBadgeResponse, error) {
	m.revoked = append(m.revoked, badgeID)
	return m.revoke(badgeID, data)
}

func (m *mockCredlyAPI) FetchBadge(_ context.Context, badgeID string) (*driven.CredlyBadgeResponse, error) {
	return m.fetch(badgeID)
}

type mockCredlyFactory struct {
	api  *mockCredlyAPI
	err  error
	orgs []uuid.UUID
}

func (m *mockCredlyFactory) ForOrganization(_ context.Context, org uuid.UUID) (driven.CredlyAPI, error) {
	m.orgs = append(m.orgs, org)
	if m.err != nil {
		return nil, m.err
	}
	return m.api, nil
}

func credlyResponse(id, state string) *driven.CredlyBadgeResponse {
	return &driven.CredlyBadgeResponse{Data: driven.CredlyBadge{ID: id, State: state}}
}

// --- Accredible ---

type mockAccredibleAPI struct {
	issueResp *driven.AccredibleBadgeResponse
	err       error

	issued  []driven.AccredibleBadgeData
	revoked []string
	expiry  []driven.AccredibleExpireBadgeData
}

func (m *mockAccredibleAPI) IssueBadge(_ context.Context, data driven.AccredibleBadgeData) (*driven.AccredibleBadgeResponse, error) {
	m.issued = append(m.issued, data)
	if m.err != nil {
		return nil, m.err
	}
	return m.issueResp, nil
}

func (m *mockAccredibleAPI) RevokeBadge(_ context.Context, credentialID string, data driven.AccredibleExpireBadgeData) (*driven.AccredibleBadgeResponse, error) {
	m.revoked = append(m.revoked, credentialID)
	m.expiry = append(m.expiry, data)
	if m.err != nil {
		return nil, m.err
	}
	return &driven.AccredibleBadgeResponse{}, nil
}

type mockAccredibleFactory struct {
	api     *mockAccredibleAPI
	configs []int64
}

func (m *mockAccredibleFactory) ForAPIConfig(_ context.Context, apiConfigID int64) (driven.AccredibleAPI, error) {
	m.configs = append(m.configs, apiConfigID)
	return m.api, nil
}

// --- Fixtures ---

var (
	credlyTemplateUUID = uuid.MustParse("7c1b6a0e-54c3-4d6b-9f39-0f6f5d2d8a11")
	credlyOrgUUID      = uuid.MustParse("2f0a8c61-1c0e-4b36-8b2c-9d5a3c7e4f22")
	templateCreated    = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
)

func credlyTemplate() model.BadgeTemplate {
	return model.BadgeTemplate{
		ID:        10,
		Kind:      model.CredentialKindCredly,
		Name:      "Go Fundamentals",
		CreatedAt: templateCreated,
		Credly:    &model.CredlyTemplate{UUID: credlyTemplateUUID, OrganizationUUID: credlyOrgUUID},
	}
}

func accredibleTemplate() model.BadgeTemplate {
	return model.BadgeTemplate{
		ID:         20,
		Kind:       model.CredentialKindAccredible,
		Name:       "Cloud Practitioner",
		CreatedAt:  templateCreated,
		Accredible: &model.AccredibleGroup{GroupID: 501, APIConfigID: 7},
	}
}

func baseTemplate() model.BadgeTemplate {
	return model.BadgeTemplate{ID: 30, Kind: model.CredentialKindBadgeTemplate, Name: "Mentor", CreatedAt: templateCreated}
}

func alice() model.User {
	return model.User{Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Liddell"}
}

func providerError(provider, op string, status int) error {
	return &driven.BadgeProviderError{Provider: provider, Operation: op, StatusCode: status, Err: errors.New("boom")}
}
