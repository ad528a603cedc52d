package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/courier/internal/delivery"
	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/mailer"
	"github.com/ignite/courier/internal/render"
	"github.com/ignite/courier/internal/service/campaign"
	"github.com/ignite/courier/internal/tracking"
)

// memStore backs the API, campaign service and deliverer in tests.
type memStore struct {
	mu          sync.Mutex
	lists       map[uuid.UUID]*domain.List
	subscribers map[uuid.UUID]*domain.Subscriber
	campaigns   map[uuid.UUID]*domain.Campaign
	imports     map[uuid.UUID]*domain.Import
	sentMarks   int
}

func newMemStore() *memStore {
	return &memStore{
		lists:       make(map[uuid.UUID]*domain.List),
		subscribers: make(map[uuid.UUID]*domain.Subscriber),
		campaigns:   make(map[uuid.UUID]*domain.Campaign),
		imports:     make(map[uuid.UUID]*domain.Import),
	}
}

func (m *memStore) CreateList(ctx context.Context, list *domain.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list.ID = uuid.New()
	list.CreatedAt = time.Now()
	list.UpdatedAt = list.CreatedAt
	cp := *list
	m.lists[list.ID] = &cp
	return nil
}

func (m *memStore) GetList(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) GetListByShortcode(ctx context.Context, code string) (*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lists {
		if l.Shortcode == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetLists(ctx context.Context) ([]*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.List
	for _, l := range m.lists {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) UpdateList(ctx context.Context, list *domain.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *list
	m.lists[list.ID] = &cp
	return nil
}

func (m *memStore) DeleteList(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, id)
	return nil
}

func (m *memStore) ListShortcodeExists(ctx context.Context, code string) (bool, error) {
	l, err := m.GetListByShortcode(ctx, code)
	return l != nil, err
}

func (m *memStore) GetListStats(ctx context.Context, id uuid.UUID) (*domain.ListStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.ListStats{}
	for _, s := range m.subscribers {
		if s.ListID != id {
			continue
		}
		if s.Status == domain.SubscriberSubscribed {
			stats.Subscribed++
		} else {
			stats.Unsubscribed++
		}
	}
	return stats, nil
}

func (m *memStore) CreateSubscriber(ctx context.Context, sub *domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.subscribers[sub.ID] = &cp
	return nil
}

func (m *memStore) GetSubscriber(ctx context.Context, id uuid.UUID) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetSubscriberByEmail(ctx context.Context, listID uuid.UUID, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.ListID == listID && s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetSubscribers(ctx context.Context, listID uuid.UUID, limit, offset int) ([]*domain.Subscriber, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*domain.Subscriber
	for _, s := range m.subscribers {
		if s.ListID == listID {
			cp := *s
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *memStore) DeleteSubscriber(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, id)
	return nil
}

func (m *memStore) VerifySubscriber(ctx context.Context, token string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.VerificationToken != nil && *s.VerificationToken == token {
			s.VerificationToken = nil
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetSubscribedRecipients(ctx context.Context, listID uuid.UUID) ([]*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Subscriber
	for _, s := range m.subscribers {
		if s.ListID == listID && s.Status == domain.SubscriberSubscribed {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) CountSubscribed(ctx context.Context, listID uuid.UUID) (int, error) {
	subs, _ := m.GetSubscribedRecipients(ctx, listID)
	return len(subs), nil
}

func (m *memStore) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memStore) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetCampaigns(ctx context.Context, listID *uuid.UUID, limit int) ([]*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Campaign
	for _, c := range m.campaigns {
		if listID == nil || c.ListID == *listID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateCampaignContent(ctx context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateCampaignSchedule(ctx context.Context, id uuid.UUID, status domain.CampaignStatus, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.campaigns[id]
	c.Status = status
	c.ScheduledAt = at
	return nil
}

func (m *memStore) TransitionCampaignStatus(ctx context.Context, id uuid.UUID, next domain.CampaignStatus, from ...domain.CampaignStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return false, nil
	}
	for _, st := range from {
		if c.Status == st {
			c.Status = next
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkCampaignSent(ctx context.Context, id uuid.UUID, sentCount, bounces int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.campaigns[id]
	now := time.Now()
	c.Status = domain.CampaignSent
	c.SentAt = &now
	c.SentCount = sentCount
	c.Bounces = bounces
	m.sentMarks++
	return nil
}

func (m *memStore) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.campaigns, id)
	return nil
}

func (m *memStore) CampaignShortcodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.campaigns {
		if c.Shortcode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateImport(ctx context.Context, imp *domain.Import) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	imp.ID = uuid.New()
	imp.Status = domain.ImportPending
	imp.CreatedAt = time.Now()
	cp := *imp
	m.imports[imp.ID] = &cp
	return nil
}

func (m *memStore) GetImport(ctx context.Context, id uuid.UUID) (*domain.Import, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	imp, ok := m.imports[id]
	if !ok {
		return nil, nil
	}
	cp := *imp
	return &cp, nil
}

func (m *memStore) GetImports(ctx context.Context, limit int) ([]*domain.Import, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Import
	for _, imp := range m.imports {
		cp := *imp
		out = append(out, &cp)
	}
	return out, nil
}

// memFiles is an in-memory FileStore.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (f *memFiles) Save(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[key] = data
	return nil
}

func (f *memFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *memFiles) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	return nil
}

func (f *memFiles) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[key]
	return ok, nil
}

// recordingMailer captures sent messages.
type recordingMailer struct {
	mu   sync.Mutex
	sent []*mailer.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.sent = append(m.sent, &cp)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testEnv struct {
	store  *memStore
	files  *memFiles
	mail   *recordingMailer
	router http.Handler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	st := newMemStore()
	files := newMemFiles()
	mail := &recordingMailer{}
	urls := tracking.NewURLBuilder("http://track.test")
	svc := campaign.NewService(st, nil)
	del := delivery.NewDeliverer(st, mail, urls, nil, 0)
	h := NewHandlers(st, svc, del, files, render.NewFeedFetcher(), mail)
	return &testEnv{store: st, files: files, mail: mail, router: SetupRoutes(h, nil)}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedList(t *testing.T) *domain.List {
	t.Helper()
	list := &domain.List{
		Shortcode: "LIST0001",
		Name:      "Weekly",
		FromEmail: "news@example.com",
		FromName:  "Example News",
	}
	require.NoError(t, e.store.CreateList(context.Background(), list))
	return list
}

func (e *testEnv) seedSubscriber(t *testing.T, listID uuid.UUID, email string) *domain.Subscriber {
	t.Helper()
	sub := domain.NewSubscriber(listID, email, "Grace", "Hopper")
	sub.VerificationToken = nil
	require.NoError(t, e.store.CreateSubscriber(context.Background(), sub))
	return sub
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestCreateListAssignsShortcode(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/lists", map[string]string{
		"name":       "Digest",
		"from_email": "digest@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var list domain.List
	decodeBody(t, rec, &list)
	assert.Len(t, list.Shortcode, 8)
	assert.Equal(t, "Digest", list.Name)
}

func TestCreateListRequiresName(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodPost, "/api/lists", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetListNotFound(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodGet, "/api/lists/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSubscriberRejectsInvalidEmail(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)

	rec := env.do(t, http.MethodPost, "/api/lists/"+list.ID.String()+"/subscribers",
		map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSubscriberDuplicateConflicts(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	env.seedSubscriber(t, list.ID, "grace@example.com")

	rec := env.do(t, http.MethodPost, "/api/lists/"+list.ID.String()+"/subscribers",
		map[string]string{"email": "grace@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPublicSignupAndVerify(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)

	rec := env.do(t, http.MethodPost, "/public/lists/"+list.Shortcode+"/subscribe",
		map[string]string{"email": "new@example.com", "first_name": "New"})
	require.Equal(t, http.StatusOK, rec.Code)

	sub, err := env.store.GetSubscriberByEmail(context.Background(), list.ID, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.NotNil(t, sub.VerificationToken)

	rec = env.do(t, http.MethodGet, "/public/verify?token="+*sub.VerificationToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	sub, err = env.store.GetSubscriberByEmail(context.Background(), list.ID, "new@example.com")
	require.NoError(t, err)
	assert.Nil(t, sub.VerificationToken)
}

func TestPublicSignupDoesNotRevealMembership(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	env.seedSubscriber(t, list.ID, "grace@example.com")

	rec := env.do(t, http.MethodPost, "/public/lists/"+list.Shortcode+"/subscribe",
		map[string]string{"email": "grace@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicVerifyUnknownToken(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodGet, "/public/verify?token=bogus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func createCampaignViaAPI(t *testing.T, env *testEnv, listID uuid.UUID) *domain.Campaign {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/campaigns", map[string]interface{}{
		"list_id": listID,
		"name":    "Issue 1",
		"subject": "Hello {{first_name | default: \"there\"}}",
		"blocks": []map[string]interface{}{
			{"id": "b1", "type": "text", "content": "<p>Welcome {{first_name}}</p>"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c domain.Campaign
	decodeBody(t, rec, &c)
	return &c
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	env.seedSubscriber(t, list.ID, "grace@example.com")
	c := createCampaignViaAPI(t, env, list.ID)

	// Schedule in the future, then cancel back to draft.
	rec := env.do(t, http.MethodPost, "/api/campaigns/"+c.ID.String()+"/schedule",
		map[string]string{"scheduled_at": time.Now().Add(time.Hour).Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/campaigns/"+c.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Campaign
	decodeBody(t, rec, &got)
	assert.Equal(t, domain.CampaignDraft, got.Status)
}

func TestSchedulePastTimeRejected(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	c := createCampaignViaAPI(t, env, list.ID)

	rec := env.do(t, http.MethodPost, "/api/campaigns/"+c.ID.String()+"/schedule",
		map[string]string{"scheduled_at": time.Now().Add(-time.Hour).Format(time.RFC3339)})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateSendingCampaignConflicts(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	c := createCampaignViaAPI(t, env, list.ID)
	env.store.campaigns[c.ID].Status = domain.CampaignSending

	rec := env.do(t, http.MethodPut, "/api/campaigns/"+c.ID.String(),
		map[string]string{"name": "Renamed"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendCampaignEmptyListRejected(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	c := createCampaignViaAPI(t, env, list.ID)

	rec := env.do(t, http.MethodPost, "/api/campaigns/"+c.ID.String()+"/send", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSendCampaignDeliversInBackground(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	env.seedSubscriber(t, list.ID, "grace@example.com")
	env.seedSubscriber(t, list.ID, "alan@example.com")
	c := createCampaignViaAPI(t, env, list.ID)

	rec := env.do(t, http.MethodPost, "/api/campaigns/"+c.ID.String()+"/send", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	assert.Eventually(t, func() bool {
		got, _ := env.store.GetCampaign(context.Background(), c.ID)
		return got.Status == domain.CampaignSent
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, env.mail.count())

	// A second send conflicts with the terminal state.
	rec = env.do(t, http.MethodPost, "/api/campaigns/"+c.ID.String()+"/send", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPreviewRendersPersonalization(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	c := createCampaignViaAPI(t, env, list.ID)

	rec := env.do(t, http.MethodGet, "/api/campaigns/"+c.ID.String()+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var preview map[string]string
	decodeBody(t, rec, &preview)
	assert.Contains(t, preview["html"], "Welcome Sam")
	assert.Contains(t, preview["subject"], "Hello Sam")
}

func TestSendTestCampaign(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	c := createCampaignViaAPI(t, env, list.ID)

	rec := env.do(t, http.MethodPost, "/api/campaigns/"+c.ID.String()+"/test",
		map[string]string{"email": "qa@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, 1, env.mail.count())
	msg := env.mail.sent[0]
	assert.Equal(t, "qa@example.com", msg.To)
	assert.True(t, strings.HasPrefix(msg.Subject, "[TEST] "))
	// Counters stay untouched.
	got, _ := env.store.GetCampaign(context.Background(), c.ID)
	assert.Zero(t, got.SentCount)
}

func TestGetCampaignStats(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)
	c := createCampaignViaAPI(t, env, list.ID)
	env.store.campaigns[c.ID].SentCount = 200
	env.store.campaigns[c.ID].Opens = 50

	rec := env.do(t, http.MethodGet, "/api/campaigns/"+c.ID.String()+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Stats domain.CampaignStats `json:"stats"`
	}
	decodeBody(t, rec, &out)
	assert.InDelta(t, 0.25, out.Stats.OpenRate, 1e-9)
}

func multipartImport(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateImportStoresFile(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)

	body, contentType := multipartImport(t,
		map[string]string{"list_id": list.ID.String()},
		"people.csv", "email\na@example.com\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var imp domain.Import
	decodeBody(t, rec, &imp)
	assert.Equal(t, domain.ImportPending, imp.Status)
	assert.Equal(t, "people.csv", imp.Filename)

	stored, _ := env.store.GetImport(context.Background(), imp.ID)
	require.NotNil(t, stored)
	exists, err := env.files.Exists(context.Background(), stored.StoredPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateImportRequiresTarget(t *testing.T) {
	env := setupEnv(t)

	body, contentType := multipartImport(t, nil, "people.csv", "email\na@example.com\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateImportNewList(t *testing.T) {
	env := setupEnv(t)

	body, contentType := multipartImport(t,
		map[string]string{"new_list": `{"name":"Imported","from_email":"imp@example.com"}`},
		"people.csv", "email\na@example.com\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var imp domain.Import
	decodeBody(t, rec, &imp)
	require.NotNil(t, imp.NewList)
	assert.Equal(t, "Imported", imp.NewList.Name)
}

func TestCreateImportRejectsNonCSV(t *testing.T) {
	env := setupEnv(t)
	list := env.seedList(t)

	body, contentType := multipartImport(t,
		map[string]string{"list_id": list.ID.String()},
		"people.xlsx", "binary")
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetImportProgress(t *testing.T) {
	env := setupEnv(t)
	imp := &domain.Import{Filename: "people.csv", StoredPath: "imports/x.csv"}
	require.NoError(t, env.store.CreateImport(context.Background(), imp))
	env.store.imports[imp.ID].TotalRows = 200
	env.store.imports[imp.ID].ProcessedRows = 50

	rec := env.do(t, http.MethodGet, "/api/imports/"+imp.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Percent int `json:"percent"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, 25, out.Percent)
}

func TestHealthCheck(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
