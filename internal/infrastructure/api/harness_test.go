package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/auth"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// in-memory repositories backing the handler tests

type memReports struct {
	mu      sync.Mutex
	records map[domain.CongregationID][]domain.RawRecord
	err     error
}

func (r *memReports) FetchAll(_ context.Context, id domain.CongregationID) ([]domain.RawRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.RawRecord(nil), r.records[id]...), nil
}

func (r *memReports) Save(_ context.Context, doc *domain.ReportDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[doc.CongregationID()] = append(r.records[doc.CongregationID()], doc.Raw())
	return nil
}

func (r *memReports) SaveBatch(ctx context.Context, docs []*domain.ReportDocument) error {
	for _, d := range docs {
		if err := r.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

type memCongregations struct {
	mu     sync.Mutex
	bySlug map[string]*domain.Congregation
}

func (r *memCongregations) Save(_ context.Context, c *domain.Congregation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySlug[c.Slug().String()] = c
	return nil
}

func (r *memCongregations) FindByID(_ context.Context, id domain.CongregationID) (*domain.Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.bySlug {
		if c.ID() == id {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCongregations) FindBySlug(_ context.Context, slug domain.Slug) (*domain.Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.bySlug[slug.String()]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memCongregations) ListActive(context.Context) ([]*domain.Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Congregation
	for _, c := range r.bySlug {
		if c.IsActive() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCongregations) ListStats(context.Context) ([]domain.CongregationStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CongregationStats, 0, len(r.bySlug))
	for _, c := range r.bySlug {
		out = append(out, domain.CongregationStats{Congregation: c})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Congregation.Slug().String() < out[j].Congregation.Slug().String()
	})
	return out, nil
}

type memCredentials struct {
	mu    sync.Mutex
	creds map[domain.CongregationID]domain.PanelCredentials
}

func (r *memCredentials) Save(_ context.Context, c domain.PanelCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[c.CongregationID] = c
	return nil
}

func (r *memCredentials) FindByCongregation(_ context.Context, id domain.CongregationID) (*domain.PanelCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

type memMembers struct {
	mu      sync.Mutex
	members []*domain.Member
}

func (r *memMembers) FetchAll(_ context.Context, id domain.CongregationID) ([]*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Member
	for _, m := range r.members {
		if m.CongregationID() == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMembers) Save(_ context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.members {
		if existing.ID() == m.ID() {
			r.members[i] = m
			return nil
		}
	}
	r.members = append(r.members, m)
	return nil
}

func (r *memMembers) FindByName(_ context.Context, id domain.CongregationID, name string) (*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.CongregationID() == id && strings.EqualFold(m.Name(), name) {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memNotifications struct {
	mu   sync.Mutex
	list []*domain.Notification
}

func (r *memNotifications) Save(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append([]*domain.Notification{n}, r.list...)
	return nil
}

func (r *memNotifications) FindByID(_ context.Context, id domain.NotificationID) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.list {
		if n.ID() == id {
			return n, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memNotifications) ListByCongregation(_ context.Context, id domain.CongregationID, limit int) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.list {
		if n.CongregationID() == id && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNotifications) MarkRead(_ context.Context, id domain.NotificationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.list {
		if n.ID() == id {
			n.MarkRead()
			return nil
		}
	}
	return domain.ErrNotFound
}

type memSubscriptions struct {
	mu   sync.Mutex
	subs []*domain.WebhookSubscription
}

func (r *memSubscriptions) Save(_ context.Context, s *domain.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
	return nil
}

func (r *memSubscriptions) FindByCongregation(_ context.Context, id domain.CongregationID) ([]*domain.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WebhookSubscription
	for _, s := range r.subs {
		if s.CongregationID() == id {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubscriptions) Delete(_ context.Context, id domain.WebhookSubscriptionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.ID() == id {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (noopUnitOfWork) Commit(context.Context) error                       { return nil }
func (noopUnitOfWork) Rollback(context.Context) error                     { return nil }

type stubQueue struct{ docs []*domain.ReportDocument }

func (q *stubQueue) Enqueue(doc *domain.ReportDocument) bool {
	q.docs = append(q.docs, doc)
	return true
}

var errStoreDown = errors.New("connection refused")

const (
	testAdminToken = "admin-token"
	testSlug       = "iglesia-central"
	testPassword   = "hermanos2024"
)

// testApp wires the real use cases over in-memory repositories.
type testApp struct {
	e             *echo.Echo
	reports       *memReports
	congregations *memCongregations
	central       *domain.Congregation
	submit        *application.SubmitReportUseCase
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := logging.Discard()
	now := func() time.Time { return time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) }

	reports := &memReports{records: make(map[domain.CongregationID][]domain.RawRecord)}
	congregations := &memCongregations{bySlug: make(map[string]*domain.Congregation)}
	credentials := &memCredentials{creds: make(map[domain.CongregationID]domain.PanelCredentials)}
	members := &memMembers{}
	hasher := auth.NewBcryptHasher(4)
	jwt := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)

	congregationUC := application.NewCongregationUseCase(congregations, credentials, noopUnitOfWork{}, hasher, logger)
	_, err := congregationUC.Create(context.Background(), application.CreateCongregationInput{
		Slug:     testSlug,
		Name:     "Iglesia Central",
		Password: testPassword,
	})
	require.NoError(t, err)
	central := congregations.bySlug[testSlug]

	reports.records[central.ID()] = []domain.RawRecord{
		{"nombre": "Ana", "ministerio": "Damas y Jóvenes", "fecha": "2024-03-03", "capitulos": 5, "horas": 1, "minutos": 45},
		{"memberName": "Beto", "ministry": "Caballeros", "submittedAt": "2024-03-04T22:00:00Z", "chapters": "8", "prayerMinutes": 30.0},
		{"memberName": "Carla", "ministry": "Damas", "chapters": 4},
	}

	submitUC := application.NewSubmitReportUseCase(reports, congregations, logger).
		WithMemberDirectory(members).
		WithTimeProvider(now)
	reportingUC := application.NewReportingUseCase(reports, congregations, application.DefaultReportingConfig(), logger).
		WithTimeProvider(now)
	panelUC := application.NewPanelAuthUseCase(congregations, credentials, hasher, jwt, logger)
	membersUC := application.NewMembersUseCase(members, logger).WithTimeProvider(now)
	notificationsUC := application.NewNotificationsUseCase(&memNotifications{}, &memSubscriptions{}, logger)

	e := newEcho(DefaultServerConfig(), logger)
	RegisterRoutes(e, RouterConfig{
		SubmitReportUseCase:  submitUC,
		ReportingUseCase:     reportingUC,
		PanelAuthUseCase:     panelUC,
		CongregationUseCase:  congregationUC,
		MembersUseCase:       membersUC,
		NotificationsUseCase: notificationsUC,
		TokenValidator:       jwt,
		AdminToken:           testAdminToken,
		HealthChecks:         map[string]HealthChecker{},
		Logger:               logger,
	})

	return &testApp{e: e, reports: reports, congregations: congregations, central: central, submit: submitUC}
}

func (a *testApp) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}
