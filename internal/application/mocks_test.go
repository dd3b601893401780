package application

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joacominatel/yujo/internal/domain"
)

type mockReportRepo struct{ mock.Mock }

func (m *mockReportRepo) FetchAll(ctx context.Context, id domain.CongregationID) ([]domain.RawRecord, error) {
	args := m.Called(ctx, id)
	raws, _ := args.Get(0).([]domain.RawRecord)
	return raws, args.Error(1)
}

func (m *mockReportRepo) Save(ctx context.Context, doc *domain.ReportDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockReportRepo) SaveBatch(ctx context.Context, docs []*domain.ReportDocument) error {
	return m.Called(ctx, docs).Error(0)
}

type mockCongregationRepo struct{ mock.Mock }

func (m *mockCongregationRepo) Save(ctx context.Context, c *domain.Congregation) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCongregationRepo) FindByID(ctx context.Context, id domain.CongregationID) (*domain.Congregation, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Congregation)
	return c, args.Error(1)
}

func (m *mockCongregationRepo) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Congregation, error) {
	args := m.Called(ctx, slug)
	c, _ := args.Get(0).(*domain.Congregation)
	return c, args.Error(1)
}

func (m *mockCongregationRepo) ListActive(ctx context.Context) ([]*domain.Congregation, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]*domain.Congregation)
	return cs, args.Error(1)
}

func (m *mockCongregationRepo) ListStats(ctx context.Context) ([]domain.CongregationStats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).([]domain.CongregationStats)
	return s, args.Error(1)
}

type mockCredentialsRepo struct{ mock.Mock }

func (m *mockCredentialsRepo) Save(ctx context.Context, creds domain.PanelCredentials) error {
	return m.Called(ctx, creds).Error(0)
}

func (m *mockCredentialsRepo) FindByCongregation(ctx context.Context, id domain.CongregationID) (*domain.PanelCredentials, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.PanelCredentials)
	return c, args.Error(1)
}

type mockMemberRepo struct{ mock.Mock }

func (m *mockMemberRepo) FetchAll(ctx context.Context, id domain.CongregationID) ([]*domain.Member, error) {
	args := m.Called(ctx, id)
	ms, _ := args.Get(0).([]*domain.Member)
	return ms, args.Error(1)
}

func (m *mockMemberRepo) Save(ctx context.Context, member *domain.Member) error {
	return m.Called(ctx, member).Error(0)
}

func (m *mockMemberRepo) FindByName(ctx context.Context, id domain.CongregationID, name string) (*domain.Member, error) {
	args := m.Called(ctx, id, name)
	member, _ := args.Get(0).(*domain.Member)
	return member, args.Error(1)
}

type mockNotificationRepo struct{ mock.Mock }

func (m *mockNotificationRepo) Save(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id domain.NotificationID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationRepo) ListByCongregation(ctx context.Context, id domain.CongregationID, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, id, limit)
	ns, _ := args.Get(0).([]*domain.Notification)
	return ns, args.Error(1)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id domain.NotificationID) error {
	return m.Called(ctx, id).Error(0)
}

type mockSubscriptionRepo struct{ mock.Mock }

func (m *mockSubscriptionRepo) Save(ctx context.Context, sub *domain.WebhookSubscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockSubscriptionRepo) FindByCongregation(ctx context.Context, id domain.CongregationID) ([]*domain.WebhookSubscription, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).([]*domain.WebhookSubscription)
	return s, args.Error(1)
}

func (m *mockSubscriptionRepo) Delete(ctx context.Context, id domain.WebhookSubscriptionID) error {
	return m.Called(ctx, id).Error(0)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, n *domain.Notification) (int, error) {
	args := m.Called(ctx, n)
	return args.Int(0), args.Error(1)
}

// fakeQueue accepts until full.
type fakeQueue struct {
	docs []*domain.ReportDocument
	full bool
}

func (q *fakeQueue) Enqueue(doc *domain.ReportDocument) bool {
	if q.full {
		return false
	}
	q.docs = append(q.docs, doc)
	return true
}

// fakeLeaderboard is an in-memory LeaderboardCache.
type fakeLeaderboard struct {
	mu       sync.Mutex
	rankings map[string][]domain.RankEntry
	stores   int

	invalidations int
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{rankings: make(map[string][]domain.RankEntry)}
}

func (f *fakeLeaderboard) key(id string, month domain.YearMonth, metric domain.Metric) string {
	return id + "|" + month.String() + "|" + metric.String()
}

func (f *fakeLeaderboard) StoreRanking(_ context.Context, id string, month domain.YearMonth, metric domain.Metric, entries []domain.RankEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rankings[f.key(id, month, metric)] = entries
	f.stores++
	return nil
}

func (f *fakeLeaderboard) Ranking(_ context.Context, id string, month domain.YearMonth, metric domain.Metric, limit int) ([]domain.RankEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, ok := f.rankings[f.key(id, month, metric)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeLeaderboard) InvalidateMonth(_ context.Context, id string, month domain.YearMonth) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range domain.AllMetrics() {
		delete(f.rankings, f.key(id, month, m))
	}
	f.invalidations++
	return nil
}

// fakeUnitOfWork runs everything inline and records the outcome.
type fakeUnitOfWork struct {
	committed  bool
	rolledBack bool
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func (u *fakeUnitOfWork) Commit(context.Context) error {
	u.committed = true
	return nil
}

func (u *fakeUnitOfWork) Rollback(context.Context) error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

// plainHasher stores passwords reversibly so tests can assert on them.
type plainHasher struct{}

func (plainHasher) Hash(p string) ([]byte, error) { return []byte("h:" + p), nil }

func (plainHasher) Compare(hash []byte, p string) error {
	if string(hash) != "h:"+p {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(congregationID, slug string) (string, time.Time, error) {
	return "token-" + slug, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), nil
}

func fixedTime(s string) TimeProvider {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func activeCongregation(slug string) *domain.Congregation {
	c, err := domain.NewCongregation(domain.SlugFromTrusted(slug), "Iglesia Central", "")
	if err != nil {
		panic(err)
	}
	return c
}
