package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// countingRepo is a CongregationRepository that counts slug lookups.
type countingRepo struct {
	domain.CongregationRepository
	bySlug  map[string]*domain.Congregation
	lookups int
	saves   int
}

func (r *countingRepo) FindBySlug(_ context.Context, slug domain.Slug) (*domain.Congregation, error) {
	r.lookups++
	c, ok := r.bySlug[slug.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (r *countingRepo) Save(_ context.Context, c *domain.Congregation) error {
	r.saves++
	r.bySlug[c.Slug().String()] = c
	return nil
}

func TestCongregationCache(t *testing.T) {
	ctx := context.Background()
	central, err := domain.NewCongregation(domain.SlugFromTrusted("iglesia-central"), "Central", "")
	require.NoError(t, err)
	repo := &countingRepo{bySlug: map[string]*domain.Congregation{"iglesia-central": central}}

	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	c := NewCongregationCache(repo, time.Minute, logging.Discard())
	c.now = func() time.Time { return now }

	t.Run("hit after first lookup", func(t *testing.T) {
		for range 3 {
			got, err := c.FindBySlug(ctx, central.Slug())
			require.NoError(t, err)
			assert.Equal(t, central.ID(), got.ID())
		}
		assert.Equal(t, 1, repo.lookups)
	})

	t.Run("unknown slugs are cached", func(t *testing.T) {
		missing := domain.SlugFromTrusted("iglesia-fantasma")
		_, err := c.FindBySlug(ctx, missing)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = c.FindBySlug(ctx, missing)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 2, repo.lookups)
	})

	t.Run("expiry refetches", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		assert.Equal(t, 2, c.Cleanup())
		_, err := c.FindBySlug(ctx, central.Slug())
		require.NoError(t, err)
		assert.Equal(t, 3, repo.lookups)
	})

	t.Run("save invalidates", func(t *testing.T) {
		central.Deactivate()
		require.NoError(t, c.Save(ctx, central))
		got, err := c.FindBySlug(ctx, central.Slug())
		require.NoError(t, err)
		assert.False(t, got.IsActive())
		assert.Equal(t, 4, repo.lookups)
	})
}
