package reference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/chemtalk/pkg/cache"
)

type countingSource struct {
	inner Source
	calls int
	err   error
}

func (c *countingSource) Find(ctx context.Context, name string) (*Compound, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Find(ctx, name)
}

func TestLookupCachesForADay(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	src := &countingSource{inner: NewStaticSource()}
	l := NewLookup(src, cache.NewTTL[Compound](24*time.Hour, cache.WithClock(func() time.Time { return now })), nil)

	c, err := l.Get(context.Background(), "H2O")
	require.NoError(t, err)
	assert.Equal(t, "Water", c.Name)
	assert.True(t, c.Polar)

	_, err = l.Get(context.Background(), " h2o ")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	now = now.Add(24 * time.Hour)
	_, err = l.Get(context.Background(), "H2O")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "expired entry is fetched again")
}

func TestLookupDoesNotCacheFailures(t *testing.T) {
	src := &countingSource{inner: NewStaticSource(), err: errors.New("upstream")}
	l := NewLookup(src, cache.NewTTL[Compound](time.Hour), nil)

	_, err := l.Get(context.Background(), "benzene")
	assert.Error(t, err)
	src.err = nil
	c, err := l.Get(context.Background(), "benzene")
	require.NoError(t, err)
	assert.Equal(t, "C6H6", c.Formula)
	assert.Equal(t, 2, src.calls)

	_, err = l.Get(context.Background(), "unobtainium")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}
