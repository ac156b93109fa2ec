package cache

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatCtx struct {
	Subject string `json:"subject,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

func TestFingerprintNormalizesText(t *testing.T) {
	a := Fingerprint("  What is   WATER? ", chatCtx{Subject: "H2O"})
	b := Fingerprint("what is water?", chatCtx{Subject: "H2O"})
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Fingerprint("what is water?", chatCtx{Subject: "D2O"}))
	assert.NotEqual(t, a, Fingerprint("what is water?", nil))
}

func TestFIFOEvictsFirstInserted(t *testing.T) {
	c := NewFIFO[int](100)
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	// reading the oldest must not save it
	_, ok := c.Get("k0")
	require.True(t, ok)

	c.Set("k100", 100)
	assert.Equal(t, 100, c.Len())

	_, ok = c.Get("k0")
	assert.False(t, ok)
	for i := 1; i <= 100; i++ {
		v, ok := c.Get(fmt.Sprintf("k%d", i))
		require.True(t, ok, "k%d", i)
		assert.Equal(t, i, v)
	}
}

func TestFIFOResetKeepsPosition(t *testing.T) {
	c := NewFIFO[string](2)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")
	c.Set("c", "4")

	_, ok := c.Get("a")
	assert.False(t, ok, "a was inserted first and is evicted first")
	v, _ := c.Get("b")
	assert.Equal(t, "2", v)
}

func TestFIFOConcurrentUse(t *testing.T) {
	c := NewFIFO[int](10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(fmt.Sprint(i), i)
			c.Get(fmt.Sprint(i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func TestTTLExpiresOnRead(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[string](24*time.Hour, WithClock(clk.Now))
	c.Set("NaCl", "sodium chloride")

	clk.t = clk.t.Add(23*time.Hour + 59*time.Minute)
	v, ok := c.Get("NaCl")
	require.True(t, ok)
	assert.Equal(t, "sodium chloride", v)

	clk.t = clk.t.Add(time.Minute)
	_, ok = c.Get("NaCl")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry is removed on read")
}

func TestTTLPurge(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	c := NewTTL[int](time.Hour, WithClock(clk.Now))
	c.Set("a", 1)
	clk.t = clk.t.Add(30 * time.Minute)
	c.Set("b", 2)
	clk.t = clk.t.Add(31 * time.Minute)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestPoliciesShareContract(t *testing.T) {
	var _ Cache[int] = NewFIFO[int](1)
	var _ Cache[int] = NewTTL[int](time.Second)
	var _ Cache[int] = (*RedisTTL[int])(nil)
}

func TestRedisTTL(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rc.Ping().Err())

	c := NewRedisTTL[chatCtx](rc, "chemtalk:test:", time.Minute, nil)
	c.Set("k", chatCtx{Subject: "H2O"})
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "H2O", v.Subject)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	rc.Del("chemtalk:test:k")
}
