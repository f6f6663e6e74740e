package universe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sieve/internal/contracts"
	"github.com/wonny/sieve/pkg/config"
	"github.com/wonny/sieve/pkg/logger"
	"github.com/wonny/sieve/pkg/redis"
)

type fakeSource struct {
	universe contracts.Universe
	err      error
	loads    int
}

func (f *fakeSource) Load(_ context.Context) (contracts.Universe, error) {
	f.loads++
	return f.universe, f.err
}

func cacheClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client, err := redis.New(config.FromMap(map[string]string{
		"REDIS_ENABLED": "true",
		"REDIS_HOST":    host,
		"REDIS_PORT":    port,
	}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func disabledClient(t *testing.T) *redis.Client {
	t.Helper()
	client, err := redis.New(config.FromMap(map[string]string{"REDIS_ENABLED": "false"}))
	require.NoError(t, err)
	return client
}

func sampleUniverse() contracts.Universe {
	return contracts.Universe{
		Date: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Entries: []contracts.UniverseEntry{
			{Ticker: "AAA", Code: "AAA", Name: "Alpha", Market: "MAIN"},
			{Ticker: "BBB", Code: "BBB", Name: "Beta", Market: "GROWTH"},
			{Ticker: "AAA", Code: "AAA", Name: "Alpha dup", Market: "MAIN"},
		},
	}
}

func TestUniverseCachesAcrossCalls(t *testing.T) {
	source := &fakeSource{universe: sampleUniverse()}
	p := NewProvider(source, cacheClient(t), time.Hour, logger.NewNop())

	first, err := p.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count(), "deduplicated")

	second, err := p.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, 1, source.loads, "second call served from cache")
}

func TestUniverseDisabledCacheAlwaysLoads(t *testing.T) {
	source := &fakeSource{universe: sampleUniverse()}
	p := NewProvider(source, disabledClient(t), time.Hour, logger.NewNop())

	_, err := p.Universe(context.Background())
	require.NoError(t, err)
	_, err = p.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}

func TestUniverseSourceErrorPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("db down")}
	p := NewProvider(source, disabledClient(t), time.Hour, logger.NewNop())

	_, err := p.Universe(context.Background())
	assert.Error(t, err)
}

func TestInvalidateForcesReload(t *testing.T) {
	source := &fakeSource{universe: sampleUniverse()}
	p := NewProvider(source, cacheClient(t), time.Hour, logger.NewNop())

	_, err := p.Universe(context.Background())
	require.NoError(t, err)

	p.Invalidate(context.Background())

	_, err = p.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}
