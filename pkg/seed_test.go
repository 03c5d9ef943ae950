package hcaldigi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedService(t *testing.T) {
	run, err := NewSeedService(SeedModeRun, 99, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), run.Master())

	external, err := NewSeedService(SeedModeExternal, 99, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), external.Master())

	_, err = NewSeedService("dice", 0, 0)
	var configErr *ErrConfiguration
	assert.ErrorAs(t, err, &configErr)
}

func TestSeedService_GetSeed(t *testing.T) {
	a, err := NewSeedService(SeedModeExternal, 7, 0)
	require.NoError(t, err)
	b, err := NewSeedService(SeedModeExternal, 7, 0)
	require.NoError(t, err)
	c, err := NewSeedService(SeedModeExternal, 8, 0)
	require.NoError(t, err)

	names := []string{SeedNoiseGenerator, SeedNoiseInjector, SeedHgcrocEmulator}
	seen := make(map[uint64]string)
	for _, name := range names {
		seed := a.GetSeed(name)
		assert.Equal(t, seed, b.GetSeed(name), name)
		assert.NotEqual(t, seed, c.GetSeed(name), name)
		_, dup := seen[seed]
		assert.False(t, dup, "%s shares its seed", name)
		seen[seed] = name
	}
}

func TestProducerSeedFrom_DoesNotReseed(t *testing.T) {
	config := DefaultConfiguration()
	p, err := NewHcalDigiProducer(config)
	require.NoError(t, err)
	assert.False(t, p.Seeded())
	p.NoiseInjector().Threshold = -10

	first, err := NewSeedService(SeedModeExternal, 1, 0)
	require.NoError(t, err)
	p.SeedFrom(first)
	require.True(t, p.Seeded())
	a, _, err := p.NoiseInjector().NoiseHit()
	require.NoError(t, err)

	// a second seeding leaves the streams alone
	q, err := NewHcalDigiProducer(config)
	require.NoError(t, err)
	q.NoiseInjector().Threshold = -10
	q.SeedFrom(first)
	second, err := NewSeedService(SeedModeExternal, 2, 0)
	require.NoError(t, err)
	q.SeedFrom(second)
	b, _, err := q.NoiseInjector().NoiseHit()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
