package hcaldigi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietParameters() HgcrocParameters {
	params := DefaultHgcrocParameters()
	params.Noise = false
	params.TimingJitter = 0
	return params
}

func newSeededEmulator(t *testing.T, params HgcrocParameters, seed uint64) *HgcrocEmulator {
	t.Helper()
	emulator, err := NewHgcrocEmulator(params)
	require.NoError(t, err)
	emulator.Seed(seed)
	return emulator
}

func TestHgcroc_InvalidParameters(t *testing.T) {
	params := DefaultHgcrocParameters()
	params.ClockCycle = 0
	_, err := NewHgcrocEmulator(params)
	var configErr *ErrConfiguration
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "clock_cycle", configErr.Parameter)
}

func TestHgcroc_NotSeeded(t *testing.T) {
	emulator, err := NewHgcrocEmulator(DefaultHgcrocParameters())
	require.NoError(t, err)
	assert.False(t, emulator.HasSeed())

	_, _, err = emulator.Digitize(1, []float64{10}, []float64{0})
	assert.True(t, errors.Is(err, ErrNotSeeded))
	_, err = emulator.Sample(1, []float64{10}, []float64{0})
	assert.True(t, errors.Is(err, ErrNotSeeded))
}

func TestHgcroc_InputMismatch(t *testing.T) {
	emulator := newSeededEmulator(t, DefaultHgcrocParameters(), 1)
	_, _, err := emulator.Digitize(1, []float64{10, 20}, []float64{0})
	assert.ErrorIs(t, err, ErrInputMismatch)
}

func TestHgcroc_NoContributions(t *testing.T) {
	emulator := newSeededEmulator(t, DefaultHgcrocParameters(), 1)
	samples, ok, err := emulator.Digitize(1, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, samples)
}

func TestHgcroc_BelowReadoutThreshold(t *testing.T) {
	params := quietParameters()
	params.ReadoutThreshold = 4
	emulator := newSeededEmulator(t, params, 1)

	_, ok, err := emulator.Digitize(1, []float64{1}, []float64{0})
	require.NoError(t, err)
	assert.False(t, ok)

	samples, ok, err := emulator.Digitize(1, []float64{40}, []float64{0})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, samples, params.NADCs)
}

func TestHgcroc_SampleTimes(t *testing.T) {
	params := quietParameters()
	params.MeasTime = 3
	emulator := newSeededEmulator(t, params, 1)

	assert.Equal(t, -47.0, emulator.SampleTime(0))
	assert.Equal(t, 3.0, emulator.SampleTime(params.ISOI))
	assert.Equal(t, 1024, emulator.ClockCounts(params.ClockCycle))
	assert.Equal(t, 512, emulator.ClockCounts(params.ClockCycle/2))
}

func TestHgcroc_ADC(t *testing.T) {
	params := quietParameters()
	emulator := newSeededEmulator(t, params, 1)

	samples, ok, err := emulator.Digitize(1, []float64{60}, []float64{0})
	require.NoError(t, err)
	require.True(t, ok)
	// nothing before the pulse starts
	assert.Equal(t, int(params.Pedestal), samples[0].ADCRaw)
	assert.Equal(t, int(params.Pedestal), samples[params.ISOI].ADCRaw)
	maxADC := 0
	for _, s := range samples {
		maxADC = max(maxADC, s.ADCRaw)
	}
	assert.Greater(t, maxADC, int(params.Pedestal))
	assert.LessOrEqual(t, maxADC, int(params.Pedestal+60/params.Gain))

	samples, err = emulator.Sample(1, []float64{1e6}, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, ADCMax, samples[params.ISOI+1].ADCRaw)
}

func TestHgcroc_TOAandTOT(t *testing.T) {
	params := quietParameters()
	params.ToaThreshold = 6
	params.TotThreshold = 20
	emulator := newSeededEmulator(t, params, 1)

	samples, ok, err := emulator.Digitize(1, []float64{100}, []float64{0})
	require.NoError(t, err)
	require.True(t, ok)

	nTOA, nComplete := 0, 0
	complete := -1
	for i, s := range samples {
		if s.TOA > 0 {
			nTOA++
			// the crossing is just after the start of the pulse at t=0
			assert.Equal(t, params.ISOI+1, i)
		}
		if s.TOTComplete {
			nComplete++
			complete = i
			assert.Greater(t, s.TOT, 0)
			assert.LessOrEqual(t, s.TOT, TOTMax)
		}
	}
	assert.Equal(t, 1, nTOA)
	require.Equal(t, 1, nComplete)
	assert.True(t, samples[complete-1].TOTInProgress)
	assert.False(t, samples[complete].TOTInProgress)
	assert.False(t, samples[0].TOTInProgress)
}

func TestHgcroc_NoTOTBelowThreshold(t *testing.T) {
	params := quietParameters()
	emulator := newSeededEmulator(t, params, 1)

	samples, ok, err := emulator.Digitize(1, []float64{100}, []float64{0})
	require.NoError(t, err)
	require.True(t, ok)
	for _, s := range samples {
		assert.False(t, s.TOTComplete)
		assert.False(t, s.TOTInProgress)
		assert.Equal(t, 0, s.TOT)
	}
}

func TestHgcroc_Deterministic(t *testing.T) {
	params := DefaultHgcrocParameters()
	params.NoiseRMS = 10
	voltages := []float64{30, 12}
	times := []float64{0, 4}

	a := newSeededEmulator(t, params, 42)
	b := newSeededEmulator(t, params, 42)
	c := newSeededEmulator(t, params, 43)
	for i := 0; i < 5; i++ {
		sa, err := a.Sample(7, voltages, times)
		require.NoError(t, err)
		sb, err := b.Sample(7, voltages, times)
		require.NoError(t, err)
		sc, err := c.Sample(7, voltages, times)
		require.NoError(t, err)
		assert.Equal(t, sa, sb)
		assert.NotEqual(t, sa, sc)
	}
}
