package hcaldigi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBimoid_IntegralIsCharge(t *testing.T) {
	b := NewBimoidRiseFall(0, 1, 10, 1)
	assert.InDelta(t, 1.0, b.Integrate(0, 1000), 1e-9)

	b = NewBimoidRiseFall(20, 4, 20, 3.5)
	assert.InDelta(t, 3.5, b.Integrate(20, 20+1000*20), 1e-9)
}

func TestBimoid_ZeroBeforeStart(t *testing.T) {
	b := NewBimoid(10, 1)
	assert.Equal(t, 0.0, b.Eval(9.99))
	assert.Equal(t, 0.0, b.Integrate(-100, 5))
	// the lower bound is clamped at the start of the pulse
	assert.InDelta(t, b.Integrate(10, 50), b.Integrate(-100, 50), 1e-12)
}

func TestBimoid_Peak(t *testing.T) {
	b := NewBimoidRiseFall(5, 4, 20, 1)
	peak := b.PeakTime()
	assert.Greater(t, peak, 5.0)
	assert.Less(t, peak, 5+10*20.0)
	assert.InDelta(t, 0, b.Derivative(peak), 1e-4)
	assert.GreaterOrEqual(t, b.Max(), b.Eval(peak-0.5))
	assert.GreaterOrEqual(t, b.Max(), b.Eval(peak+0.5))
	assert.Equal(t, peak, b.PeakTime())
}

func TestBimoid_DerivativeMatchesEval(t *testing.T) {
	b := NewBimoidRiseFall(0, 2, 15, 1)
	h := 1e-5
	for _, x := range []float64{0.5, 3, 10, 40} {
		numeric := (b.Eval(x+h) - b.Eval(x-h)) / (2 * h)
		assert.InDelta(t, numeric, b.Derivative(x), 1e-6, "t=%g", x)
	}
}

func TestBimoid_LargeTimesAreFinite(t *testing.T) {
	b := NewBimoidRiseFall(0, 0.01, 10, 1)
	assert.False(t, math.IsNaN(b.Derivative(1e5)))
	assert.False(t, math.IsNaN(b.Integrate(0, 1e6)))
	assert.False(t, math.IsNaN(b.Derivative(-1e5)))
}

func TestExpo_ChargeConservation(t *testing.T) {
	k, tmax, charge := 0.1, 5.0, 2.0
	e := NewExpo(k, tmax, 0, charge)
	assert.InDelta(t, charge, e.Integrate(0, tmax+1000/k), 1e-9)
	assert.Equal(t, 0.0, NewExpo(k, tmax, 0, 0).Integrate(0, 100))
}

func TestExpo_Shape(t *testing.T) {
	e := NewExpo(0.2, 8, 10, 1)
	assert.Equal(t, 0.0, e.Eval(10))
	assert.Equal(t, 18.0, e.PeakTime())
	assert.InDelta(t, e.Max(), e.Eval(18), 1e-12)
	assert.Less(t, e.Eval(17), e.Max())
	assert.Less(t, e.Eval(19), e.Max())
	// continuous at the end of the charge
	assert.InDelta(t, e.Eval(18-1e-9), e.Eval(18+1e-9), 1e-8)
}

func TestExpo_SetRiseFall(t *testing.T) {
	e := NewExpoRiseFall(4, 20, 0, 1)
	assert.InDelta(t, math.Log(9)/20, e.K, 1e-12)

	rebuilt := NewExpo(e.K, e.ChargeTime, 0, 1)
	assert.InDelta(t, 4, rebuilt.RiseTime(), 1e-9)
	assert.InDelta(t, 20, rebuilt.FallTime(), 1e-9)
}

func TestExpo_RiseTimeIsTenToNinety(t *testing.T) {
	e := NewExpoRiseFall(3, 15, 0, 1)
	crossing := func(fraction float64) float64 {
		level := fraction * e.Max()
		return bisectCrossing(e, level, 0, e.ChargeTime)
	}
	assert.InDelta(t, 3, crossing(0.9)-crossing(0.1), 1e-3)
}

func TestCompositePulse(t *testing.T) {
	c := &CompositePulse{}
	assert.Equal(t, 0.0, c.Max())

	c.Add(NewBimoidRiseFall(0, 1, 10, 1))
	single := c.Max()
	c.Add(NewBimoidRiseFall(0, 1, 10, 1))
	assert.InDelta(t, 2*single, c.Max(), 1e-6)
	assert.InDelta(t, 2, c.Integrate(0, 1000), 1e-9)
	assert.InDelta(t, 0, c.Derivative(c.PeakTime()), 1e-4)
}

func TestPulseFactory(t *testing.T) {
	for _, family := range []PulseFamily{PulseBimoid, PulseExpo} {
		f, err := NewPulseFactory(family, 4, 20)
		require.NoError(t, err)

		p := f.New(30, 50)
		assert.InDelta(t, 50, p.Max(), 1e-2, "family %s", family)
		assert.InDelta(t, 30+f.PeakDelay(), p.PeakTime(), 0.1, "family %s", family)
	}

	_, err := NewPulseFactory("gauss", 4, 20)
	var configErr *ErrConfiguration
	assert.ErrorAs(t, err, &configErr)
}
