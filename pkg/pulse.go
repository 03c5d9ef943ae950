package hcaldigi

import (
	"fmt"
	"math"
)

const (
	// PeakTolerance is the |derivative| below which the peak search stops.
	PeakTolerance = 1e-5
	// MaxPeakIterations bounds the bisection of the peak search.
	MaxPeakIterations = 200

	DefaultRiseTime = 1.
	DefaultFallTime = 10.
)

// PulseShape is an analog pulse whose integral over time is its charge.
type PulseShape interface {
	Eval(t float64) float64
	Integrate(t1 float64, t2 float64) float64
	Derivative(t float64) float64
	// Max is the peak amplitude of the pulse.
	Max() float64
	PeakTime() float64
}

// softplus is log(1+exp(x)) without overflowing for large x.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Bimoid is the difference of two sigmoids with rise and fall time constants.
// Rise must be smaller than fall, otherwise the shape degrades.
type Bimoid struct {
	T0       float64
	Rise     float64
	Fall     float64
	Charge   float64
	norm     float64
	peakTime float64
	peakDone bool
}

func NewBimoid(t0 float64, charge float64) *Bimoid {
	return NewBimoidRiseFall(t0, DefaultRiseTime, DefaultFallTime, charge)
}

func NewBimoidRiseFall(t0 float64, rise float64, fall float64, charge float64) *Bimoid {
	return &Bimoid{
		T0:     t0,
		Rise:   rise,
		Fall:   fall,
		Charge: charge,
		norm:   (fall - rise) * math.Ln2 / charge,
	}
}

func (b *Bimoid) Eval(t float64) float64 {
	if t < b.T0 || b.Charge == 0 {
		return 0
	}
	x := t - b.T0
	return (sigmoid(x/b.Rise) - sigmoid(x/b.Fall)) / b.norm
}

func (b *Bimoid) antiderivative(t float64) float64 {
	x := t - b.T0
	return b.Rise*softplus(x/b.Rise) - b.Fall*softplus(x/b.Fall)
}

func (b *Bimoid) Integrate(t1 float64, t2 float64) float64 {
	if t2 < b.T0 || b.Charge == 0 {
		return 0
	}
	if t1 < b.T0 {
		t1 = b.T0
	}
	return (b.antiderivative(t2) - b.antiderivative(t1)) / b.norm
}

func (b *Bimoid) Derivative(t float64) float64 {
	if b.Charge == 0 {
		return 0
	}
	x := t - b.T0
	e1 := math.Exp(-x / b.Rise)
	e2 := math.Exp(-x / b.Fall)
	v1 := e1 / (b.Rise * (1 + e1) * (1 + e1))
	v2 := e2 / (b.Fall * (1 + e2) * (1 + e2))
	if math.IsInf(e1, 1) || math.IsNaN(v1) {
		v1 = 0
	}
	if math.IsInf(e2, 1) || math.IsNaN(v2) {
		v2 = 0
	}
	return (v1 - v2) / b.norm
}

// PeakTime locates the maximum by bisecting the sign change of the
// derivative between T0 and T0+10*Fall.
func (b *Bimoid) PeakTime() float64 {
	if b.peakDone {
		return b.peakTime
	}
	b.peakTime = bisectDerivative(b.Derivative, b.T0, b.T0+10*b.Fall)
	b.peakDone = true
	return b.peakTime
}

func (b *Bimoid) Max() float64 {
	return b.Eval(b.PeakTime())
}

func (b *Bimoid) String() string {
	return fmt.Sprintf("Bimoid(t0=%g, rise=%g, fall=%g, charge=%g)", b.T0, b.Rise, b.Fall, b.Charge)
}

// bisectDerivative returns the point in [a, b] where derivative changes sign.
func bisectDerivative(derivative func(float64) float64, a float64, b float64) float64 {
	mx := (a + b) / 2
	for i := 0; i < MaxPeakIterations; i++ {
		d := derivative(mx)
		if math.Abs(d) < PeakTolerance {
			break
		}
		if derivative(a)*d > 0 {
			a = mx
		} else {
			b = mx
		}
		mx = (a + b) / 2
	}
	return mx
}

// Expo is the current of an ideal capacitor charged with a constant current
// during ChargeTime and discharged afterwards with rate K.
type Expo struct {
	K          float64
	ChargeTime float64
	T0         float64
	Charge     float64
	norm       float64
	rise       float64
	fall       float64
}

func NewExpo(k float64, chargeTime float64, t0 float64, charge float64) *Expo {
	e := &Expo{
		K:          k,
		ChargeTime: chargeTime,
		T0:         t0,
		Charge:     charge,
		norm:       charge / chargeTime,
	}
	e.rise = (math.Log(9+math.Exp(-k*chargeTime)) - math.Log(1+9*math.Exp(-k*chargeTime))) / k
	e.fall = math.Log(9) / k
	return e
}

// NewExpoRiseFall builds an Expo with the requested 10%-90% rise and fall times.
func NewExpoRiseFall(rise float64, fall float64, t0 float64, charge float64) *Expo {
	e := &Expo{T0: t0, Charge: charge}
	e.SetRiseFall(rise, fall)
	return e
}

// SetRiseFall back-solves K and ChargeTime from 10%-90% rise and fall times.
func (e *Expo) SetRiseFall(rise float64, fall float64) {
	e.rise = rise
	e.fall = fall
	e.K = math.Log(9) / fall
	er := math.Exp(-e.K * rise)
	e.ChargeTime = (math.Log(9-er) - math.Log(9*er-1)) / e.K
	e.norm = e.Charge / e.ChargeTime
}

func (e *Expo) RiseTime() float64 { return e.rise }
func (e *Expo) FallTime() float64 { return e.fall }

func (e *Expo) Eval(t float64) float64 {
	if e.norm == 0 || t <= e.T0 {
		return 0
	}
	x := t - e.T0
	if x < e.ChargeTime {
		return e.norm * (1 - math.Exp(-e.K*x))
	}
	return e.norm * (1 - math.Exp(-e.K*e.ChargeTime)) * math.Exp(e.K*(e.ChargeTime-x))
}

func (e *Expo) Max() float64 {
	return e.norm * (1 - math.Exp(-e.K*e.ChargeTime))
}

func (e *Expo) PeakTime() float64 {
	return e.T0 + e.ChargeTime
}

func (e *Expo) Integrate(t1 float64, t2 float64) float64 {
	if e.norm == 0 || t2 <= e.T0 {
		return 0
	}
	return e.antiderivative(t2) - e.antiderivative(t1)
}

func (e *Expo) Derivative(t float64) float64 {
	if e.norm == 0 || t <= e.T0 {
		return 0
	}
	x := t - e.T0
	if x <= e.ChargeTime {
		return e.norm * e.K * math.Exp(-e.K*x)
	}
	return -e.norm * e.K * (1 - math.Exp(-e.K*e.ChargeTime)) * math.Exp(e.K*(e.ChargeTime-x))
}

// antiderivative is the integral of Eval from T0 to t.
func (e *Expo) antiderivative(t float64) float64 {
	if t <= e.T0 {
		return 0
	}
	x := t - e.T0
	if x < e.ChargeTime {
		return e.norm * (e.K*x + math.Exp(-e.K*x) - 1) / e.K
	}
	c1 := (1 - math.Exp(-e.K*e.ChargeTime)) / e.K
	c2 := e.ChargeTime - c1*math.Exp(e.K*(e.ChargeTime-x))
	return e.norm * c2
}

func (e *Expo) String() string {
	return fmt.Sprintf("Expo(k=%g, tmax=%g, t0=%g, charge=%g)", e.K, e.ChargeTime, e.T0, e.Charge)
}

// CompositePulse is the sum of several pulses on the same channel.
type CompositePulse struct {
	Pulses []PulseShape
}

func (c *CompositePulse) Add(p PulseShape) {
	c.Pulses = append(c.Pulses, p)
}

func (c *CompositePulse) Eval(t float64) float64 {
	var sum float64
	for _, p := range c.Pulses {
		sum += p.Eval(t)
	}
	return sum
}

func (c *CompositePulse) Integrate(t1 float64, t2 float64) float64 {
	var sum float64
	for _, p := range c.Pulses {
		sum += p.Integrate(t1, t2)
	}
	return sum
}

func (c *CompositePulse) Derivative(t float64) float64 {
	var sum float64
	for _, p := range c.Pulses {
		sum += p.Derivative(t)
	}
	return sum
}

// PeakTime scans the span of the components and refines the highest point
// with a bounded bisection on the derivative.
func (c *CompositePulse) PeakTime() float64 {
	if len(c.Pulses) == 0 {
		return 0
	}
	start, end := math.Inf(1), math.Inf(-1)
	for _, p := range c.Pulses {
		pt := p.PeakTime()
		start = math.Min(start, pt)
		end = math.Max(end, pt)
	}
	step := 0.1
	best, bestValue := start, c.Eval(start)
	for t := start; t <= end; t += step {
		if v := c.Eval(t); v > bestValue {
			best, bestValue = t, v
		}
	}
	a, b := best-step, best+step
	if c.Derivative(a)*c.Derivative(b) > 0 {
		return best
	}
	return bisectDerivative(c.Derivative, a, b)
}

func (c *CompositePulse) Max() float64 {
	if len(c.Pulses) == 0 {
		return 0
	}
	return c.Eval(c.PeakTime())
}

// PulseFamily selects the analog pulse model of the chip.
type PulseFamily string

const (
	PulseBimoid PulseFamily = "bimoid"
	PulseExpo   PulseFamily = "expo"
)

// PulseFactory builds pulses whose peak equals the requested amplitude.
type PulseFactory struct {
	Family   PulseFamily
	Rise     float64
	Fall     float64
	unitPeak float64
}

func NewPulseFactory(family PulseFamily, rise float64, fall float64) (*PulseFactory, error) {
	f := &PulseFactory{Family: family, Rise: rise, Fall: fall}
	unit, err := f.build(0, 1)
	if err != nil {
		return nil, err
	}
	f.unitPeak = unit.Max()
	if f.unitPeak <= 0 || math.IsNaN(f.unitPeak) {
		return nil, &ErrConfiguration{Parameter: "pulse_shape",
			Reason: fmt.Sprintf("%s pulse with rise %g and fall %g has no positive peak", family, rise, fall)}
	}
	return f, nil
}

func (f *PulseFactory) build(t0 float64, charge float64) (PulseShape, error) {
	switch f.Family {
	case PulseBimoid:
		return NewBimoidRiseFall(t0, f.Rise, f.Fall, charge), nil
	case PulseExpo:
		return NewExpoRiseFall(f.Rise, f.Fall, t0, charge), nil
	default:
		return nil, &ErrConfiguration{Parameter: "pulse_shape", Reason: fmt.Sprintf("unknown family %q", f.Family)}
	}
}

// New returns a pulse starting at t0 with the given peak amplitude.
func (f *PulseFactory) New(t0 float64, amplitude float64) PulseShape {
	p, _ := f.build(t0, amplitude/f.unitPeak)
	return p
}

// PeakDelay is the time between the start and the peak of a pulse.
func (f *PulseFactory) PeakDelay() float64 {
	p, _ := f.build(0, 1)
	return p.PeakTime()
}
