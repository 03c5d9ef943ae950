package hcaldigi

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/rand"
)

const (
	ADCMax = 1023
	TOAMax = 1023
	TOTMax = 4095

	// ClockCountsPerCycle is the TDC range of one clock cycle.
	ClockCountsPerCycle = 1024.

	crossingStep      = 0.1
	crossingTolerance = 1e-4
)

// Digitizer turns the analog inputs of one channel into chip samples. The
// boolean result is false when the channel is not read out.
type Digitizer interface {
	Digitize(channelID uint32, voltages []float64, times []float64) ([]Sample, bool, error)
	Sample(channelID uint32, voltages []float64, times []float64) ([]Sample, error)
}

// HgcrocEmulator emulates the readout chip: pulses from every contribution of
// a channel are summed and sampled once per clock cycle.
type HgcrocEmulator struct {
	params HgcrocParameters
	pulses *PulseFactory
	ns     float64
	rng    *rand.Rand
}

func NewHgcrocEmulator(params HgcrocParameters) (*HgcrocEmulator, error) {
	if params.ClockCycle <= 0 {
		return nil, &ErrConfiguration{Parameter: "clock_cycle", Reason: "must be positive"}
	}
	if params.NADCs <= 0 {
		return nil, &ErrConfiguration{Parameter: "n_adcs", Reason: "must be positive"}
	}
	if params.Gain <= 0 {
		return nil, &ErrConfiguration{Parameter: "gain", Reason: "must be positive"}
	}
	pulses, err := NewPulseFactory(params.PulseShape, params.RiseTime, params.FallTime)
	if err != nil {
		return nil, err
	}
	return &HgcrocEmulator{
		params: params,
		pulses: pulses,
		// time [ns] * ( 2^10 / clock cycle [ns] ) = clock counts
		ns: ClockCountsPerCycle / params.ClockCycle,
	}, nil
}

func (h *HgcrocEmulator) Seed(seed uint64) {
	h.rng = rand.New(rand.NewSource(seed))
}

func (h *HgcrocEmulator) HasSeed() bool {
	return h.rng != nil
}

func (h *HgcrocEmulator) Parameters() HgcrocParameters {
	return h.params
}

// PeakDelay is the time between the start of a pulse and its peak.
func (h *HgcrocEmulator) PeakDelay() float64 {
	return h.pulses.PeakDelay()
}

// SampleTime is the time the i-th sample is measured. Sample i covers
// (SampleTime(i)-ClockCycle, SampleTime(i)].
func (h *HgcrocEmulator) SampleTime(i int) float64 {
	return float64(i-h.params.ISOI)*h.params.ClockCycle + h.params.MeasTime
}

// ClockCounts converts a duration [ns] into TDC counts.
func (h *HgcrocEmulator) ClockCounts(dt float64) int {
	return int(dt * h.ns)
}

func clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (h *HgcrocEmulator) check(voltages []float64, times []float64) error {
	if h.rng == nil {
		return ErrNotSeeded
	}
	if len(voltages) != len(times) {
		return fmt.Errorf("%w: %d voltages, %d times", ErrInputMismatch, len(voltages), len(times))
	}
	return nil
}

// Pulse sums the contributions into one analog pulse, smearing their times
// with the timing jitter when noise is on.
func (h *HgcrocEmulator) Pulse(voltages []float64, times []float64) *CompositePulse {
	pulse := &CompositePulse{Pulses: make([]PulseShape, 0, len(voltages))}
	for i, voltage := range voltages {
		t := times[i]
		if h.params.Noise && h.params.TimingJitter > 0 {
			t += h.rng.NormFloat64() * h.params.TimingJitter
		}
		pulse.Add(h.pulses.New(t, voltage))
	}
	return pulse
}

func (h *HgcrocEmulator) Digitize(channelID uint32, voltages []float64, times []float64) ([]Sample, bool, error) {
	if err := h.check(voltages, times); err != nil {
		return nil, false, err
	}
	if len(voltages) == 0 {
		return nil, false, nil
	}
	pulse := h.Pulse(voltages, times)

	// the chip only reads out channels whose pulse is above threshold in at
	// least one sample
	maxValue := math.Inf(-1)
	for i := 0; i < h.params.NADCs; i++ {
		maxValue = math.Max(maxValue, pulse.Eval(h.SampleTime(i)))
	}
	if maxValue < h.params.ReadoutThreshold {
		if configuration.Verbosity > 3 {
			message := fmt.Sprintf("Channel 0x%08x below readout threshold: %.3f < %.3f mV",
				channelID, maxValue, h.params.ReadoutThreshold)
			logger.Info(message, "hgcroc")
		}
		return nil, false, nil
	}
	return h.samplePulse(channelID, pulse), true, nil
}

// Sample digitizes the inputs without the readout threshold.
func (h *HgcrocEmulator) Sample(channelID uint32, voltages []float64, times []float64) ([]Sample, error) {
	if err := h.check(voltages, times); err != nil {
		return nil, err
	}
	return h.samplePulse(channelID, h.Pulse(voltages, times)), nil
}

func (h *HgcrocEmulator) samplePulse(channelID uint32, pulse *CompositePulse) []Sample {
	nADCs := h.params.NADCs
	clock := h.params.ClockCycle
	windowStart := h.SampleTime(0) - clock
	windowEnd := h.SampleTime(nADCs - 1)

	toaTime, toaFound := risingCrossing(pulse, h.params.ToaThreshold, windowStart, windowEnd)

	totStart, totFound := risingCrossing(pulse, h.params.TotThreshold, windowStart, windowEnd)
	var totEnd float64
	if totFound {
		maxDuration := float64(TOTMax) / h.ns
		var ends bool
		totEnd, ends = fallingCrossing(pulse, h.params.TotThreshold, totStart, totStart+maxDuration)
		if !ends {
			totEnd = totStart + maxDuration
		}
	}

	samples := make([]Sample, nADCs)
	for i := range samples {
		t := h.SampleTime(i)
		lo := t - clock

		voltage := pulse.Eval(t)
		if h.params.Noise {
			voltage += h.rng.NormFloat64() * h.params.NoiseRMS
		}
		adc := int(math.Floor(h.params.Pedestal + voltage/h.params.Gain))
		samples[i].ADCRaw = clamp(adc, 0, ADCMax)

		if toaFound && toaTime > lo && toaTime <= t {
			samples[i].TOA = clamp(h.ClockCounts(toaTime-lo), 0, TOAMax)
		}

		if totFound {
			switch {
			case totEnd > lo && totEnd <= t:
				samples[i].TOTComplete = true
				samples[i].TOT = clamp(h.ClockCounts(totEnd-totStart), 0, TOTMax)
			case totStart <= t && t < totEnd:
				samples[i].TOTInProgress = true
			}
		}
	}

	if configuration.Verbosity > 3 {
		message := fmt.Sprintf("Channel 0x%08x digitized: %v", channelID, samples)
		logger.Info(message, "hgcroc")
	}
	return samples
}

// risingCrossing returns the first time in (from, to] where the pulse rises
// through threshold. A pulse already above threshold at from has no rising
// edge in the window.
func risingCrossing(pulse PulseShape, threshold float64, from float64, to float64) (float64, bool) {
	if math.IsInf(threshold, 1) || math.IsNaN(threshold) {
		return 0, false
	}
	prev := from
	if pulse.Eval(prev) >= threshold {
		return 0, false
	}
	for t := from + crossingStep; t <= to+crossingStep; t += crossingStep {
		if pulse.Eval(t) >= threshold {
			return bisectCrossing(pulse, threshold, prev, t), true
		}
		prev = t
	}
	return 0, false
}

// fallingCrossing returns the first time after from where the pulse drops
// below threshold.
func fallingCrossing(pulse PulseShape, threshold float64, from float64, to float64) (float64, bool) {
	prev := from
	for t := from + crossingStep; t <= to; t += crossingStep {
		if pulse.Eval(t) < threshold {
			return bisectCrossing(pulse, threshold, prev, t), true
		}
		prev = t
	}
	return 0, false
}

// bisectCrossing finds the threshold crossing between a and b, where the
// pulse is on opposite sides of threshold.
func bisectCrossing(pulse PulseShape, threshold float64, a float64, b float64) float64 {
	below := pulse.Eval(a) < threshold
	for i := 0; i < MaxPeakIterations && b-a > crossingTolerance; i++ {
		mid := (a + b) / 2
		if (pulse.Eval(mid) < threshold) == below {
			a = mid
		} else {
			b = mid
		}
	}
	return (a + b) / 2
}
