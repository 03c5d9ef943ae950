package hcaldigi

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
)

// NoiseInjector generates noise-only digis in channels without a real hit.
//
// The noise model is Gaussian: a channel reads a value distributed around
// Mean with width RMS, and it is read out when that value crosses Threshold.
// The generator decides which channels fire and with which amplitude, the
// injector places the pulse in time.
type NoiseInjector struct {
	Mean      float64
	RMS       float64
	Threshold float64
	// Pulses start in [TimeOffset, TimeOffset+Window).
	TimeOffset float64
	Window     float64

	generator *rand.Rand
	injector  *rand.Rand
}

func NewNoiseInjector(mean float64, rms float64, threshold float64) *NoiseInjector {
	return &NoiseInjector{
		Mean:      mean,
		RMS:       rms,
		Threshold: threshold,
	}
}

func (n *NoiseInjector) Seed(generatorSeed uint64, injectorSeed uint64) {
	n.generator = rand.New(rand.NewSource(generatorSeed))
	n.injector = rand.New(rand.NewSource(injectorSeed))
}

func (n *NoiseInjector) HasSeed() bool {
	return n.generator != nil && n.injector != nil
}

// Probability is the chance that an empty channel crosses the threshold.
func (n *NoiseInjector) Probability() float64 {
	if math.IsNaN(n.Threshold) {
		return 0
	}
	if n.RMS == 0 {
		if n.Threshold <= n.Mean {
			return 1
		}
		return 0
	}
	return 0.5 * math.Erfc((n.Threshold-n.Mean)/(n.RMS*math.Sqrt2))
}

// NoiseHit decides whether one empty channel fires and returns the amplitude
// drawn from the tail of the distribution above threshold.
func (n *NoiseInjector) NoiseHit() (float64, bool, error) {
	if !n.HasSeed() {
		return 0, false, ErrNotSeeded
	}
	p := n.Probability()
	if p <= 0 || n.generator.Float64() >= p {
		return 0, false, nil
	}
	if n.RMS == 0 {
		return n.Mean, true, nil
	}
	u := n.generator.Float64()
	for u == 0 {
		u = n.generator.Float64()
	}
	amplitude := n.Mean + n.RMS*math.Sqrt2*math.Erfcinv(2*u*p)
	return amplitude, true, nil
}

// Inject adds a noise digi to the collection for every channel that is not
// part of a bar in filled and fires. Channels are visited in increasing id
// order so a run is reproducible. It returns the number of noise digis.
func (n *NoiseInjector) Inject(channels []HcalDigiID, filled map[HcalID]bool,
	digitizer Digitizer, coll *DigiCollection) (int, error) {
	if !n.HasSeed() {
		return 0, ErrNotSeeded
	}
	sorted := make([]HcalDigiID, len(channels))
	copy(sorted, channels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	nNoise := 0
	for _, channel := range sorted {
		if filled[channel.Bar()] {
			continue
		}
		amplitude, fires, err := n.NoiseHit()
		if err != nil {
			return nNoise, err
		}
		if !fires {
			continue
		}
		time := n.TimeOffset + n.injector.Float64()*n.Window
		samples, err := digitizer.Sample(channel.Raw(), []float64{amplitude}, []float64{time})
		if err != nil {
			return nNoise, fmt.Errorf("noise digi for %v: %w", channel, err)
		}
		if err := coll.AddDigi(channel.Raw(), samples); err != nil {
			return nNoise, err
		}
		nNoise++
	}

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Injected %d noise digis in %d channels (p=%.3g)", nNoise, len(channels), n.Probability())
		logger.Info(message, "noise")
	}
	return nNoise, nil
}
