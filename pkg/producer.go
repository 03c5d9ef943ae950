package hcaldigi

import (
	"fmt"
)

// Stats accumulates the per-run counters of the producer.
type Stats struct {
	Events          int
	SimHits         int
	Digis           int
	BothEnds        int
	Fallbacks       int
	Dropped         int
	BelowThreshold  int
	NoiseDigis      int
	MissingPedestal int
	UnknownMapping  int
}

func (s Stats) String() string {
	return fmt.Sprintf("events %d, sim hits %d, digis %d (noise %d), double-ended: both %d, fallback %d, dropped %d, "+
		"below threshold %d, missing pedestals %d, unknown mappings %d",
		s.Events, s.SimHits, s.Digis, s.NoiseDigis, s.BothEnds, s.Fallbacks, s.Dropped,
		s.BelowThreshold, s.MissingPedestal, s.UnknownMapping)
}

type seeded interface {
	Seed(seed uint64)
	HasSeed() bool
}

// HcalDigiProducer digitizes the simulated hits of one event at a time and
// adds the resulting digi collection to the event.
type HcalDigiProducer struct {
	config    Configuration
	mapper    *BarReadoutMapper
	digitizer Digitizer
	noise     *NoiseInjector
	stats     Stats
}

func NewHcalDigiProducer(config Configuration) (*HcalDigiProducer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	emulator, err := NewHgcrocEmulator(config.Hgcroc)
	if err != nil {
		return nil, err
	}
	p := NewHcalDigiProducerWithDigitizer(config, emulator)

	// noise digis peak in the sample of interest
	p.noise.TimeOffset = emulator.SampleTime(config.Hgcroc.ISOI) - config.Hgcroc.ClockCycle - emulator.PeakDelay()
	return p, nil
}

// NewHcalDigiProducerWithDigitizer uses the given digitizer instead of the
// chip emulator. The configuration is not validated.
func NewHcalDigiProducerWithDigitizer(config Configuration, digitizer Digitizer) *HcalDigiProducer {
	h := config.Hgcroc
	// noise is generated above the pedestal, in the same units as the
	// readout threshold
	noise := NewNoiseInjector(0, h.NoiseRMS, h.ReadoutThreshold)
	noise.Window = h.ClockCycle
	return &HcalDigiProducer{
		config:    config,
		mapper:    NewBarReadoutMapper(config),
		digitizer: digitizer,
		noise:     noise,
	}
}

func (p *HcalDigiProducer) Stats() Stats {
	return p.stats
}

func (p *HcalDigiProducer) NoiseInjector() *NoiseInjector {
	return p.noise
}

// Seeded reports whether every generator of the producer has a seed.
func (p *HcalDigiProducer) Seeded() bool {
	if s, ok := p.digitizer.(seeded); ok && !s.HasSeed() {
		return false
	}
	return p.noise.HasSeed()
}

// SeedFrom seeds the generators that were not seeded yet. Generators are
// never reseeded during a run.
func (p *HcalDigiProducer) SeedFrom(seeds *SeedService) {
	if !p.noise.HasSeed() {
		p.noise.Seed(seeds.GetSeed(SeedNoiseGenerator), seeds.GetSeed(SeedNoiseInjector))
	}
	if s, ok := p.digitizer.(seeded); ok && !s.HasSeed() {
		s.Seed(seeds.GetSeed(SeedHgcrocEmulator))
	}
}

// Produce digitizes the simulated hits of event and adds the digis to it
// under the configured collection name.
func (p *HcalDigiProducer) Produce(event *Event, conditions Conditions) error {
	if !p.Seeded() {
		seeds, err := NewSeedService(p.config.SeedMode, p.config.Seed, event.RunNumber)
		if err != nil {
			return err
		}
		p.SeedFrom(seeds)
	}

	h := p.config.Hgcroc
	coll := NewDigiCollection(h.NADCs, h.ISOI)
	filled := make(map[HcalID]bool)

	for _, hit := range event.SimHits {
		p.stats.SimHits++
		filled[hit.ID] = true
		if err := p.digitizeHit(hit, coll); err != nil {
			return fmt.Errorf("event %d: %w", event.EventNumber, err)
		}
	}

	if h.Noise && conditions.Channels != nil {
		nNoise, err := p.noise.Inject(conditions.Channels.Channels(), filled, p.digitizer, coll)
		if err != nil {
			return fmt.Errorf("event %d: noise injection: %w", event.EventNumber, err)
		}
		p.stats.NoiseDigis += nNoise
	}

	p.countConditions(coll, conditions)
	p.stats.Digis += coll.Len()
	p.stats.Events++

	if p.config.Verbosity > 1 {
		message := fmt.Sprintf("Event %d: %d sim hits, %d digis", event.EventNumber, len(event.SimHits), coll.Len())
		logger.Info(message, "producer")
	}
	return event.Add(p.config.DigiCollName, coll)
}

func (p *HcalDigiProducer) digitizeHit(hit SimCalorimeterHit, coll *DigiCollection) error {
	readout := p.mapper.MapHit(hit)

	if !readout.DoubleEnded {
		samples, ok, err := p.digitizer.Digitize(readout.Direct.ID.Raw(), readout.Direct.Voltages, readout.Direct.Times)
		if err != nil {
			return err
		}
		if !ok {
			p.stats.BelowThreshold++
			return nil
		}
		return coll.AddDigi(readout.Direct.ID.Raw(), samples)
	}

	closeSamples, closeOK, err := p.digitizer.Digitize(readout.Close.ID.Raw(), readout.Close.Voltages, readout.Close.Times)
	if err != nil {
		return err
	}
	farSamples, farOK, err := p.digitizer.Digitize(readout.Far.ID.Raw(), readout.Far.Voltages, readout.Far.Times)
	if err != nil {
		return err
	}

	var directSamples []Sample
	directOK := false
	if !closeOK || !farOK {
		directSamples, directOK, err = p.digitizer.Digitize(readout.Direct.ID.Raw(), readout.Direct.Voltages, readout.Direct.Times)
		if err != nil {
			return err
		}
	}

	outcome := ResolveReadout(closeOK, farOK, directOK)
	if p.config.Verbosity > 2 {
		message := fmt.Sprintf("%v at %.1f mm: %s", readout.Bar, readout.DistanceAlongBar, outcome)
		logger.Info(message, "producer")
	}
	switch outcome {
	case BothEndsOK:
		p.stats.BothEnds++
		if err := coll.AddDigi(readout.Close.ID.Raw(), closeSamples); err != nil {
			return err
		}
		return coll.AddDigi(readout.Far.ID.Raw(), farSamples)
	case FallbackSingleEnded:
		p.stats.Fallbacks++
		return coll.AddDigi(readout.Direct.ID.Raw(), directSamples)
	default:
		p.stats.Dropped++
		return nil
	}
}

// countConditions records the digis the consumers will not be able to fully
// calibrate: channels without pedestal (0 is used) or without electronics id.
func (p *HcalDigiProducer) countConditions(coll *DigiCollection, conditions Conditions) {
	for _, digi := range coll.Digis() {
		if conditions.Pedestals != nil && !conditions.Pedestals.Has(digi.ChannelID) {
			p.stats.MissingPedestal++
		}
		if conditions.DetectorMap != nil && conditions.DetectorMap.Len() > 0 {
			if _, ok := conditions.DetectorMap.ElectronicsID(HcalDigiID(digi.ChannelID)); !ok {
				p.stats.UnknownMapping++
			}
		}
	}
}
