package hcaldigi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func producerConfiguration() Configuration {
	config := DefaultConfiguration()
	config.NoDB = true
	config.SeedMode = SeedModeExternal
	config.Seed = 1234
	config.Hgcroc.Noise = false
	config.Hgcroc.TimingJitter = 0
	return config
}

func backBarEvent() *Event {
	return NewEvent(SimEvent{
		RunNumber:   7,
		EventNumber: 1,
		Hits: []SimCalorimeterHit{{
			ID:       NewHcalID(SectionBack, 1, 5),
			Position: [3]float64{200, 0, 0},
			Contribs: []EnergyContribution{{Edep: 1, Time: 10}},
		}},
	})
}

func TestProducer_BothEnds(t *testing.T) {
	config := producerConfiguration()
	digitizer := newFakeDigitizer(config.Hgcroc.NADCs, func(uint32, []float64, []float64) bool { return true })
	p := NewHcalDigiProducerWithDigitizer(config, digitizer)

	event := backBarEvent()
	require.NoError(t, p.Produce(event, Conditions{}))
	coll, ok := event.Collection(config.DigiCollName)
	require.True(t, ok)
	require.Equal(t, 2, coll.Len())

	closeDigi, ok := coll.Get(NewHcalDigiID(SectionBack, 1, 5, 0).Raw())
	require.True(t, ok)
	farDigi, ok := coll.Get(NewHcalDigiID(SectionBack, 1, 5, 1).Raw())
	require.True(t, ok)
	assert.Greater(t, closeDigi.Samples[0].ADCRaw, farDigi.Samples[0].ADCRaw)
	assert.Less(t, closeDigi.Samples[0].ADCRaw, int(math.Round(config.MeV*1000)))

	assert.Equal(t, 1, p.Stats().BothEnds)
	assert.Equal(t, 0, p.Stats().Fallbacks)
	assert.Len(t, digitizer.calls, 2)
}

func TestProducer_FallbackSingleEnded(t *testing.T) {
	config := producerConfiguration()
	// only the unshifted direct input is read out
	digitizer := newFakeDigitizer(config.Hgcroc.NADCs, func(_ uint32, _ []float64, times []float64) bool {
		return times[0] < ReadoutTimeOffset
	})
	p := NewHcalDigiProducerWithDigitizer(config, digitizer)

	event := backBarEvent()
	require.NoError(t, p.Produce(event, Conditions{}))
	coll, _ := event.Collection(config.DigiCollName)
	require.Equal(t, 1, coll.Len())

	digi := coll.Digi(0)
	assert.Equal(t, NewHcalDigiID(SectionBack, 1, 5, CloseEnd(200)).Raw(), digi.ChannelID)
	assert.Equal(t, int(math.Round(config.MeV*1000)), digi.Samples[0].ADCRaw)
	assert.Equal(t, 1, p.Stats().Fallbacks)
	assert.Equal(t, 0, p.Stats().Dropped)
}

func TestProducer_PartialReadoutFallsBack(t *testing.T) {
	config := producerConfiguration()
	farID := NewHcalDigiID(SectionBack, 1, 5, 1).Raw()
	digitizer := newFakeDigitizer(config.Hgcroc.NADCs, func(channelID uint32, _ []float64, _ []float64) bool {
		return channelID != farID
	})
	p := NewHcalDigiProducerWithDigitizer(config, digitizer)

	event := backBarEvent()
	require.NoError(t, p.Produce(event, Conditions{}))
	coll, _ := event.Collection(config.DigiCollName)

	// never one end of a pair alone: the recorded digi is the direct one
	require.Equal(t, 1, coll.Len())
	assert.Equal(t, int(math.Round(config.MeV*1000)), coll.Digi(0).Samples[0].ADCRaw)
	assert.Equal(t, 1, p.Stats().Fallbacks)
}

func TestProducer_Dropped(t *testing.T) {
	config := producerConfiguration()
	digitizer := newFakeDigitizer(config.Hgcroc.NADCs, func(uint32, []float64, []float64) bool { return false })
	p := NewHcalDigiProducerWithDigitizer(config, digitizer)

	event := backBarEvent()
	require.NoError(t, p.Produce(event, Conditions{}))
	coll, _ := event.Collection(config.DigiCollName)
	assert.Equal(t, 0, coll.Len())
	assert.Equal(t, 1, p.Stats().Dropped)
	assert.Len(t, digitizer.calls, 3)
}

func TestProducer_SingleEndedSection(t *testing.T) {
	config := producerConfiguration()
	digitizer := newFakeDigitizer(config.Hgcroc.NADCs, func(uint32, []float64, []float64) bool { return true })
	p := NewHcalDigiProducerWithDigitizer(config, digitizer)

	event := NewEvent(SimEvent{Hits: []SimCalorimeterHit{{
		ID:       NewHcalID(SectionLeft, 4, 2),
		Position: [3]float64{-500, 30, 0},
		Contribs: []EnergyContribution{{Edep: 0.5, Time: 3}},
	}}})
	require.NoError(t, p.Produce(event, Conditions{}))
	coll, _ := event.Collection(config.DigiCollName)
	require.Equal(t, 1, coll.Len())
	assert.Equal(t, NewHcalDigiID(SectionLeft, 4, 2, 0).Raw(), coll.Digi(0).ChannelID)
	require.Len(t, digitizer.calls, 1)
	assert.Equal(t, []float64{3}, digitizer.calls[0].Times)
}

func TestProducer_BackBarScenario(t *testing.T) {
	config := producerConfiguration()
	config.AttenuationLength = 1500
	config.MeV = 100
	p, err := NewHcalDigiProducer(config)
	require.NoError(t, err)

	event := backBarEvent()
	require.NoError(t, p.Produce(event, NoDBConditions(config)))
	coll, _ := event.Collection(config.DigiCollName)
	require.Equal(t, 2, coll.Len())

	emulator, err := NewHgcrocEmulator(config.Hgcroc)
	require.NoError(t, err)
	crossing := func(digi Digi) float64 {
		for i, s := range digi.Samples {
			if s.TOA > 0 {
				return emulator.SampleTime(i) - config.Hgcroc.ClockCycle +
					float64(s.TOA)*config.Hgcroc.ClockCycle/ClockCountsPerCycle
			}
		}
		t.Fatalf("no TOA in digi 0x%08x", digi.ChannelID)
		return 0
	}

	closeDigi, ok := coll.Get(NewHcalDigiID(SectionBack, 1, 5, 0).Raw())
	require.True(t, ok)
	farDigi, ok := coll.Get(NewHcalDigiID(SectionBack, 1, 5, 1).Raw())
	require.True(t, ok)
	assert.InDelta(t, 400/LightSpeedInBar, crossing(farDigi)-crossing(closeDigi), 0.06)
}

func TestProducer_Deterministic(t *testing.T) {
	config := producerConfiguration()
	config.Hgcroc.Noise = true
	config.Hgcroc.TimingJitter = 0.5
	config.Hgcroc.ReadoutThreshold = 0.5
	config.Sections = []SectionGeometry{
		{Section: SectionBack, FirstLayer: 1, NumLayers: 2, NumStrips: 8},
		{Section: SectionTop, FirstLayer: 1, NumLayers: 2, NumStrips: 8},
	}

	run := func() ([]Digi, Stats) {
		p, err := NewHcalDigiProducer(config)
		require.NoError(t, err)
		event := backBarEvent()
		require.NoError(t, p.Produce(event, NoDBConditions(config)))
		coll, _ := event.Collection(config.DigiCollName)
		return coll.Digis(), p.Stats()
	}
	digisA, statsA := run()
	digisB, statsB := run()
	assert.Equal(t, digisA, digisB)
	assert.Equal(t, statsA, statsB)
	assert.Greater(t, statsA.NoiseDigis, 0)
	assert.Equal(t, len(digisA), statsA.Digis)

	// noise never lands on the bar with the real hit
	hitBar := NewHcalID(SectionBack, 1, 5)
	nOnHitBar := 0
	for _, d := range digisA {
		if HcalDigiID(d.ChannelID).Bar() == hitBar {
			nOnHitBar++
		}
	}
	assert.Equal(t, len(digisA)-statsA.NoiseDigis, nOnHitBar)
}

func TestProducer_CountsConditions(t *testing.T) {
	config := producerConfiguration()
	digitizer := newFakeDigitizer(config.Hgcroc.NADCs, func(uint32, []float64, []float64) bool { return true })
	p := NewHcalDigiProducerWithDigitizer(config, digitizer)

	closeID := NewHcalDigiID(SectionBack, 1, 5, 0)
	conditions := Conditions{Pedestals: NewPedestalTable(), DetectorMap: NewDetectorMap()}
	conditions.Pedestals.Set(closeID.Raw(), 48)
	require.NoError(t, conditions.DetectorMap.Add(closeID, NewHcalElectronicsID(1, 2, 3, 0)))

	require.NoError(t, p.Produce(backBarEvent(), conditions))
	assert.Equal(t, 1, p.Stats().MissingPedestal)
	assert.Equal(t, 1, p.Stats().UnknownMapping)
}

func TestProducer_RefusesInvalidConfiguration(t *testing.T) {
	config := producerConfiguration()
	config.Hgcroc.Gain = -1
	_, err := NewHcalDigiProducer(config)
	var configErr *ErrConfiguration
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "gain", configErr.Parameter)
}
