package hcaldigi

import "fmt"

type EnergyContribution struct {
	Edep float64
	Time float64
}

// SimCalorimeterHit holds every contribution of one bar in one event.
type SimCalorimeterHit struct {
	ID       HcalID
	Position [3]float64
	Contribs []EnergyContribution
}

type SimEvent struct {
	RunNumber   uint32
	EventNumber uint32
	Hits        []SimCalorimeterHit
}

// Sample is one readout word of the chip for one clock tick.
type Sample struct {
	ADCRaw        int
	TOT           int
	TOA           int
	TOTInProgress bool
	TOTComplete   bool
}

type Digi struct {
	ChannelID uint32
	Samples   []Sample
}

// DigiCollection keeps one digi per channel, in insertion order.
type DigiCollection struct {
	samplesPerDigi   int
	sampleOfInterest int
	digis            []Digi
	index            map[uint32]int
}

func NewDigiCollection(samplesPerDigi int, sampleOfInterest int) *DigiCollection {
	return &DigiCollection{
		samplesPerDigi:   samplesPerDigi,
		sampleOfInterest: sampleOfInterest,
		index:            make(map[uint32]int),
	}
}

func (c *DigiCollection) NumSamplesPerDigi() int     { return c.samplesPerDigi }
func (c *DigiCollection) SampleOfInterestIndex() int { return c.sampleOfInterest }
func (c *DigiCollection) Len() int                   { return len(c.digis) }

func (c *DigiCollection) AddDigi(channelID uint32, samples []Sample) error {
	if len(samples) != c.samplesPerDigi {
		return fmt.Errorf("channel 0x%08x: %w (%d != %d)", channelID, ErrDigiLength, len(samples), c.samplesPerDigi)
	}
	if _, ok := c.index[channelID]; ok {
		return fmt.Errorf("channel 0x%08x: %w", channelID, ErrDuplicateDigi)
	}
	c.index[channelID] = len(c.digis)
	c.digis = append(c.digis, Digi{ChannelID: channelID, Samples: samples})
	return nil
}

func (c *DigiCollection) Get(channelID uint32) (Digi, bool) {
	i, ok := c.index[channelID]
	if !ok {
		return Digi{}, false
	}
	return c.digis[i], true
}

func (c *DigiCollection) Digi(i int) Digi {
	return c.digis[i]
}

func (c *DigiCollection) Digis() []Digi {
	return c.digis
}

// Event is the container handed from the producer to the writer.
type Event struct {
	RunNumber   uint32
	EventNumber uint32
	SimHits     []SimCalorimeterHit
	collections map[string]*DigiCollection
}

func NewEvent(sim SimEvent) *Event {
	return &Event{
		RunNumber:   sim.RunNumber,
		EventNumber: sim.EventNumber,
		SimHits:     sim.Hits,
		collections: make(map[string]*DigiCollection),
	}
}

func (e *Event) Add(name string, coll *DigiCollection) error {
	if _, ok := e.collections[name]; ok {
		return fmt.Errorf("event %d already has a collection named %q", e.EventNumber, name)
	}
	e.collections[name] = coll
	return nil
}

func (e *Event) Collection(name string) (*DigiCollection, bool) {
	coll, ok := e.collections[name]
	return coll, ok
}
