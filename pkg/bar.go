package hcaldigi

import (
	"fmt"
	"math"
)

// The constants below reproduce the observed digitization behaviour. Their
// physical units need a calibration review before they are changed.
const (
	// BarLengthScale divides bar distances [mm] before applying the
	// attenuation length.
	BarLengthScale = 1000.
	// LightSpeedInBar is the speed of light in polystyrene (n=1.6) [mm/ns].
	LightSpeedInBar = 299.792 / 1.6
	// ReadoutTimeOffset [ns] is added to both ends of double-ended bars to
	// place the pulse inside the sampling window.
	ReadoutTimeOffset = 50.
)

// EndInput is the analog input of one readout channel.
type EndInput struct {
	ID       HcalDigiID
	Voltages []float64
	Times    []float64
}

func (e EndInput) Empty() bool {
	return len(e.Voltages) == 0
}

// BarReadout is the result of mapping a simulated hit onto its readout ends.
// Direct carries the unattenuated and unshifted contributions; it is the
// only input of single-ended bars and the fallback of double-ended ones.
type BarReadout struct {
	Bar              HcalID
	DoubleEnded      bool
	DistanceAlongBar float64
	Close            EndInput
	Far              EndInput
	Direct           EndInput
}

type BarReadoutMapper struct {
	MeV               float64
	AttenuationLength float64
	HalfTotalWidth    float64
}

func NewBarReadoutMapper(config Configuration) *BarReadoutMapper {
	return &BarReadoutMapper{
		MeV:               config.MeV,
		AttenuationLength: config.AttenuationLength,
		HalfTotalWidth:    config.HalfTotalWidth,
	}
}

// DistanceAlongBar picks x for odd layers and y for even layers.
func DistanceAlongBar(layer int, position [3]float64) float64 {
	if layer%2 == 1 {
		return position[0]
	}
	return position[1]
}

// CloseEnd is 0 for the positive side of the bar and 1 for the negative one.
func CloseEnd(distance float64) int {
	if distance > 0 {
		return 0
	}
	return 1
}

// FarEnd is the complement of CloseEnd. A hit at the exact centre reads its
// close end at 1 and its far end at 0.
func FarEnd(distance float64) int {
	return 1 - CloseEnd(distance)
}

func (m *BarReadoutMapper) Attenuation(distance float64) (close float64, far float64) {
	d := math.Abs(distance)
	close = math.Exp(-1. * ((m.HalfTotalWidth - d) / BarLengthScale) / m.AttenuationLength)
	far = math.Exp(-1. * ((m.HalfTotalWidth + d) / BarLengthScale) / m.AttenuationLength)
	return close, far
}

// Shift is the light propagation time to each end, without ReadoutTimeOffset.
func (m *BarReadoutMapper) Shift(distance float64) (close float64, far float64) {
	d := math.Abs(distance)
	close = math.Abs((m.HalfTotalWidth - d) / LightSpeedInBar)
	far = math.Abs((m.HalfTotalWidth + d) / LightSpeedInBar)
	return close, far
}

func (m *BarReadoutMapper) MapHit(hit SimCalorimeterHit) BarReadout {
	section := hit.ID.Section()
	layer := hit.ID.Layer()
	distance := DistanceAlongBar(layer, hit.Position)

	readout := BarReadout{
		Bar:              hit.ID,
		DoubleEnded:      section.DoubleEnded(),
		DistanceAlongBar: distance,
	}
	n := len(hit.Contribs)
	readout.Direct = EndInput{Voltages: make([]float64, 0, n), Times: make([]float64, 0, n)}

	if !readout.DoubleEnded {
		readout.Direct.ID = hit.ID.DigiID(0)
		for _, c := range hit.Contribs {
			readout.Direct.Voltages = append(readout.Direct.Voltages, c.Edep*m.MeV)
			readout.Direct.Times = append(readout.Direct.Times, c.Time)
		}
		return readout
	}

	closeEnd := CloseEnd(distance)
	readout.Direct.ID = hit.ID.DigiID(closeEnd)
	readout.Close = EndInput{
		ID:       hit.ID.DigiID(closeEnd),
		Voltages: make([]float64, 0, n),
		Times:    make([]float64, 0, n),
	}
	readout.Far = EndInput{
		ID:       hit.ID.DigiID(FarEnd(distance)),
		Voltages: make([]float64, 0, n),
		Times:    make([]float64, 0, n),
	}

	attClose, attFar := m.Attenuation(distance)
	shiftClose, shiftFar := m.Shift(distance)
	for _, c := range hit.Contribs {
		voltage := c.Edep * m.MeV
		readout.Direct.Voltages = append(readout.Direct.Voltages, voltage)
		readout.Direct.Times = append(readout.Direct.Times, c.Time)
		readout.Close.Voltages = append(readout.Close.Voltages, voltage*attClose)
		readout.Close.Times = append(readout.Close.Times, c.Time+shiftClose+ReadoutTimeOffset)
		readout.Far.Voltages = append(readout.Far.Voltages, voltage*attFar)
		readout.Far.Times = append(readout.Far.Times, c.Time+shiftFar+ReadoutTimeOffset)
	}
	return readout
}

// ReadoutOutcome is the result of digitizing a double-ended bar.
type ReadoutOutcome int

const (
	BothEndsOK ReadoutOutcome = iota
	FallbackSingleEnded
	Dropped
)

func (o ReadoutOutcome) String() string {
	switch o {
	case BothEndsOK:
		return "both-ends"
	case FallbackSingleEnded:
		return "single-ended-fallback"
	case Dropped:
		return "dropped"
	default:
		return fmt.Sprintf("ReadoutOutcome(%d)", int(o))
	}
}

// ResolveReadout decides what is recorded for a double-ended bar: both ends
// or nothing of the pair, and the single-ended reattempt otherwise.
func ResolveReadout(closeOK bool, farOK bool, singleOK bool) ReadoutOutcome {
	switch {
	case closeOK && farOK:
		return BothEndsOK
	case singleOK:
		return FallbackSingleEnded
	default:
		return Dropped
	}
}
