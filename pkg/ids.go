package hcaldigi

import "fmt"

// Raw channel identifiers are packed in 32 bits. The top six bits hold the
// subdetector code, the rest are field specific.
const (
	subdetShift = 26
	subdetMask  = 0x3F

	SubdetHcal            = 4
	SubdetHcalElectronics = 48

	sectionShift = 18
	sectionMask  = 0x7
	layerShift   = 10
	layerMask    = 0xFF
	stripShift   = 0
	stripMask    = 0xFF
	endShift     = 24
	endMask      = 0x1
	digiFlagBit  = 25

	fiberShift   = 16
	fiberMask    = 0x3FF
	elinkShift   = 10
	elinkMask    = 0x3F
	channelShift = 4
	channelMask  = 0x3F
	indexShift   = 0
	indexMask    = 0xF
)

type HcalSection int

const (
	SectionBack HcalSection = iota
	SectionTop
	SectionBottom
	SectionRight
	SectionLeft
)

func (s HcalSection) String() string {
	switch s {
	case SectionBack:
		return "back"
	case SectionTop:
		return "top"
	case SectionBottom:
		return "bottom"
	case SectionRight:
		return "right"
	case SectionLeft:
		return "left"
	default:
		return "unknown"
	}
}

// DoubleEnded reports whether bars in the section are read out at both ends.
func (s HcalSection) DoubleEnded() bool {
	return s == SectionBack
}

func CheckBit(mask uint32, pos uint32) bool {
	return (mask & (1 << pos)) != 0
}

func field(raw uint32, shift uint32, mask uint32) int {
	return int((raw >> shift) & mask)
}

// HcalID identifies a bar, the granularity of simulated hits.
type HcalID uint32

func NewHcalID(section HcalSection, layer int, strip int) HcalID {
	raw := uint32(SubdetHcal) << subdetShift
	raw |= (uint32(section) & sectionMask) << sectionShift
	raw |= (uint32(layer) & layerMask) << layerShift
	raw |= (uint32(strip) & stripMask) << stripShift
	return HcalID(raw)
}

func (id HcalID) Raw() uint32          { return uint32(id) }
func (id HcalID) Section() HcalSection { return HcalSection(field(uint32(id), sectionShift, sectionMask)) }
func (id HcalID) Layer() int           { return field(uint32(id), layerShift, layerMask) }
func (id HcalID) Strip() int           { return field(uint32(id), stripShift, stripMask) }
func (id HcalID) DigiID(end int) HcalDigiID {
	return NewHcalDigiID(id.Section(), id.Layer(), id.Strip(), end)
}

func (id HcalID) String() string {
	return fmt.Sprintf("HcalID(%s, layer %d, strip %d)", id.Section(), id.Layer(), id.Strip())
}

// HcalDigiID identifies one readout end of a bar.
type HcalDigiID uint32

func NewHcalDigiID(section HcalSection, layer int, strip int, end int) HcalDigiID {
	raw := uint32(NewHcalID(section, layer, strip))
	raw |= 1 << digiFlagBit
	raw |= (uint32(end) & endMask) << endShift
	return HcalDigiID(raw)
}

func (id HcalDigiID) Raw() uint32          { return uint32(id) }
func (id HcalDigiID) Section() HcalSection { return HcalSection(field(uint32(id), sectionShift, sectionMask)) }
func (id HcalDigiID) Layer() int           { return field(uint32(id), layerShift, layerMask) }
func (id HcalDigiID) Strip() int           { return field(uint32(id), stripShift, stripMask) }
func (id HcalDigiID) End() int             { return field(uint32(id), endShift, endMask) }

// Bar drops the end field.
func (id HcalDigiID) Bar() HcalID {
	return NewHcalID(id.Section(), id.Layer(), id.Strip())
}

func (id HcalDigiID) IsDigi() bool {
	return field(uint32(id), subdetShift, subdetMask) == SubdetHcal && CheckBit(uint32(id), digiFlagBit)
}

func (id HcalDigiID) String() string {
	return fmt.Sprintf("HcalDigiID(%s, layer %d, strip %d, end %d)", id.Section(), id.Layer(), id.Strip(), id.End())
}

// HcalElectronicsID is the fiber/elink/channel view of a readout channel.
type HcalElectronicsID uint32

func NewHcalElectronicsID(fiber int, elink int, channel int, index int) HcalElectronicsID {
	raw := uint32(SubdetHcalElectronics) << subdetShift
	raw |= (uint32(fiber) & fiberMask) << fiberShift
	raw |= (uint32(elink) & elinkMask) << elinkShift
	raw |= (uint32(channel) & channelMask) << channelShift
	raw |= (uint32(index) & indexMask) << indexShift
	return HcalElectronicsID(raw)
}

func (id HcalElectronicsID) Raw() uint32  { return uint32(id) }
func (id HcalElectronicsID) Fiber() int   { return field(uint32(id), fiberShift, fiberMask) }
func (id HcalElectronicsID) Elink() int   { return field(uint32(id), elinkShift, elinkMask) }
func (id HcalElectronicsID) Channel() int { return field(uint32(id), channelShift, channelMask) }
func (id HcalElectronicsID) Index() int   { return field(uint32(id), indexShift, indexMask) }

func (id HcalElectronicsID) String() string {
	return fmt.Sprintf("HcalElectronicsID(fiber %d, elink %d, channel %d, index %d)",
		id.Fiber(), id.Elink(), id.Channel(), id.Index())
}
