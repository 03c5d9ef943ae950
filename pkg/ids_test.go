package hcaldigi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHcalDigiID(t *testing.T) {
	id := NewHcalDigiID(SectionRight, 17, 61, 1)
	assert.Equal(t, SectionRight, id.Section())
	assert.Equal(t, 17, id.Layer())
	assert.Equal(t, 61, id.Strip())
	assert.Equal(t, 1, id.End())
	assert.True(t, id.IsDigi())
	assert.Equal(t, NewHcalID(SectionRight, 17, 61), id.Bar())
	assert.False(t, HcalDigiID(NewHcalID(SectionRight, 17, 61)).IsDigi())

	// both ends of one bar are distinct channels of the same bar
	other := NewHcalDigiID(SectionRight, 17, 61, 0)
	assert.NotEqual(t, id, other)
	assert.Equal(t, id.Bar(), other.Bar())
}

func TestHcalID(t *testing.T) {
	id := NewHcalID(SectionBack, 96, 0)
	assert.Equal(t, SectionBack, id.Section())
	assert.Equal(t, 96, id.Layer())
	assert.Equal(t, 0, id.Strip())
	assert.Equal(t, NewHcalDigiID(SectionBack, 96, 0, 1), id.DigiID(1))
	assert.Equal(t, "HcalID(back, layer 96, strip 0)", id.String())
}

func TestHcalElectronicsID(t *testing.T) {
	id := NewHcalElectronicsID(513, 33, 40, 9)
	assert.Equal(t, 513, id.Fiber())
	assert.Equal(t, 33, id.Elink())
	assert.Equal(t, 40, id.Channel())
	assert.Equal(t, 9, id.Index())
}

func TestHcalSection(t *testing.T) {
	assert.True(t, SectionBack.DoubleEnded())
	for _, s := range []HcalSection{SectionTop, SectionBottom, SectionRight, SectionLeft} {
		assert.False(t, s.DoubleEnded(), s.String())
	}
	assert.Equal(t, "unknown", HcalSection(7).String())
}
