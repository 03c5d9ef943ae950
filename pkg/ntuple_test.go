package hcaldigi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenDigis(t *testing.T) {
	mapped := NewHcalDigiID(SectionBack, 2, 4, 1)
	unmapped := NewHcalDigiID(SectionTop, 1, 0, 0)
	elecID := NewHcalElectronicsID(3, 2, 1, 0)

	coll := NewDigiCollection(2, 0)
	require.NoError(t, coll.AddDigi(mapped.Raw(), []Sample{{ADCRaw: 60, TOA: 12}, {ADCRaw: 55}}))
	require.NoError(t, coll.AddDigi(unmapped.Raw(), []Sample{{ADCRaw: 40}, {ADCRaw: 41, TOT: 100, TOTComplete: true}}))

	conditions := Conditions{Pedestals: NewPedestalTable(), DetectorMap: NewDetectorMap()}
	conditions.Pedestals.Set(mapped.Raw(), 50)
	require.NoError(t, conditions.DetectorMap.Add(mapped, elecID))

	records := FlattenDigis(9, coll, conditions)
	require.Len(t, records, 4)

	first := records[0]
	assert.Equal(t, uint32(9), first.EventNumber)
	assert.Equal(t, mapped, first.DigiID)
	assert.True(t, first.Mapped)
	assert.Equal(t, elecID, first.ElecID)
	assert.True(t, first.PedestalFound)
	assert.Equal(t, 0, first.ISample)
	assert.Equal(t, 10, first.ADC)
	assert.Equal(t, 12, first.TOA)
	assert.Equal(t, 5, records[1].ADC)

	last := records[3]
	assert.Equal(t, unmapped, last.DigiID)
	assert.False(t, last.Mapped)
	assert.Equal(t, HcalElectronicsID(0), last.ElecID)
	assert.False(t, last.PedestalFound)
	assert.Equal(t, 1, last.ISample)
	assert.Equal(t, 41, last.ADC)
	assert.True(t, last.TOTComplete)
}

func TestFlattenDigis_NoConditions(t *testing.T) {
	coll := NewDigiCollection(1, 0)
	require.NoError(t, coll.AddDigi(NewHcalDigiID(SectionLeft, 1, 1, 0).Raw(), []Sample{{ADCRaw: 70}}))

	records := FlattenDigis(1, coll, Conditions{})
	require.Len(t, records, 1)
	assert.Equal(t, 70, records[0].ADC)
	assert.False(t, records[0].Mapped)
	assert.False(t, records[0].PedestalFound)
}
