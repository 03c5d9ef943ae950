package hcaldigi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigiCollection(t *testing.T) {
	coll := NewDigiCollection(3, 1)
	assert.Equal(t, 3, coll.NumSamplesPerDigi())
	assert.Equal(t, 1, coll.SampleOfInterestIndex())

	require.NoError(t, coll.AddDigi(20, make([]Sample, 3)))
	require.NoError(t, coll.AddDigi(10, []Sample{{ADCRaw: 1}, {ADCRaw: 2}, {ADCRaw: 3}}))

	assert.ErrorIs(t, coll.AddDigi(30, make([]Sample, 2)), ErrDigiLength)
	assert.ErrorIs(t, coll.AddDigi(20, make([]Sample, 3)), ErrDuplicateDigi)

	require.Equal(t, 2, coll.Len())
	assert.Equal(t, uint32(20), coll.Digi(0).ChannelID)
	digi, ok := coll.Get(10)
	require.True(t, ok)
	assert.Equal(t, 2, digi.Samples[1].ADCRaw)
	_, ok = coll.Get(30)
	assert.False(t, ok)
}

func TestEvent(t *testing.T) {
	hits := []SimCalorimeterHit{{ID: NewHcalID(SectionTop, 1, 1)}}
	event := NewEvent(SimEvent{RunNumber: 3, EventNumber: 8, Hits: hits})
	assert.Equal(t, uint32(3), event.RunNumber)
	assert.Equal(t, uint32(8), event.EventNumber)
	assert.Equal(t, hits, event.SimHits)

	_, ok := event.Collection("HcalDigis")
	assert.False(t, ok)

	coll := NewDigiCollection(1, 0)
	require.NoError(t, event.Add("HcalDigis", coll))
	assert.Error(t, event.Add("HcalDigis", NewDigiCollection(1, 0)))

	got, ok := event.Collection("HcalDigis")
	require.True(t, ok)
	assert.Same(t, coll, got)
}
