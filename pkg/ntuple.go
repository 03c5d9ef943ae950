package hcaldigi

// SampleRecord is one sample of one digi with both views of its channel and
// the pedestal-subtracted ADC.
type SampleRecord struct {
	EventNumber uint32
	DigiID      HcalDigiID
	ElecID      HcalElectronicsID
	// Mapped is false when the detector map has no electronics id for the
	// channel; ElecID is zero then.
	Mapped bool
	// PedestalFound is false when ADC was computed with a pedestal of 0.
	PedestalFound bool
	ISample       int
	ADC           int
	Sample
}

// FlattenDigis expands a digi collection into one record per sample, in
// collection order.
func FlattenDigis(eventNumber uint32, coll *DigiCollection, conditions Conditions) []SampleRecord {
	records := make([]SampleRecord, 0, coll.Len()*coll.NumSamplesPerDigi())
	for _, digi := range coll.Digis() {
		digiID := HcalDigiID(digi.ChannelID)
		var elecID HcalElectronicsID
		mapped := false
		if conditions.DetectorMap != nil {
			elecID, mapped = conditions.DetectorMap.ElectronicsID(digiID)
		}
		for i, sample := range digi.Samples {
			record := SampleRecord{
				EventNumber: eventNumber,
				DigiID:      digiID,
				ElecID:      elecID,
				Mapped:      mapped,
				ISample:     i,
				Sample:      sample,
				ADC:         sample.ADCRaw,
			}
			if conditions.Pedestals != nil {
				record.ADC, record.PedestalFound = conditions.Pedestals.CorrectedADC(digi.ChannelID, sample.ADCRaw)
			}
			records = append(records, record)
		}
	}
	return records
}
