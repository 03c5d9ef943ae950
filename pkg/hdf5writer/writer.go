package hdf5writer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmbenlloch/go-hdf5"
	hcaldigi "github.com/jmbenlloch/hcaldigi_go/pkg"
)

type Writer struct {
	File         *hdf5.File
	Filename     string
	FirstEvt     bool
	RunGroup     *hdf5.Group
	DigisGroup   *hdf5.Group
	EventTable   *hdf5.Dataset
	RunInfoTable *hdf5.Dataset
	SampleTable  *hdf5.Dataset
	ADCArray     *hdf5.Dataset
	ProcessID    uuid.UUID
	EvtCounter   int
	DigiCounter  int
	RowCounter   int

	collName         string
	compressionLevel int
	conditions       hcaldigi.Conditions
}

// NewWriter creates filename and the tables every run has. The compression
// level and the digi collection name are taken from the configuration.
func NewWriter(filename string, conditions hcaldigi.Conditions) (*Writer, error) {
	configuration := hcaldigi.GetConfiguration()
	logger := hcaldigi.GetLogger()

	writer := &Writer{
		Filename:         filename,
		ProcessID:        uuid.New(),
		collName:         configuration.DigiCollName,
		compressionLevel: configuration.CompressionLevel,
		conditions:       conditions,
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Creating file %s (process %s, deflate %d)", filename, writer.ProcessID, writer.compressionLevel)
		logger.Info(message, "hdf5writer")
	}

	var err error
	if writer.File, err = openFile(filename); err != nil {
		return nil, err
	}
	if writer.RunGroup, err = createGroup(writer.File, "Run"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.DigisGroup, err = createGroup(writer.File, "Digis"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.EventTable, err = createTable(writer.RunGroup, "events", EventDataHDF5{}, writer.compressionLevel); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.RunInfoTable, err = createTable(writer.RunGroup, "runInfo", RunInfoHDF5{}, writer.compressionLevel); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.SampleTable, err = createTable(writer.DigisGroup, "samples", SampleHDF5{}, writer.compressionLevel); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	return writer, nil
}

func (w *Writer) WriteEvent(event *hcaldigi.Event) error {
	coll, ok := event.Collection(w.collName)
	if !ok {
		return fmt.Errorf("event %d has no collection %q", event.EventNumber, w.collName)
	}
	nSamples := coll.NumSamplesPerDigi()

	if !w.FirstEvt {
		runInfo := RunInfoHDF5{
			run_number:       int32(event.RunNumber),
			samples_per_digi: int32(nSamples),
			soi:              int32(coll.SampleOfInterestIndex()),
			process_id:       convertToHdf5String(w.ProcessID.String()),
		}
		if err := writeEntryToTable(w.RunInfoTable, runInfo, 0); err != nil {
			return fmt.Errorf("error writing run info: %w", err)
		}
		// one row of raw ADC per digi, aligned with the digi order of samples
		adcArray, err := create2dArray(w.DigisGroup, "adc", nSamples, w.compressionLevel)
		if err != nil {
			return err
		}
		w.ADCArray = adcArray
		w.FirstEvt = true
	}

	evtData := EventDataHDF5{
		evt_number: int32(event.EventNumber),
		n_digis:    int32(coll.Len()),
	}
	if err := writeEntryToTable(w.EventTable, evtData, w.EvtCounter); err != nil {
		return fmt.Errorf("error writing event %d: %w", event.EventNumber, err)
	}

	records := hcaldigi.FlattenDigis(event.EventNumber, coll, w.conditions)
	rows := make([]SampleHDF5, len(records))
	for i, r := range records {
		rows[i] = SampleHDF5{
			evt_number: int32(r.EventNumber),
			raw_id:     r.DigiID.Raw(),
			section:    int8(r.DigiID.Section()),
			layer:      int16(r.DigiID.Layer()),
			strip:      int16(r.DigiID.Strip()),
			end:        int8(r.DigiID.End()),
			fiber:      -1,
			elink:      -1,
			channel:    -1,
			index:      -1,
			i_sample:   int16(r.ISample),
			raw_adc:    int16(r.ADCRaw),
			adc:        int16(r.ADC),
			tot:        int16(r.TOT),
			toa:        int16(r.TOA),
			tot_prog:   boolToInt8(r.TOTInProgress),
			tot_comp:   boolToInt8(r.TOTComplete),
		}
		if r.Mapped {
			rows[i].fiber = int16(r.ElecID.Fiber())
			rows[i].elink = int16(r.ElecID.Elink())
			rows[i].channel = int16(r.ElecID.Channel())
			rows[i].index = int16(r.ElecID.Index())
		}
	}
	if err := writeArrayToTable(w.SampleTable, &rows, w.RowCounter); err != nil {
		return fmt.Errorf("error writing samples of event %d: %w", event.EventNumber, err)
	}

	adcs := make([]int16, 0, coll.Len()*nSamples)
	for _, digi := range coll.Digis() {
		for _, sample := range digi.Samples {
			adcs = append(adcs, int16(sample.ADCRaw))
		}
	}
	if err := write2dArray(w.ADCArray, &adcs, w.DigiCounter, nSamples); err != nil {
		return fmt.Errorf("error writing ADC array of event %d: %w", event.EventNumber, err)
	}

	w.RowCounter += len(rows)
	w.DigiCounter += coll.Len()
	w.EvtCounter++
	return nil
}

func (w *Writer) Close() error {
	configuration := hcaldigi.GetConfiguration()
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Closing file %s: %d events, %d digis", w.Filename, w.EvtCounter, w.DigiCounter)
		hcaldigi.GetLogger().Info(message, "hdf5writer")
	}
	var errs []error

	if w.EventTable != nil {
		if err := w.EventTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing event table: %w", err))
		}
	}
	if w.RunInfoTable != nil {
		if err := w.RunInfoTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run info table: %w", err))
		}
	}
	if w.SampleTable != nil {
		if err := w.SampleTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing sample table: %w", err))
		}
	}
	if w.ADCArray != nil {
		if err := w.ADCArray.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing ADC array: %w", err))
		}
	}
	if w.RunGroup != nil {
		if err := w.RunGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run group: %w", err))
		}
	}
	if w.DigisGroup != nil {
		if err := w.DigisGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing digis group: %w", err))
		}
	}
	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
