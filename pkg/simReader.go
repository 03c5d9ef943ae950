package hcaldigi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// SimEventHeader starts every event of a sim-hit file. EventSize counts the
// header too.
type SimEventHeader struct {
	EventSize   uint32
	RunNumber   uint32
	EventNumber uint32
	NHits       uint32
}

type simHitRecord struct {
	ID        uint32
	X         float32
	Y         float32
	Z         float32
	NContribs uint32
}

type contribRecord struct {
	Edep float32
	Time float32
}

var (
	simEventHeaderSize = binary.Size(SimEventHeader{})
	simHitRecordSize   = binary.Size(simHitRecord{})
	contribRecordSize  = binary.Size(contribRecord{})
)

func ValidEvent(header SimEventHeader) bool {
	minSize := uint64(simEventHeaderSize) + uint64(header.NHits)*uint64(simHitRecordSize)
	return uint64(header.EventSize) >= minSize
}

func ReadSimEventHeader(data []byte) (SimEventHeader, error) {
	var header SimEventHeader
	if len(data) < simEventHeaderSize {
		return header, fmt.Errorf("data is too short")
	}
	headerReader := bytes.NewReader(data[:simEventHeaderSize])
	err := binary.Read(headerReader, binary.LittleEndian, &header)
	return header, err
}

// ReadSimEvent decodes the event at the start of data. It returns the event
// and the number of bytes it used.
func ReadSimEvent(data []byte) (SimEvent, int, error) {
	header, err := ReadSimEventHeader(data)
	if err != nil {
		return SimEvent{}, 0, &ErrCorruptEvent{Offset: 0, Reason: err.Error()}
	}
	if !ValidEvent(header) || int(header.EventSize) > len(data) {
		return SimEvent{}, 0, &ErrCorruptEvent{Offset: 0,
			Reason: fmt.Sprintf("event size %d for %d hits, %d bytes available", header.EventSize, header.NHits, len(data))}
	}

	event := SimEvent{
		RunNumber:   header.RunNumber,
		EventNumber: header.EventNumber,
		Hits:        make([]SimCalorimeterHit, 0, header.NHits),
	}
	payload := data[:header.EventSize]
	position := simEventHeaderSize
	for i := 0; i < int(header.NHits); i++ {
		hit, nRead, err := readSimHit(payload, position)
		if err != nil {
			return SimEvent{}, 0, err
		}
		event.Hits = append(event.Hits, hit)
		position += nRead
	}
	if position != len(payload) {
		return SimEvent{}, 0, &ErrCorruptEvent{Offset: position,
			Reason: fmt.Sprintf("%d trailing bytes in event %d", len(payload)-position, header.EventNumber)}
	}

	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Event %d (run %d): %d hits, %d bytes", event.EventNumber, event.RunNumber,
			len(event.Hits), header.EventSize)
		logger.Info(message, "simReader")
	}
	return event, int(header.EventSize), nil
}

func readSimHit(payload []byte, position int) (SimCalorimeterHit, int, error) {
	var record simHitRecord
	if position+simHitRecordSize > len(payload) {
		return SimCalorimeterHit{}, 0, &ErrCorruptEvent{Offset: position, Reason: "truncated hit"}
	}
	reader := bytes.NewReader(payload[position : position+simHitRecordSize])
	if err := binary.Read(reader, binary.LittleEndian, &record); err != nil {
		return SimCalorimeterHit{}, 0, &ErrCorruptEvent{Offset: position, Reason: err.Error()}
	}
	start := position + simHitRecordSize
	end := start + int(record.NContribs)*contribRecordSize
	if end > len(payload) || end < start {
		return SimCalorimeterHit{}, 0, &ErrCorruptEvent{Offset: position,
			Reason: fmt.Sprintf("hit 0x%08x has %d contributions past the event end", record.ID, record.NContribs)}
	}

	contribs := make([]contribRecord, record.NContribs)
	reader = bytes.NewReader(payload[start:end])
	if err := binary.Read(reader, binary.LittleEndian, contribs); err != nil {
		return SimCalorimeterHit{}, 0, &ErrCorruptEvent{Offset: start, Reason: err.Error()}
	}

	hit := SimCalorimeterHit{
		ID:       HcalID(record.ID),
		Position: [3]float64{float64(record.X), float64(record.Y), float64(record.Z)},
		Contribs: make([]EnergyContribution, len(contribs)),
	}
	for i, c := range contribs {
		hit.Contribs[i] = EnergyContribution{Edep: float64(c.Edep), Time: float64(c.Time)}
	}
	return hit, end - position, nil
}

// WriteSimEvent encodes an event in the sim-hit file format.
func WriteSimEvent(w io.Writer, event SimEvent) error {
	size := simEventHeaderSize + len(event.Hits)*simHitRecordSize
	for _, hit := range event.Hits {
		size += len(hit.Contribs) * contribRecordSize
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	header := SimEventHeader{
		EventSize:   uint32(size),
		RunNumber:   event.RunNumber,
		EventNumber: event.EventNumber,
		NHits:       uint32(len(event.Hits)),
	}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, hit := range event.Hits {
		record := simHitRecord{
			ID:        hit.ID.Raw(),
			X:         float32(hit.Position[0]),
			Y:         float32(hit.Position[1]),
			Z:         float32(hit.Position[2]),
			NContribs: uint32(len(hit.Contribs)),
		}
		if err := binary.Write(buf, binary.LittleEndian, record); err != nil {
			return err
		}
		for _, c := range hit.Contribs {
			if err := binary.Write(buf, binary.LittleEndian, contribRecord{Edep: float32(c.Edep), Time: float32(c.Time)}); err != nil {
				return err
			}
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// SimFile is a read-only memory map of a sim-hit file with the offset of
// every event.
type SimFile struct {
	file    *os.File
	data    mmap.MMap
	offsets []int
	run     uint32
}

func OpenSimFile(filename string) (*SimFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	simFile := &SimFile{file: file}
	if info.Size() == 0 {
		return simFile, nil
	}

	simFile.data, err = mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	if err := simFile.index(); err != nil {
		simFile.Close()
		return nil, err
	}
	return simFile, nil
}

// index walks the event headers without decoding the hits.
func (f *SimFile) index() error {
	position := 0
	for position < len(f.data) {
		header, err := ReadSimEventHeader(f.data[position:])
		if err != nil {
			return &ErrCorruptEvent{Offset: position, Reason: err.Error()}
		}
		if !ValidEvent(header) || position+int(header.EventSize) > len(f.data) {
			return &ErrCorruptEvent{Offset: position,
				Reason: fmt.Sprintf("event size %d for %d hits", header.EventSize, header.NHits)}
		}
		if len(f.offsets) == 0 {
			f.run = header.RunNumber
		}
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Evt number: %d at offset %d", header.EventNumber, position)
			logger.Info(message, "evtCounter")
		}
		f.offsets = append(f.offsets, position)
		position += int(header.EventSize)
	}
	return nil
}

func (f *SimFile) NumEvents() int {
	return len(f.offsets)
}

// RunNumber is the run of the first event, 0 for an empty file.
func (f *SimFile) RunNumber() uint32 {
	return f.run
}

// EventData returns the raw bytes of the i-th event. They are only valid
// until Close.
func (f *SimFile) EventData(i int) []byte {
	start := f.offsets[i]
	end := len(f.data)
	if i+1 < len(f.offsets) {
		end = f.offsets[i+1]
	}
	return f.data[start:end]
}

func (f *SimFile) ReadEvent(i int) (SimEvent, error) {
	event, _, err := ReadSimEvent(f.EventData(i))
	if err != nil {
		return event, fmt.Errorf("event %d: %w", i, err)
	}
	return event, nil
}

func (f *SimFile) Close() error {
	var err error
	if f.data != nil {
		err = f.data.Unmap()
		f.data = nil
	}
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	return err
}
