package hcaldigi

import (
	"fmt"
	"io"
)

// FileReader hands out the raw events of a sim-hit file, honouring the skip
// and max events options.
type FileReader struct {
	File     *SimFile
	EvtCount int
	last     int
}

func NewFileReader(file *SimFile, skip int, maxEvents int) *FileReader {
	if skip < 0 {
		skip = 0
	}
	return &FileReader{
		File:     file,
		EvtCount: skip - 1,
		last:     skip + NumberOfEventsToProcess(file.NumEvents(), skip, maxEvents),
	}
}

// NextEvent returns the index and bytes of the next selected event, or
// io.EOF once the selection is exhausted.
func (f *FileReader) NextEvent() (int, []byte, error) {
	f.EvtCount++
	if f.EvtCount >= f.last {
		if configuration.Verbosity > 0 && f.EvtCount == f.last && f.last < f.File.NumEvents() {
			logger.Info("Max events reached", "fileReader")
		}
		return f.EvtCount, nil, io.EOF
	}
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Reading event %d", f.EvtCount)
		logger.Info(message, "fileReader")
	}
	return f.EvtCount, f.File.EventData(f.EvtCount), nil
}

func NumberOfEventsToProcess(fileEvtCount int, skipEvts int, maxEvtCount int) int {
	evtsToRead := fileEvtCount - skipEvts
	if evtsToRead > maxEvtCount {
		evtsToRead = maxEvtCount
	}
	if evtsToRead < 0 {
		evtsToRead = 0
	}
	return evtsToRead
}
