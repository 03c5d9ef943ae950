package main

import (
	"fmt"
	"time"

	hcaldigi "github.com/jmbenlloch/hcaldigi_go/pkg"
	"github.com/jmbenlloch/hcaldigi_go/pkg/hdf5writer"
)

// digitizeEvents runs the producer once over every event so each
// compression level writes the same digis.
func digitizeEvents(simEvents []hcaldigi.SimEvent, conditions hcaldigi.Conditions) ([]*hcaldigi.Event, error) {
	producer, err := hcaldigi.NewHcalDigiProducer(configuration)
	if err != nil {
		return nil, err
	}
	events := make([]*hcaldigi.Event, 0, len(simEvents))
	for _, sim := range simEvents {
		event := hcaldigi.NewEvent(sim)
		if err := producer.Produce(event, conditions); err != nil {
			logger.Error(fmt.Sprintf("discarding event %d: %v", sim.EventNumber, err))
			continue
		}
		events = append(events, event)
	}
	logger.Info(producer.Stats().String(), "main")
	return events, nil
}

// writeEvents writes every event and returns the time spent in the writer.
func writeEvents(events []*hcaldigi.Event, conditions hcaldigi.Conditions) (time.Duration, error) {
	start := time.Now()
	writer, err := hdf5writer.NewWriter(configuration.FileOut, conditions)
	if err != nil {
		return 0, err
	}
	for _, event := range events {
		if err := writer.WriteEvent(event); err != nil {
			logger.Error(fmt.Sprintf("error writing event %d: %v", event.EventNumber, err))
		}
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
