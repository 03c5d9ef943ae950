package hcaldigi

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

type WorkerData struct {
	Index int
	Data  []byte
}

type WorkerResult struct {
	Index int
	Event SimEvent
	Err   error
}

func worker(id int, jobs <-chan WorkerData, results chan<- WorkerResult) {
	for job := range jobs {
		results <- decodeJob(id, job)
	}
}

func decodeJob(id int, job WorkerData) (result WorkerResult) {
	result.Index = job.Index
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("worker %d recovered from panic on event %d: %v", id, job.Index, r)
		}
	}()
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Worker %d processing event %d", id, job.Index)
		logger.Info(message, "workers")
	}
	result.Event, _, result.Err = ReadSimEvent(job.Data)
	return result
}

func sendEventsToWorkers(fileReader *FileReader, jobs chan<- WorkerData) {
	defer close(jobs)
	for {
		index, eventData, err := fileReader.NextEvent()
		if err != nil {
			if err != io.EOF {
				logger.Error(fmt.Sprintf("error reading event %d: %v", index, err))
			}
			return
		}
		jobs <- WorkerData{Index: index, Data: eventData}
	}
}

// DecodeEvents parses the selected events with nWorkers goroutines and
// returns them in file order. Events that fail to decode are logged and
// left out.
func DecodeEvents(fileReader *FileReader, nWorkers int) []SimEvent {
	if nWorkers < 1 {
		nWorkers = 1
	}
	jobs := make(chan WorkerData, 100)
	results := make(chan WorkerResult, 100)

	var wg sync.WaitGroup
	for w := 1; w <= nWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, jobs, results)
		}(w)
	}
	go sendEventsToWorkers(fileReader, jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	decoded := make([]WorkerResult, 0)
	for result := range results {
		if result.Err != nil {
			logger.Error(fmt.Sprintf("discarding event %d: %v", result.Index, result.Err))
			continue
		}
		decoded = append(decoded, result)
	}
	sort.Slice(decoded, func(i, j int) bool {
		return decoded[i].Index < decoded[j].Index
	})

	events := make([]SimEvent, len(decoded))
	for i, result := range decoded {
		events[i] = result.Event
	}
	return events
}
