package main

import (
	"fmt"
	"os"
	"time"

	hcaldigi "github.com/jmbenlloch/hcaldigi_go/pkg"
	"github.com/jmbenlloch/hcaldigi_go/pkg/hdf5writer"
	"github.com/spf13/cobra"
)

var configuration hcaldigi.Configuration

var logger Logger

func init() {
	logger = NewLogger(os.Stdout, os.Stderr)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hcaldigi",
		Short:         "HCal front-end digitization emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDigitizeCmd())
	root.AddCommand(newPulseCmd())
	return root
}

func newDigitizeCmd() *cobra.Command {
	var configFilename string
	var verbosity int

	cmd := &cobra.Command{
		Use:   "digitize",
		Short: "Digitize a sim-hit file into an HDF5 digi file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := hcaldigi.LoadConfiguration(configFilename)
			if err != nil {
				return fmt.Errorf("error reading configuration file: %w", err)
			}
			if cmd.Flags().Changed("verbosity") {
				config.Verbosity = verbosity
			}
			if err := config.Validate(); err != nil {
				return err
			}
			configuration = config
			hcaldigi.SetConfiguration(configuration)
			hcaldigi.SetLogger(logger)

			if configuration.Verbosity > 0 {
				logger.Info(fmt.Sprintf("Reading configuration file: %s", configFilename), "main")
				printConfiguration(configuration, logger)
			}
			return digitize()
		},
	}
	cmd.Flags().StringVar(&configFilename, "config", "", "Configuration file path (JSON or YAML)")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "Override the configured verbosity")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func loadConditions(runNumber uint32) (hcaldigi.Conditions, error) {
	if configuration.NoDB {
		return hcaldigi.NoDBConditions(configuration), nil
	}
	dbConn, err := hcaldigi.ConnectToDatabase(configuration)
	if err != nil {
		return hcaldigi.Conditions{}, fmt.Errorf("error connecting to database: %w", err)
	}
	defer dbConn.Close()
	return hcaldigi.LoadConditions(dbConn, int(runNumber))
}

func digitize() error {
	start := time.Now()

	file, err := hcaldigi.OpenSimFile(configuration.FileIn)
	if err != nil {
		return err
	}
	defer file.Close()

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Number of events: %d (run %d)", file.NumEvents(), file.RunNumber())
		logger.Info(message, "main")
	}

	conditions, err := loadConditions(file.RunNumber())
	if err != nil {
		return err
	}

	producer, err := hcaldigi.NewHcalDigiProducer(configuration)
	if err != nil {
		return err
	}

	fileReader := hcaldigi.NewFileReader(file, configuration.Skip, configuration.MaxEvents)
	simEvents := hcaldigi.DecodeEvents(fileReader, configuration.NumWorkers)

	var writer *hdf5writer.Writer
	if configuration.WriteData {
		writer, err = hdf5writer.NewWriter(configuration.FileOut, conditions)
		if err != nil {
			return err
		}
	}

	nWritten := 0
	for _, sim := range simEvents {
		event, ok := processEvent(producer, sim, conditions)
		if !ok || writer == nil {
			continue
		}
		if err := writer.WriteEvent(event); err != nil {
			logger.Error(fmt.Errorf("error writing event %d: %w", event.EventNumber, err).Error())
			continue
		}
		nWritten++
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			return err
		}
	}

	logger.Info(fmt.Sprintf("Events written: %d/%d", nWritten, len(simEvents)), "main")
	logger.Info(producer.Stats().String(), "main")
	logger.Info(fmt.Sprintf("Total time: %d ms", time.Since(start).Milliseconds()), "main")
	return nil
}

// processEvent digitizes one event. A failing event is logged and discarded
// without stopping the run.
func processEvent(producer *hcaldigi.HcalDigiProducer, sim hcaldigi.SimEvent,
	conditions hcaldigi.Conditions) (event *hcaldigi.Event, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("digitizer recovered from panic on event %d: %v", sim.EventNumber, r)
			logger.Error(errMessage.Error())
			logger.Error(fmt.Sprintf("discarding event %d", sim.EventNumber))
			event, ok = nil, false
		}
	}()

	event = hcaldigi.NewEvent(sim)
	if err := producer.Produce(event, conditions); err != nil {
		logger.Error(fmt.Errorf("error digitizing event %d: %w", sim.EventNumber, err).Error())
		logger.Error(fmt.Sprintf("discarding event %d", sim.EventNumber))
		return nil, false
	}
	return event, true
}
