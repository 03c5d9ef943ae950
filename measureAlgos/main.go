package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	hcaldigi "github.com/jmbenlloch/hcaldigi_go/pkg"
	"github.com/spf13/cobra"
)

var configuration hcaldigi.Configuration

var logger Logger

type Logger struct {
	InfoLog  *slog.Logger
	ErrorLog *slog.Logger
}

func (l Logger) Info(message string, module string) {
	l.InfoLog.Info(message, "module", module)
}

func (l Logger) Error(message string) {
	l.ErrorLog.Error(message)
}

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger = Logger{
		InfoLog:  slog.New(slog.NewTextHandler(os.Stdout, opts)),
		ErrorLog: slog.New(slog.NewJSONHandler(os.Stderr, opts)),
	}
}

func main() {
	var configFilename string
	var levels []int
	var repeat int

	cmd := &cobra.Command{
		Use:           "measureAlgos",
		Short:         "Measure write time and file size of the digi output per deflate level",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return measure(configFilename, levels, repeat)
		},
	}
	cmd.Flags().StringVar(&configFilename, "config", "", "Configuration file path (JSON or YAML)")
	cmd.Flags().IntSliceVar(&levels, "levels", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, "deflate levels to measure")
	cmd.Flags().IntVar(&repeat, "repeat", 3, "writes per level")
	_ = cmd.MarkFlagRequired("config")

	if err := cmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func measure(configFilename string, levels []int, repeat int) error {
	var err error
	configuration, err = hcaldigi.LoadConfiguration(configFilename)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	if err := configuration.Validate(); err != nil {
		return err
	}
	hcaldigi.SetConfiguration(configuration)
	hcaldigi.SetLogger(logger)

	file, err := hcaldigi.OpenSimFile(configuration.FileIn)
	if err != nil {
		return err
	}
	defer file.Close()

	var conditions hcaldigi.Conditions
	if configuration.NoDB {
		conditions = hcaldigi.NoDBConditions(configuration)
	} else {
		dbConn, err := hcaldigi.ConnectToDatabase(configuration)
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		conditions, err = hcaldigi.LoadConditions(dbConn, int(file.RunNumber()))
		dbConn.Close()
		if err != nil {
			return err
		}
	}

	start := time.Now()
	fileReader := hcaldigi.NewFileReader(file, configuration.Skip, configuration.MaxEvents)
	simEvents := hcaldigi.DecodeEvents(fileReader, configuration.NumWorkers)
	events, err := digitizeEvents(simEvents, conditions)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Total events processed: %d", len(events)), "main")

	for _, level := range levels {
		if level < 0 || level > 9 {
			logger.Error(fmt.Sprintf("skipping deflate level %d", level))
			continue
		}
		configuration.CompressionLevel = level
		hcaldigi.SetConfiguration(configuration)
		for i := 0; i < repeat; i++ {
			duration, err := writeEvents(events, conditions)
			if err != nil {
				return err
			}
			fileInfo, err := os.Stat(configuration.FileOut)
			if err != nil {
				logger.Error(fmt.Sprintf("Error getting file info: %v", err))
				continue
			}
			fmt.Printf("(hdf5, deflate %d) Time: %d ms, size %d bytes\n", level, duration.Milliseconds(), fileInfo.Size())
		}
	}

	fmt.Printf("Total time: %d ms\n", time.Since(start).Milliseconds())
	return nil
}
