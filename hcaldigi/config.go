package main

import (
	"fmt"

	hcaldigi "github.com/jmbenlloch/hcaldigi_go/pkg"
)

func printConfiguration(config hcaldigi.Configuration, logger hcaldigi.Logger) {
	h := config.Hgcroc
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("Host: %s:%d", config.Host, config.Port), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Input collection: %s (pass %q)", config.InputCollName, config.InputPassName), "config")
	logger.Info(fmt.Sprintf("Digi collection: %s", config.DigiCollName), "config")
	logger.Info(fmt.Sprintf("MeV: %g", config.MeV), "config")
	logger.Info(fmt.Sprintf("Attenuation length: %g", config.AttenuationLength), "config")
	logger.Info(fmt.Sprintf("Half total width: %g mm", config.HalfTotalWidth), "config")
	for _, s := range config.Sections {
		logger.Info(fmt.Sprintf("Section %s: layers %d-%d, %d strips", s.Section,
			s.FirstLayer, s.FirstLayer+s.NumLayers-1, s.NumStrips), "config")
	}
	logger.Info(fmt.Sprintf("Seed mode: %s (seed %d)", config.SeedMode, config.Seed), "config")
	logger.Info(fmt.Sprintf("Gain: %g mV/ADC", h.Gain), "config")
	logger.Info(fmt.Sprintf("Pedestal: %g ADC", h.Pedestal), "config")
	logger.Info(fmt.Sprintf("Clock cycle: %g ns", h.ClockCycle), "config")
	logger.Info(fmt.Sprintf("Samples per digi: %d (SOI %d)", h.NADCs, h.ISOI), "config")
	logger.Info(fmt.Sprintf("Noise: %t (RMS %g mV, jitter %g ns)", h.Noise, h.NoiseRMS, h.TimingJitter), "config")
	logger.Info(fmt.Sprintf("Thresholds: readout %g, TOA %g, TOT %g mV", h.ReadoutThreshold, h.ToaThreshold, h.TotThreshold), "config")
	logger.Info(fmt.Sprintf("Measurement time: %g ns", h.MeasTime), "config")
	logger.Info(fmt.Sprintf("Pulse: %s (rise %g ns, fall %g ns)", h.PulseShape, h.RiseTime, h.FallTime), "config")
}
