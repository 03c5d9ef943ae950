package hcaldigi

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Configuration struct {
	MaxEvents        int    `json:"max_events" yaml:"max_events"`
	Skip             int    `json:"skip" yaml:"skip"`
	Verbosity        int    `json:"verbosity" yaml:"verbosity"`
	FileIn           string `json:"file_in" yaml:"file_in"`
	FileOut          string `json:"file_out" yaml:"file_out"`
	NoDB             bool   `json:"no_db" yaml:"no_db"`
	DBDriver         string `json:"db_driver" yaml:"db_driver"`
	Host             string `json:"host" yaml:"host"`
	Port             int    `json:"port" yaml:"port"`
	User             string `json:"user" yaml:"user"`
	Passwd           string `json:"pass" yaml:"pass"`
	DBName           string `json:"dbname" yaml:"dbname"`
	NumWorkers       int    `json:"num_workers" yaml:"num_workers"`
	WriteData        bool   `json:"write_data" yaml:"write_data"`
	CompressionLevel int    `json:"compression_level" yaml:"compression_level"`

	InputCollName string `json:"input_coll_name" yaml:"input_coll_name"`
	InputPassName string `json:"input_pass_name" yaml:"input_pass_name"`
	DigiCollName  string `json:"digi_coll_name" yaml:"digi_coll_name"`

	// MeV converts deposited energy into voltage [mV/MeV].
	MeV float64 `json:"mev" yaml:"mev"`
	// AttenuationLength is in the units of the bar position divided by
	// BarLengthScale.
	AttenuationLength float64           `json:"attenuation_length" yaml:"attenuation_length"`
	HalfTotalWidth    float64           `json:"half_total_width" yaml:"half_total_width"`
	Sections          []SectionGeometry `json:"sections" yaml:"sections"`

	SeedMode string `json:"seed_mode" yaml:"seed_mode"`
	Seed     uint64 `json:"seed" yaml:"seed"`

	Hgcroc HgcrocParameters `json:"hgcroc" yaml:"hgcroc"`
}

// SectionGeometry describes the bars of one HCal section, used to enumerate
// channels when no detector map is available.
type SectionGeometry struct {
	Section    HcalSection `json:"section" yaml:"section"`
	FirstLayer int         `json:"first_layer" yaml:"first_layer"`
	NumLayers  int         `json:"num_layers" yaml:"num_layers"`
	NumStrips  int         `json:"num_strips" yaml:"num_strips"`
}

type HgcrocParameters struct {
	// Gain in mV per ADC count.
	Gain float64 `json:"gain" yaml:"gain"`
	// Pedestal in ADC counts.
	Pedestal   float64 `json:"pedestal" yaml:"pedestal"`
	ClockCycle float64 `json:"clock_cycle" yaml:"clock_cycle"`
	NADCs      int     `json:"n_adcs" yaml:"n_adcs"`
	ISOI       int     `json:"i_soi" yaml:"i_soi"`
	Noise      bool    `json:"noise" yaml:"noise"`
	// Thresholds and noise are in mV above the pedestal.
	NoiseRMS         float64     `json:"noise_rms" yaml:"noise_rms"`
	ReadoutThreshold float64     `json:"readout_threshold" yaml:"readout_threshold"`
	ToaThreshold     float64     `json:"toa_threshold" yaml:"toa_threshold"`
	TotThreshold     float64     `json:"tot_threshold" yaml:"tot_threshold"`
	TimingJitter     float64     `json:"timing_jitter" yaml:"timing_jitter"`
	MeasTime         float64     `json:"meas_time" yaml:"meas_time"`
	PulseShape       PulseFamily `json:"pulse_shape" yaml:"pulse_shape"`
	RiseTime         float64     `json:"rise_time" yaml:"rise_time"`
	FallTime         float64     `json:"fall_time" yaml:"fall_time"`
}

var configuration = DefaultConfiguration()

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

func DefaultHgcrocParameters() HgcrocParameters {
	return HgcrocParameters{
		Gain:             1.2,
		Pedestal:         50,
		ClockCycle:       25,
		NADCs:            10,
		ISOI:             2,
		Noise:            true,
		NoiseRMS:         0.7,
		ReadoutThreshold: 4,
		ToaThreshold:     6,
		TotThreshold:     1000,
		TimingJitter:     0.1,
		MeasTime:         0,
		PulseShape:       PulseBimoid,
		RiseTime:         4,
		FallTime:         20,
	}
}

func DefaultSections() []SectionGeometry {
	return []SectionGeometry{
		{Section: SectionBack, FirstLayer: 1, NumLayers: 96, NumStrips: 62},
		{Section: SectionTop, FirstLayer: 1, NumLayers: 16, NumStrips: 12},
		{Section: SectionBottom, FirstLayer: 1, NumLayers: 16, NumStrips: 12},
		{Section: SectionRight, FirstLayer: 1, NumLayers: 16, NumStrips: 12},
		{Section: SectionLeft, FirstLayer: 1, NumLayers: 16, NumStrips: 12},
	}
}

func DefaultConfiguration() Configuration {
	return Configuration{
		MaxEvents:         1000000000,
		Skip:              0,
		Verbosity:         0,
		NoDB:              false,
		DBDriver:          "mysql",
		Host:              "localhost",
		Port:              3306,
		User:              "hcalreader",
		Passwd:            "readonly",
		DBName:            "HCAL",
		NumWorkers:        1,
		WriteData:         true,
		CompressionLevel:  4,
		InputCollName:     "HcalSimHits",
		InputPassName:     "",
		DigiCollName:      "HcalDigis",
		MeV:               4.66,
		AttenuationLength: 5,
		HalfTotalWidth:    1000,
		Sections:          DefaultSections(),
		SeedMode:          SeedModeRun,
		Hgcroc:            DefaultHgcrocParameters(),
	}
}

// LoadConfiguration reads a JSON or YAML file (chosen by extension) on top
// of the default values.
func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, &ErrOpenFile{Filename: filename, Err: err}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("error decoding configuration %s: %w", filename, err)
	}
	return config, nil
}

// Validate checks the parameters that would make digitization meaningless.
// Any error here must stop the run before the first event.
func (c Configuration) Validate() error {
	h := c.Hgcroc
	checks := []struct {
		ok        bool
		parameter string
		reason    string
	}{
		{c.AttenuationLength > 0, "attenuation_length", "must be positive"},
		{c.HalfTotalWidth > 0, "half_total_width", "must be positive"},
		{c.MeV > 0, "mev", "must be positive"},
		{h.Gain > 0, "gain", "must be positive"},
		{h.ClockCycle > 0, "clock_cycle", "must be positive"},
		{h.NADCs > 0, "n_adcs", "must be positive"},
		{h.ISOI >= 0 && h.ISOI < h.NADCs, "i_soi", "must be a sample index"},
		{h.NoiseRMS >= 0, "noise_rms", "must not be negative"},
		{h.TimingJitter >= 0, "timing_jitter", "must not be negative"},
		{!math.IsNaN(h.ReadoutThreshold), "readout_threshold", "must be a number"},
		{h.RiseTime > 0 && h.RiseTime < h.FallTime, "rise_time", "must be positive and below fall_time"},
		{h.PulseShape == PulseBimoid || h.PulseShape == PulseExpo, "pulse_shape", "must be bimoid or expo"},
		{c.SeedMode == SeedModeRun || c.SeedMode == SeedModeExternal || c.SeedMode == SeedModeTime,
			"seed_mode", "must be run, external or time"},
		{c.NumWorkers > 0, "num_workers", "must be positive"},
		{c.CompressionLevel >= 0 && c.CompressionLevel <= 9, "compression_level", "must be in [0, 9]"},
		{c.DigiCollName != "", "digi_coll_name", "must not be empty"},
	}
	for _, check := range checks {
		if !check.ok {
			return &ErrConfiguration{Parameter: check.parameter, Reason: check.reason}
		}
	}
	if !c.NoDB {
		if _, err := driverName(c.DBDriver); err != nil {
			return err
		}
	}
	for _, s := range c.Sections {
		if s.NumLayers < 0 || s.NumStrips < 0 {
			return &ErrConfiguration{Parameter: "sections",
				Reason: fmt.Sprintf("section %s has negative size", s.Section)}
		}
	}
	return nil
}
