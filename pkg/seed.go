package hcaldigi

import (
	"fmt"
	"hash/fnv"
	"time"
)

const (
	SeedModeRun      = "run"
	SeedModeExternal = "external"
	SeedModeTime     = "time"

	SeedNoiseGenerator = "HcalDigiProducer::NoiseGenerator"
	SeedNoiseInjector  = "HcalDigiProducer::NoiseInjector"
	SeedHgcrocEmulator = "HcalDigiProducer::HgcrocEmulator"
)

// SeedService hands out reproducible per-consumer seeds derived from one
// master seed for the whole run.
type SeedService struct {
	mode   string
	master uint64
}

func NewSeedService(mode string, seed uint64, runNumber uint32) (*SeedService, error) {
	s := &SeedService{mode: mode}
	switch mode {
	case SeedModeRun:
		s.master = uint64(runNumber)
	case SeedModeExternal:
		s.master = seed
	case SeedModeTime:
		s.master = uint64(time.Now().UnixNano())
	default:
		return nil, &ErrConfiguration{Parameter: "seed_mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Seed service mode %s, master seed %d", mode, s.master)
		logger.Info(message, "seeds")
	}
	return s, nil
}

func (s *SeedService) Master() uint64 {
	return s.master
}

// GetSeed mixes the master seed with a hash of the consumer name so every
// consumer gets its own stream.
func (s *SeedService) GetSeed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return s.master*0x9E3779B97F4A7C15 + h.Sum64()
}
