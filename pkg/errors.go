package hcaldigi

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSeeded is returned when a generator is used before the run seed
	// service seeded it.
	ErrNotSeeded = errors.New("random generator used before seeding")
	// ErrInputMismatch is returned when voltages and times differ in length.
	ErrInputMismatch = errors.New("voltages and times have different lengths")
	// ErrDuplicateDigi is returned when a channel already has a digi in the
	// collection.
	ErrDuplicateDigi = errors.New("channel already has a digi")
	// ErrDigiLength is returned when a digi does not hold samplesPerDigi samples.
	ErrDigiLength = errors.New("digi has wrong number of samples")
)

// ErrConfiguration represents an invalid configuration parameter.
type ErrConfiguration struct {
	Parameter string
	Reason    string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("invalid configuration parameter %q: %s", e.Parameter, e.Reason)
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrCorruptEvent represents a sim-hit event whose payload does not match its
// header.
type ErrCorruptEvent struct {
	Offset int
	Reason string
}

func (e *ErrCorruptEvent) Error() string {
	return fmt.Sprintf("corrupt event at offset %d: %s", e.Offset, e.Reason)
}
