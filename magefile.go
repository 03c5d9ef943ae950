//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildHcaldigi)
	mg.Deps(BuildMeasureAlgos)
	fmt.Println("Compilation finished")
	return nil
}

// cgoCommand runs the go tool with the HDF5 cgo flags of the environment.
func cgoCommand(args ...string) *exec.Cmd {
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
		fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func BuildHcaldigi() error {
	fmt.Println("Building hcaldigi executable...")
	return cgoCommand("build", "-o", "./bin/hcaldigi", "./hcaldigi").Run()
}

func BuildMeasureAlgos() error {
	fmt.Println("Building measureAlgos executable...")
	return cgoCommand("build", "-o", "./bin/measureAlgos", "./measureAlgos").Run()
}

// Test runs the unit tests of the packages that do not need HDF5.
func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./pkg/")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// TestAll also runs the HDF5 writer and command tests.
func TestAll() error {
	fmt.Println("Running all tests...")
	return cgoCommand("test", "./...").Run()
}
