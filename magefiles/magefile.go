//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir = "bin"
	binary = "objtool"
)

var Default = Build

// Build compiles objtool into bin/.
func Build() error {
	mg.Deps(Tidy)
	out := filepath.Join(binDir, binary)
	fmt.Printf("Building %s\n", out)
	return sh.RunV("go", "build", "-o", out, "./cmd/objtool")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Lint then Test.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Install installs objtool into GOBIN.
func Install() error {
	return sh.RunV("go", "install", "./cmd/objtool")
}

// Clean removes build output.
func Clean() error {
	fmt.Printf("Removing %s\n", binDir)
	return os.RemoveAll(binDir)
}
