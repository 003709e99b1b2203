//go:build mage

// Package main provides build targets for the dbswap project using Mage.
//
// Usage:
//
//	mage build          Compile dbswap binary to bin/
//	mage buildMattn     Compile dbswap against mattn/go-sqlite3 (needs cgo)
//	mage test           Run all tests
//	mage testMattn      Run all tests against mattn/go-sqlite3
//	mage testProperty   Run only the gopter property tests, uncached
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install dbswap to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "dbswap"
	binaryDir  = "bin"
	cmdDir     = "./cmd/dbswap"
	mattnTag   = "mattn"
)

// Build compiles the dbswap binary to bin/.
func Build() error {
	return build()
}

// BuildMattn compiles the dbswap binary with the cgo SQLite driver.
func BuildMattn() error {
	return build("-tags", mattnTag)
}

func build(extra ...string) error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := append([]string{"build", "-v"}, extra...)
	args = append(args, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
	return sh.RunV(binGo, args...)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestMattn runs all tests with the cgo SQLite driver.
func TestMattn() error {
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, binGo, "test", "-tags", mattnTag, "./...")
}

// TestProperty runs only the gopter property tests.
func TestProperty() error {
	return sh.RunV(binGo, "test", "-count=1", "-v", "-run", "TestProperty", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
