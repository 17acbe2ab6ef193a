//go:build mage

// Package main provides build targets for the backoffice project using Mage.
//
// Usage:
//
//	mage build          Compile the backoffice binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests without the SQLite-backed packages
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write coverage.out and print the summary
//	mage lint           Run golangci-lint
//	mage vet            Run go vet
//	mage clean          Remove build artifacts
//	mage install        Install backoffice to GOPATH/bin
//	mage stats          Print Go LOC per package and documentation words
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "backoffice"
	binaryDir  = "bin"
	cmdDir     = "./cmd/backoffice"
)

// Build compiles the backoffice binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverFile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
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
