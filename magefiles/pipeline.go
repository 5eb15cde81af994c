package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Seed loads the Lapland source inventory into the database.
func Seed() error {
	mg.Deps(Build)
	return watchdog("seed")
}

// Discover scans all enabled sources for new documents.
func Discover() error {
	mg.Deps(Build)
	return watchdog("discover")
}

// Fetch downloads pending PDF attachments.
func Fetch() error {
	mg.Deps(Build)
	return watchdog("fetch")
}

// Extract converts downloaded PDFs to text, with OCR fallback.
func Extract() error {
	mg.Deps(Build)
	return watchdog("extract")
}

// Triage classifies extracted documents for governance signals.
func Triage() error {
	mg.Deps(Build)
	return watchdog("triage")
}

// Casebuild groups triage signals into cases.
func Casebuild() error {
	mg.Deps(Build)
	return watchdog("casebuild")
}

// Run executes the full pipeline end to end.
func Run() error {
	mg.Deps(Build)
	return watchdog("run")
}

// Serve starts the admin API server.
func Serve() error {
	mg.Deps(Build)
	return watchdog("serve")
}

// watchdog executes the built binary with the given arguments.
func watchdog(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
