//go:build mage

// Package main contains Mage build targets for pubchem-fetch developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir     = "bin"
	binName    = "pubchem-fetch"
	cmdPkg     = "./cmd/pubchem-fetch"
	exampleDir = "../Example"
)

// Init creates the data directory the CLI writes to by default.
func Init() error {
	if err := os.MkdirAll(exampleDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", exampleDir, err)
	}
	fmt.Println("  ", exampleDir)
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestIntegration runs the integration tests. They start Redis in a
// container and need a working Docker daemon.
func TestIntegration() error {
	return sh.RunV("go", "test", "-tags", "integration", "-run", "Integration", "./...")
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// Pipeline groups targets that run the CLI against the live PubChem API.
type Pipeline mg.Namespace

// Generate writes 100 random CIDs to ../Example/random_cids.csv.
func (Pipeline) Generate() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "generate", "-n", "100")
}

// Properties fetches properties for the generated CIDs.
func (Pipeline) Properties() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "properties",
		"--input", filepath.Join(exampleDir, "random_cids.csv"), "--log-pretty")
}

// Assays fetches bioassay statistics of aid for the generated CIDs.
func (Pipeline) Assays(aid string) error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "assays", "--aid", aid,
		"--input", filepath.Join(exampleDir, "random_cids.csv"), "--log-pretty")
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}

// countDocWords counts words in the top-level Markdown files.
func countDocWords(root string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.md"))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
	}
	return total, nil
}
