package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crytic/solpipe/compilation/platforms"
	"github.com/crytic/solpipe/compilation/types"
)

// CompileConfig describes the configuration options used by the compile pipeline.
type CompileConfig struct {
	// ContractsDirectory describes the directory source file names are resolved against.
	ContractsDirectory string `json:"contractsDirectory"`

	// OutputDirectory describes the directory artifacts are written to. It is deleted and recreated on every run.
	OutputDirectory string `json:"outputDirectory"`

	// SolcPath describes the solc binary used to compile.
	SolcPath string `json:"solcPath"`

	// Optimizer describes the optimizer settings passed to the compiler and recorded in artifacts.
	Optimizer types.OptimizerSettings `json:"optimizer"`
}

// GetDefaultCompileConfig obtains the default compile configuration: contracts are read from "contracts" and artifacts
// written to "compile", with the optimizer disabled.
func GetDefaultCompileConfig() *CompileConfig {
	return &CompileConfig{
		ContractsDirectory: DefaultContractsDirectory,
		OutputDirectory:    DefaultOutputDirectory,
		SolcPath:           platforms.DefaultSolcPath,
		Optimizer: types.OptimizerSettings{
			Enabled: false,
			Runs:    DefaultOptimizerRuns,
		},
	}
}

// Validate ensures the compile configuration is usable.
func (c *CompileConfig) Validate() error {
	if c.ContractsDirectory == "" {
		return fmt.Errorf("contracts directory must not be empty")
	}
	if c.OutputDirectory == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if c.Optimizer.Runs < 0 {
		return fmt.Errorf("optimizer runs must not be negative, got %d", c.Optimizer.Runs)
	}

	// The output directory is wiped on every run, so it must never hold the sources
	contractsDir, err := filepath.Abs(c.ContractsDirectory)
	if err != nil {
		return fmt.Errorf("could not resolve contracts directory %s: %v", c.ContractsDirectory, err)
	}
	outputDir, err := filepath.Abs(c.OutputDirectory)
	if err != nil {
		return fmt.Errorf("could not resolve output directory %s: %v", c.OutputDirectory, err)
	}
	if isWithinDirectory(contractsDir, outputDir) {
		return fmt.Errorf("output directory %s must not be or contain the contracts directory %s", c.OutputDirectory, c.ContractsDirectory)
	}
	return nil
}

// isWithinDirectory reports whether path equals dir or is nested below it. Both paths must be absolute.
func isWithinDirectory(path string, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
