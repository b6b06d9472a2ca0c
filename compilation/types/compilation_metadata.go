package types

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
)

// CompilationMetadata describes the compiler settings that produced an artifact. It is recorded by the compile
// pipeline and consumed by explorer verification, which needs the exact same compiler version and optimizer settings.
type CompilationMetadata struct {
	// Version is the full compiler version string in explorer form, e.g. "v0.8.24+commit.e11b9ed9".
	Version string `json:"version"`

	// OptimizationUsed indicates whether the optimizer was enabled.
	OptimizationUsed bool `json:"optimizationUsed"`

	// Runs is the optimizer runs setting.
	Runs int `json:"runs"`

	// Source is the source unit name the contract was compiled from, relative to the contracts directory.
	Source string `json:"source,omitempty"`
}

// NormalizeCompilerVersion returns the explorer form of a compiler version, which always carries a leading "v".
func NormalizeCompilerVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

// SemanticVersion parses the major.minor.patch part of the compiler version, ignoring any build metadata.
func (m *CompilationMetadata) SemanticVersion() (*semver.Version, error) {
	return ParseCompilerVersion(m.Version)
}

// Validate checks that the metadata can be submitted for verification.
func (m *CompilationMetadata) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("compiler version is empty")
	}
	if _, err := m.SemanticVersion(); err != nil {
		return fmt.Errorf("invalid compiler version %q: %v", m.Version, err)
	}
	if m.Runs < 0 {
		return fmt.Errorf("optimizer runs must not be negative, got %d", m.Runs)
	}
	return nil
}

// ParseCompilerVersion parses a compiler version string such as "v0.8.24+commit.e11b9ed9" or "0.8.24" into a
// semver.Version without build metadata.
func ParseCompilerVersion(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if i := strings.IndexAny(version, "+-"); i >= 0 {
		version = version[:i]
	}
	return semver.NewVersion(version)
}

// SameCompilerRelease indicates whether two versions refer to the same major.minor.patch release.
func SameCompilerRelease(a *semver.Version, b *semver.Version) bool {
	return a.Major() == b.Major() && a.Minor() == b.Minor() && a.Patch() == b.Patch()
}
