package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver"
	"github.com/crytic/solpipe/compilation/types"
	"github.com/crytic/solpipe/utils"
	"github.com/pkg/errors"
)

// DefaultSolcPath describes the solc binary looked up on PATH when no explicit path is configured.
const DefaultSolcPath = "solc"

// solcVersionRegex matches the release and commit of `solc --version` output, e.g. "0.8.24+commit.e11b9ed9".
var solcVersionRegex = regexp.MustCompile(`(\d+\.\d+\.\d+)(\+commit\.[0-9a-f]+)?`)

// SolcCompiler describes a Compiler backed by a native solc binary invoked in --standard-json mode.
type SolcCompiler struct {
	// Path is the solc binary to execute.
	Path string
}

// NewSolcCompiler returns a SolcCompiler for the given binary path, falling back to DefaultSolcPath.
func NewSolcCompiler(path string) *SolcCompiler {
	if path == "" {
		path = DefaultSolcPath
	}
	return &SolcCompiler{
		Path: path,
	}
}

// Version returns the full compiler version reported by `solc --version`, in explorer form.
func (s *SolcCompiler) Version(ctx context.Context) (string, error) {
	full, _, err := GetSolcVersion(ctx, s.Path)
	if err != nil {
		return "", err
	}
	return full, nil
}

// Compile pipes the standard-JSON input to `solc --standard-json` and parses its response.
func (s *SolcCompiler) Compile(ctx context.Context, input *types.CompilationInput) (*types.CompilationOutput, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// solc reports compilation errors inside the JSON response and only exits non-zero if it could not run at all.
	cmd := exec.CommandContext(ctx, s.Path, "--standard-json")
	cmdStdout, _, cmdCombined, err := utils.RunCommandWithInput(cmd, b)
	if err != nil {
		return nil, fmt.Errorf("error while executing solc:\n%s\n\nCommand Output:\n%s", err.Error(), string(cmdCombined))
	}

	output, err := types.ParseCompilationOutput(cmdStdout)
	if err != nil {
		return nil, fmt.Errorf("could not parse solc standard-json output: %v", err)
	}
	return output, nil
}

// GetSolcVersion runs `solc --version` and returns the full version string in explorer form along with the parsed
// release version.
func GetSolcVersion(ctx context.Context, solcPath string) (string, *semver.Version, error) {
	out, err := exec.CommandContext(ctx, solcPath, "--version").CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("error while executing solc:\nOUTPUT:\n%s\nERROR: %s", string(out), err.Error())
	}
	return ParseSolcVersionOutput(string(out))
}

// ParseSolcVersionOutput extracts the version from `solc --version` output.
func ParseSolcVersionOutput(out string) (string, *semver.Version, error) {
	match := solcVersionRegex.FindStringSubmatch(out)
	if match == nil {
		return "", nil, errors.New("could not parse solc version using 'solc --version'")
	}

	version, err := semver.NewVersion(match[1])
	if err != nil {
		return "", nil, err
	}
	return types.NormalizeCompilerVersion(match[0]), version, nil
}
