package compilation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crytic/solpipe/compilation/platforms"
	"github.com/crytic/solpipe/compilation/types"
	"github.com/crytic/solpipe/config"
	"github.com/crytic/solpipe/errtypes"
	"github.com/crytic/solpipe/logging"
	"github.com/crytic/solpipe/logging/colors"
	"github.com/crytic/solpipe/utils"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CompilePipeline compiles a single Solidity source file and writes one artifact per declared contract.
type CompilePipeline struct {
	// config describes the directories and optimizer settings used for every compilation.
	config *config.CompileConfig

	// compiler describes the external compiler the source is handed to.
	compiler platforms.Compiler

	// logger describes the logger used to report progress.
	logger *logging.Logger
}

// CompilationResult describes the outcome of a successful CompilePipeline.Compile call.
type CompilationResult struct {
	// Metadata describes the compiler settings recorded in every written artifact.
	Metadata types.CompilationMetadata

	// ContractNames lists the compiled contracts, sorted by name.
	ContractNames []string

	// ArtifactPaths maps each contract name to the artifact file written for it.
	ArtifactPaths map[string]string
}

// NewCompilePipeline creates a CompilePipeline. If logger is nil, a sub-logger of logging.GlobalLogger is used.
func NewCompilePipeline(cfg *config.CompileConfig, compiler platforms.Compiler, logger *logging.Logger) (*CompilePipeline, error) {
	if cfg == nil {
		return nil, errtypes.New(errtypes.ConfigError, "compile configuration must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errtypes.Wrap(errtypes.ConfigError, err, "invalid compile configuration")
	}
	if compiler == nil {
		compiler = platforms.NewSolcCompiler(cfg.SolcPath)
	}
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger(logging.MODULE_KEY, logging.COMPILATION_SERVICE)
	}
	return &CompilePipeline{
		config:   cfg,
		compiler: compiler,
		logger:   logger,
	}, nil
}

// Compile resets the output directory, compiles the named file (relative to the contracts directory) and writes a
// <ContractName>.json artifact for every contract declared in it. Fatal compiler diagnostics abort the compilation
// before any artifact is written.
func (p *CompilePipeline) Compile(ctx context.Context, fileName string) (*CompilationResult, error) {
	if fileName == "" {
		return nil, errtypes.New(errtypes.UsageError, "a Solidity file name must be provided")
	}

	// The configuration may have changed since construction, and the reset below is destructive
	if err := p.config.Validate(); err != nil {
		return nil, errtypes.Wrap(errtypes.ConfigError, err, "invalid compile configuration")
	}

	// The output directory never merges with a previous run
	if err := utils.ResetDirectory(p.config.OutputDirectory); err != nil {
		return nil, errtypes.Wrap(errtypes.ArtifactError, err, "could not reset output directory %s", p.config.OutputDirectory)
	}

	sourcePath := filepath.Join(p.config.ContractsDirectory, fileName)
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.ReadError, err, "could not read %s", sourcePath)
	}

	// Record the exact compiler release so that verification can reproduce the build
	version, err := p.compiler.Version(ctx)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.CompilationError, err, "could not determine the compiler version")
	}
	metadata := types.CompilationMetadata{
		Version:          types.NormalizeCompilerVersion(version),
		OptimizationUsed: p.config.Optimizer.Enabled,
		Runs:             p.config.Optimizer.Runs,
		Source:           filepath.ToSlash(fileName),
	}
	p.logger.Debug("Compiling ", sourcePath, " with solc ", metadata.Version, logging.StructuredLogInfo{"optimizer": p.config.Optimizer})

	input := types.NewCompilationInput(metadata.Source, string(source), p.config.Optimizer)
	output, err := p.compiler.Compile(ctx, input)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.CompilationError, err, "could not compile %s", fileName)
	}

	for _, warning := range output.Warnings() {
		p.logger.Warn(warning.String())
	}
	if fatal := output.FatalErrors(); len(fatal) > 0 {
		msg := fmt.Sprintf("compiler reported %d error(s) in %s", len(fatal), fileName)
		for _, d := range fatal {
			msg += "\n" + d.String()
		}
		return nil, errtypes.New(errtypes.CompilationError, "%s", msg)
	}

	contracts := output.Contracts[metadata.Source]
	if len(contracts) == 0 {
		p.logger.Warn("No contracts are declared in ", fileName)
	}

	// Write artifacts in name order so repeated runs log identically
	result := &CompilationResult{
		Metadata:      metadata,
		ContractNames: maps.Keys(contracts),
		ArtifactPaths: make(map[string]string, len(contracts)),
	}
	slices.Sort(result.ContractNames)
	for _, name := range result.ContractNames {
		artifactPath := filepath.Join(p.config.OutputDirectory, name+".json")
		artifactMetadata := metadata
		if err = types.NewArtifact(contracts[name], &artifactMetadata).WriteToFile(artifactPath); err != nil {
			return nil, errtypes.Wrap(errtypes.ArtifactError, err, "could not write artifact for %s", name)
		}
		result.ArtifactPaths[name] = artifactPath
		p.logger.Info("Compiled ", colors.Bold, name, colors.Reset, " to ", artifactPath)
	}
	return result, nil
}
