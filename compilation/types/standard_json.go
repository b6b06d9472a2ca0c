package types

import (
	"encoding/json"
	"strings"
)

// DefaultOutputSelection describes the only compiler outputs requested for every contract: the ABI and the creation
// bytecode object. No metadata, AST, gas estimates or runtime bytecode are requested.
var DefaultOutputSelection = map[string]map[string][]string{
	"*": {
		"*": {"abi", "evm.bytecode.object"},
	},
}

// CompilationInput describes a Solidity compiler standard-JSON input descriptor.
// Reference: https://docs.soliditylang.org/en/latest/using-the-compiler.html#input-description
type CompilationInput struct {
	// Language describes the source language, always "Solidity".
	Language string `json:"language"`

	// Sources maps a source unit name to its inline content.
	Sources map[string]SourceInput `json:"sources"`

	// Settings describes the optimizer and output selection.
	Settings CompilationSettings `json:"settings"`
}

// SourceInput describes a single inline source unit.
type SourceInput struct {
	Content string `json:"content"`
}

// CompilationSettings describes the compiler settings of a CompilationInput.
type CompilationSettings struct {
	Optimizer       OptimizerSettings              `json:"optimizer"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// OptimizerSettings describes whether the optimizer is enabled and how many runs it is tuned for.
type OptimizerSettings struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// NewCompilationInput returns a single-file CompilationInput for the given source unit name and content.
func NewCompilationInput(fileName string, source string, optimizer OptimizerSettings) *CompilationInput {
	return &CompilationInput{
		Language: "Solidity",
		Sources: map[string]SourceInput{
			fileName: {Content: source},
		},
		Settings: CompilationSettings{
			Optimizer:       optimizer,
			OutputSelection: DefaultOutputSelection,
		},
	}
}

// CompilationOutput describes the subset of a Solidity compiler standard-JSON output used by solpipe.
// Reference: https://docs.soliditylang.org/en/latest/using-the-compiler.html#output-description
type CompilationOutput struct {
	// Errors describes all compiler diagnostics, including warnings and informational messages.
	Errors []Diagnostic `json:"errors,omitempty"`

	// Contracts maps a source unit name to the contracts declared within it, keyed by contract name.
	Contracts map[string]map[string]CompiledContract `json:"contracts,omitempty"`
}

// Diagnostic describes a single compiler error, warning or informational message.
type Diagnostic struct {
	Severity         string `json:"severity"`
	Type             string `json:"type"`
	Component        string `json:"component"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage,omitempty"`
}

// String returns the formatted message of the diagnostic when available, otherwise its type and message.
func (d Diagnostic) String() string {
	if d.FormattedMessage != "" {
		return strings.TrimSpace(d.FormattedMessage)
	}
	return d.Type + ": " + d.Message
}

// IsFatal indicates whether the diagnostic aborts the compilation.
func (d Diagnostic) IsFatal() bool {
	return d.Severity == "error"
}

// CompiledContract describes a single contract of a CompilationOutput.
type CompiledContract struct {
	// Abi describes the contract's application binary interface as raw JSON, preserving the compiler's ordering.
	Abi json.RawMessage `json:"abi"`

	// Evm describes the EVM-related outputs of the contract.
	Evm struct {
		Bytecode struct {
			// Object is the hex-encoded creation bytecode, without a 0x prefix.
			Object string `json:"object"`
		} `json:"bytecode"`
	} `json:"evm"`
}

// FatalErrors returns the diagnostics which abort the compilation.
func (o *CompilationOutput) FatalErrors() []Diagnostic {
	return o.filter(true)
}

// Warnings returns the diagnostics which do not abort the compilation.
func (o *CompilationOutput) Warnings() []Diagnostic {
	return o.filter(false)
}

func (o *CompilationOutput) filter(fatal bool) []Diagnostic {
	diagnostics := make([]Diagnostic, 0)
	for _, d := range o.Errors {
		if d.IsFatal() == fatal {
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics
}

// ParseCompilationOutput parses a standard-JSON compiler response.
func ParseCompilationOutput(b []byte) (*CompilationOutput, error) {
	var output CompilationOutput
	if err := json.Unmarshal(b, &output); err != nil {
		return nil, err
	}
	return &output, nil
}
