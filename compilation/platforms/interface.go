package platforms

import (
	"context"

	"github.com/crytic/solpipe/compilation/types"
)

// Compiler describes the interface of an external Solidity compiler which accepts standard-JSON input.
type Compiler interface {
	// Compile runs the compiler synchronously on the given input and returns its parsed output. Compiler
	// diagnostics are part of the output; an error is only returned if the compiler could not run or produced an
	// unparseable response.
	Compile(ctx context.Context, input *types.CompilationInput) (*types.CompilationOutput, error)

	// Version returns the full compiler version in explorer form, e.g. "v0.8.24+commit.e11b9ed9".
	Version(ctx context.Context) (string, error)
}
