package errtypes

import (
	"io/fs"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// TestErrorMessages ensures the contextual prefix is joined with the wrapped cause.
func TestErrorMessages(t *testing.T) {
	err := New(UsageError, "missing argument %q", "file")
	assert.EqualValues(t, `missing argument "file"`, err.Error())

	wrapped := Wrap(ReadError, fs.ErrNotExist, "failed to read contract file")
	assert.EqualValues(t, "failed to read contract file: file does not exist", wrapped.Error())
	assert.ErrorIs(t, wrapped, fs.ErrNotExist)

	bare := Wrap(ArtifactError, fs.ErrPermission, "")
	assert.EqualValues(t, fs.ErrPermission.Error(), bare.Error())
}

// TestKindLookup ensures kinds are found through pkg/errors wrapping and nested categorized errors.
func TestKindLookup(t *testing.T) {
	inner := New(CompilationError, "solc reported 1 error(s)")
	outer := errors.WithMessage(inner, "compile Storage.sol")
	assert.EqualValues(t, CompilationError, KindOf(outer))
	assert.True(t, IsKind(outer, CompilationError))
	assert.False(t, IsKind(outer, ReadError))

	nested := Wrap(DeploymentFailed, New(ConfigError, "no chain id"), "deployment failed")
	assert.EqualValues(t, DeploymentFailed, KindOf(nested))
	assert.True(t, IsKind(nested, ConfigError))

	assert.EqualValues(t, Kind(""), KindOf(fs.ErrNotExist))
	assert.False(t, IsKind(nil, UsageError))
}

// TestWrapRecordsStack ensures wrapped causes carry a stack trace exactly once, while messages and error identity are
// unchanged.
func TestWrapRecordsStack(t *testing.T) {
	wrapped := Wrap(ReadError, fs.ErrNotExist, "read")
	assert.NotEmpty(t, wrapped.StackTrace())
	assert.ErrorIs(t, wrapped, fs.ErrNotExist)
	assert.EqualValues(t, "read: file does not exist", wrapped.Error())

	// A cause which already has a stack is kept as is
	cause := errors.New("boom")
	assert.Same(t, cause, Wrap(CompilationError, cause, "compile").Err)

	// Categorized causes are not annotated again
	inner := New(ConfigError, "bad")
	assert.Same(t, inner, Wrap(DeploymentFailed, inner, "deploy").Err)
	assert.Nil(t, New(UsageError, "missing").StackTrace())
}
