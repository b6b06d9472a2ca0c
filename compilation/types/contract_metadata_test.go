package types

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storageMetadataTail is the CBOR metadata solc 0.8.24 appends to bytecode: {"ipfs": <34 bytes>, "solc": 0.8.24}
// followed by its two byte length.
const storageMetadataTail = "a2646970667358221220" + "1b2f4c7c0dbb9a3d5e0f6a4c3b2a19087766554433221100ffeeddccbbaa9988" +
	"64736f6c6343000818" + "0033"

// TestExtractContractMetadata ensures the compiler version and bytecode hash are read from the embedded metadata.
func TestExtractContractMetadata(t *testing.T) {
	bytecode, err := hex.DecodeString("6080604052348015600e575f80fd5b50" + storageMetadataTail)
	require.NoError(t, err)

	metadata := ExtractContractMetadata(bytecode)
	require.NotNil(t, metadata)

	version, err := metadata.ExtractCompilerVersion()
	require.NoError(t, err)
	assert.EqualValues(t, "0.8.24", version.String())

	hash := metadata.ExtractBytecodeHash()
	assert.Len(t, hash, 34)
	assert.EqualValues(t, []byte{0x12, 0x20}, hash[:2])
}

// TestExtractContractMetadataMissing ensures bytecode without metadata yields nil instead of an error.
func TestExtractContractMetadataMissing(t *testing.T) {
	bytecode, err := hex.DecodeString("6080604052348015600e575f80fd5b50")
	require.NoError(t, err)
	assert.Nil(t, ExtractContractMetadata(bytecode))
	assert.Nil(t, ExtractContractMetadata(nil))
}

// TestExtractCompilerVersionErrors tests malformed "solc" entries.
func TestExtractCompilerVersionErrors(t *testing.T) {
	_, err := ContractMetadata{}.ExtractCompilerVersion()
	assert.Error(t, err)

	_, err = ContractMetadata{"solc": []byte{0, 8}}.ExtractCompilerVersion()
	assert.Error(t, err)

	_, err = ContractMetadata{"solc": 8}.ExtractCompilerVersion()
	assert.Error(t, err)

	version, err := ContractMetadata{"solc": "0.8.25-nightly.2024.1.1+commit.abcdef12"}.ExtractCompilerVersion()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(version.String(), "0.8.25"))
}
