package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/crytic/solpipe/utils"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact describes the JSON file produced for each compiled contract and consumed by deployment:
// {"abi": [...], "bytecode": "0x...", "compiler": {...}}. The compiler field is optional.
type Artifact struct {
	// Abi describes the contract's application binary interface, as emitted by the compiler.
	Abi json.RawMessage `json:"abi"`

	// Bytecode is the 0x-prefixed, hex-encoded creation bytecode.
	Bytecode string `json:"bytecode"`

	// Compiler describes the compiler settings which produced the artifact, if known.
	Compiler *CompilationMetadata `json:"compiler,omitempty"`
}

// NewArtifact creates an Artifact from a compiled contract. The bytecode is normalized to lowercase hex with a 0x
// prefix.
func NewArtifact(contract CompiledContract, metadata *CompilationMetadata) *Artifact {
	abiJson := contract.Abi
	if len(bytes.TrimSpace(abiJson)) == 0 {
		abiJson = json.RawMessage("[]")
	}
	return &Artifact{
		Abi:      abiJson,
		Bytecode: "0x" + strings.ToLower(strings.TrimPrefix(contract.Evm.Bytecode.Object, "0x")),
		Compiler: metadata,
	}
}

// Validate checks that the artifact holds a non-empty, parseable ABI and non-empty, hex-encoded bytecode.
func (a *Artifact) Validate() error {
	trimmedAbi := bytes.TrimSpace(a.Abi)
	if len(trimmedAbi) == 0 || bytes.Equal(trimmedAbi, []byte("null")) {
		return fmt.Errorf("artifact is missing the abi field")
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(trimmedAbi, &entries); err != nil {
		return fmt.Errorf("artifact abi is not a JSON array: %v", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("artifact abi is empty")
	}
	if _, err := a.ParseABI(); err != nil {
		return fmt.Errorf("artifact abi is invalid: %v", err)
	}

	if strings.TrimPrefix(a.Bytecode, "0x") == "" {
		return fmt.Errorf("artifact is missing the bytecode field")
	}
	if _, err := a.BytecodeBytes(); err != nil {
		return fmt.Errorf("artifact bytecode is not valid hex: %v", err)
	}
	return nil
}

// ParseABI parses the artifact ABI into a go-ethereum abi.ABI.
func (a *Artifact) ParseABI() (*abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(a.Abi))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// BytecodeBytes decodes the artifact bytecode. A missing 0x prefix is tolerated, so artifacts produced by other tools
// remain loadable.
func (a *Artifact) BytecodeBytes() ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(a.Bytecode, "0x"))
}

// EmbeddedMetadata returns the CBOR metadata embedded in the bytecode, or nil if there is none.
func (a *Artifact) EmbeddedMetadata() *ContractMetadata {
	bytecode, err := a.BytecodeBytes()
	if err != nil {
		return nil
	}
	return ExtractContractMetadata(bytecode)
}

// Marshal encodes the artifact as indented JSON.
func (a *Artifact) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteToFile writes the artifact to the given path, replacing any existing file.
func (a *Artifact) WriteToFile(path string) error {
	b, err := a.Marshal()
	if err != nil {
		return err
	}
	return utils.WriteFile(path, b)
}

// LoadArtifactFromFile reads and parses the artifact at the given path. The result is not validated.
func LoadArtifactFromFile(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var artifact Artifact
	if err = json.Unmarshal(b, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}
