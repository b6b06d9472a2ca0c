package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/fxamacker/cbor"
)

// ContractMetadata is an CBOR-encoded structure describing contract information which is embedded within smart contract
// bytecode by the Solidity compiler (unless explicitly directed not to).
// Reference: https://docs.soliditylang.org/en/v0.8.16/metadata.html
type ContractMetadata map[string]any

// metadataHashPrefixes defines patterns to use in search for CBOR-encoded contract metadata appended to the end of
// bytecode.
var metadataHashPrefixes = [][]byte{
	{0xa1, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a1 65 "bzzr0" 0x58 0x20 (solc <= 0.5.8)
	{0xa2, 0x65, 98, 122, 122, 114, 48, 0x58, 0x20},  // a2 65 "bzzr0" 0x58 0x20 (solc >= 0.5.9)
	{0xa2, 0x65, 98, 122, 122, 114, 49, 0x58, 0x20},  // a2 65 "bzzr1" 0x58 0x20 (solc >= 0.5.11)
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73, 0x58, 0x22}, // a2 64 "ipfs" 0x58 0x22 (solc >= 0.6.0)
}

// byteCodeHashMetadataKeys defines the keys in the CBOR-encoded ContractMetadata which contain bytecode hashes.
var byteCodeHashMetadataKeys = [...]string{
	"bzzr0",
	"bzzr1",
	"ipfs",
}

// ExtractContractMetadata extracts contract metadata from provided byte code and returns it. If contract metadata
// could not be extracted, nil is returned.
func ExtractContractMetadata(bytecode []byte) *ContractMetadata {
	// Since solc 0.4.7 the last two bytes hold the big-endian length of the CBOR-encoded metadata preceding them.
	if len(bytecode) > 2 {
		metadataLength := int(binary.BigEndian.Uint16(bytecode[len(bytecode)-2:]))
		metadataOffset := len(bytecode) - 2 - metadataLength
		if metadataLength > 0 && metadataOffset >= 0 {
			var metadata ContractMetadata
			if err := cbor.Unmarshal(bytecode[metadataOffset:len(bytecode)-2], &metadata); err == nil && len(metadata) > 0 {
				return &metadata
			}
		}
	}

	// Otherwise, try matching each metadata hash prefix in the file.
	for _, metadataHashPrefix := range metadataHashPrefixes {
		metadataOffset := bytes.LastIndex(bytecode, metadataHashPrefix[:])

		// If we found a match, decode the embedded metadata and return it.
		if metadataOffset != -1 {
			var metadata ContractMetadata
			err := cbor.Unmarshal(bytecode[metadataOffset:], &metadata)
			if err != nil {
				continue
			}
			return &metadata
		}
	}
	return nil
}

// ExtractBytecodeHash extracts the bytecode hash from given contract metadata and returns the bytes representing the
// hash. If it could not be detected or extracted, nil is returned.
func (m ContractMetadata) ExtractBytecodeHash() []byte {
	// Try every known metadata key to see if we can resolve the bytecode hash
	for _, possibleMetadataKey := range byteCodeHashMetadataKeys {
		if bytecodeHashData, keyExists := m[possibleMetadataKey]; keyExists {
			// Try to cast it to a byte array and return it if we succeeded.
			if bytecodeHash, ok := bytecodeHashData.([]byte); ok {
				return bytecodeHash
			}
		}
	}
	return nil
}

// ExtractCompilerVersion extracts the compiler version recorded under the "solc" key. Release builds store it as three
// bytes (major, minor, patch) while pre-release builds store the full version string.
func (m ContractMetadata) ExtractCompilerVersion() (*semver.Version, error) {
	value, ok := m["solc"]
	if !ok {
		return nil, fmt.Errorf("contract metadata does not contain a compiler version")
	}

	switch v := value.(type) {
	case []byte:
		if len(v) != 3 {
			return nil, fmt.Errorf("unexpected compiler version length %d in contract metadata", len(v))
		}
		return semver.NewVersion(fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2]))
	case string:
		return ParseCompilerVersion(v)
	default:
		return nil, fmt.Errorf("unexpected compiler version type %T in contract metadata", value)
	}
}
