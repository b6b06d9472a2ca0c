package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/crytic/solpipe/compilation/types"
	"github.com/crytic/solpipe/config"
	"github.com/crytic/solpipe/errtypes"
	"github.com/crytic/solpipe/logging"
	"github.com/crytic/solpipe/utils/testutils"
	"github.com/crytic/solpipe/verification"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testDeployer = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

	storageAbi = `[{"inputs":[],"name":"retrieve","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`
	storageSol = "// SPDX-License-Identifier: MIT\npragma solidity ^0.8.0;\ncontract Storage { uint256 x; }\n"
)

// fakeChain is a ChainClient which accepts every transaction and mines it once a configurable number of receipt
// requests have been made.
type fakeChain struct {
	mu sync.Mutex

	chainID       *big.Int
	nonce         uint64
	chainIDErr    error
	sendErr       error
	receiptStatus uint64
	pendingPolls  int
	neverMined    bool

	sent   []*coretypes.Transaction
	closed int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		chainID:       big.NewInt(11155111),
		nonce:         7,
		receiptStatus: coretypes.ReceiptStatusSuccessful,
		pendingPolls:  1,
	}
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, f.chainIDErr
}

func (f *fakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *coretypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.neverMined || f.pendingPolls > 0 {
		f.pendingPolls--
		return nil, ethereum.NotFound
	}
	return &coretypes.Receipt{
		Status:      f.receiptStatus,
		TxHash:      txHash,
		BlockNumber: big.NewInt(42),
		GasUsed:     123456,
	}, nil
}

func (f *fakeChain) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

// dialer returns a Dialer which hands out the fake chain and counts connection attempts.
func (f *fakeChain) dialer(dials *int) Dialer {
	return func(ctx context.Context, nodeURL string) (ChainClient, error) {
		*dials++
		return f, nil
	}
}

// fakeVerifier records verification requests and answers with a fixed outcome.
type fakeVerifier struct {
	requests []*verification.Request
	outcome  *verification.Outcome
	err      error
}

func (v *fakeVerifier) Verify(ctx context.Context, request *verification.Request) (*verification.Outcome, error) {
	v.requests = append(v.requests, request)
	return v.outcome, v.err
}

func testConfig(contractsDir string) *config.DeploymentConfig {
	cfg := config.GetDefaultDeploymentConfig()
	cfg.Mnemonic = testMnemonic
	cfg.NodeURL = "https://node.example"
	cfg.ExplorerAPIKey = "KEY"
	cfg.Transaction.PollInterval = time.Millisecond
	cfg.Verification.ContractsDirectory = contractsDir
	return cfg
}

// writeProject writes a contracts directory holding Storage.sol and a compile directory holding the given artifact.
func writeProject(t *testing.T, artifact map[string]any) (string, string) {
	b, err := json.Marshal(artifact)
	require.NoError(t, err)
	dir := testutils.WriteTestFiles(t, map[string]string{
		filepath.Join("contracts", "Storage.sol"): storageSol,
		filepath.Join("compile", "Storage.json"):  string(b),
	})
	return filepath.Join(dir, "contracts"), filepath.Join(dir, "compile", "Storage.json")
}

func validArtifact() map[string]any {
	return map[string]any{
		"abi":      json.RawMessage(storageAbi),
		"bytecode": "0x6080604052",
		"compiler": map[string]any{
			"version":          "v0.8.20+commit.a1b79de6",
			"optimizationUsed": false,
			"runs":             500,
			"source":           "Storage.sol",
		},
	}
}

func quietLogger() *logging.Logger {
	return logging.NewLogger(zerolog.Disabled, false)
}

// TestRunDeploysAndVerifies deploys an artifact end to end and checks the transaction and the verification request.
func TestRunDeploysAndVerifies(t *testing.T) {
	contractsDir, artifactPath := writeProject(t, validArtifact())
	chain := newFakeChain()
	verifier := &fakeVerifier{outcome: &verification.Outcome{Status: "1", Message: "OK", Result: "guid"}}
	dials := 0

	pipeline := NewPipeline(testConfig(contractsDir), chain.dialer(&dials), verifier, quietLogger())
	var states []State
	pipeline.Events.StateChanged.Subscribe(func(event StateChangedEvent) error {
		states = append(states, event.Current)
		return nil
	})
	var verified []VerificationFinishedEvent
	pipeline.Events.VerificationFinished.Subscribe(func(event VerificationFinishedEvent) error {
		verified = append(verified, event)
		return nil
	})
	result, err := pipeline.Run(context.Background(), artifactPath)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, pipeline.State())
	assert.EqualValues(t, []State{ProviderReady, AccountResolved, TxSubmitted, Confirmed}, states)
	require.Len(t, verified, 1)
	assert.EqualValues(t, "Storage", verified[0].ContractName)
	assert.True(t, verified[0].Outcome.Success())

	// The contract address follows from the deployer and its nonce
	deployer := common.HexToAddress(testDeployer)
	assert.Equal(t, deployer, result.Deployer)
	assert.Equal(t, crypto.CreateAddress(deployer, chain.nonce), result.ContractAddress)
	assert.EqualValues(t, 42, result.BlockNumber.Int64())

	// A single signed legacy contract creation with the fixed gas parameters was sent
	require.Len(t, chain.sent, 1)
	tx := chain.sent[0]
	assert.Nil(t, tx.To())
	assert.EqualValues(t, coretypes.LegacyTxType, tx.Type())
	assert.EqualValues(t, config.DefaultGasLimit, tx.Gas())
	assert.EqualValues(t, "20000000000", tx.GasPrice().String())
	assert.EqualValues(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, tx.Data())
	sender, err := coretypes.Sender(coretypes.LatestSignerForChainID(chain.chainID), tx)
	require.NoError(t, err)
	assert.Equal(t, deployer, sender)

	// Verification used the metadata recorded by the compiler
	require.Len(t, verifier.requests, 1)
	request := verifier.requests[0]
	assert.EqualValues(t, result.ContractAddress.Hex(), request.Address)
	assert.EqualValues(t, "Storage", request.ContractName)
	assert.EqualValues(t, "v0.8.20+commit.a1b79de6", request.CompilerVersion)
	assert.False(t, request.OptimizationUsed)
	assert.EqualValues(t, 500, request.Runs)
	assert.EqualValues(t, filepath.Join(contractsDir, "Storage.sol"), request.SourcePath)
	assert.True(t, result.Verification.Success())

	assert.Equal(t, 1, dials)
	assert.Equal(t, 1, chain.closed)
}

// TestRunFailedTransactionSkipsVerification ensures a reverted deployment never reaches the verifier.
func TestRunFailedTransactionSkipsVerification(t *testing.T) {
	contractsDir, artifactPath := writeProject(t, validArtifact())
	chain := newFakeChain()
	chain.receiptStatus = coretypes.ReceiptStatusFailed
	verifier := &fakeVerifier{}
	dials := 0

	pipeline := NewPipeline(testConfig(contractsDir), chain.dialer(&dials), verifier, quietLogger())
	var last StateChangedEvent
	pipeline.Events.StateChanged.Subscribe(func(event StateChangedEvent) error {
		last = event
		return nil
	})
	_, err := pipeline.Run(context.Background(), artifactPath)
	assert.True(t, errtypes.IsKind(err, errtypes.DeploymentFailed), "expected DeploymentFailed, got %v", err)
	assert.Equal(t, Failed, pipeline.State())
	assert.Equal(t, StateChangedEvent{Previous: TxSubmitted, Current: Failed}, last)
	assert.Empty(t, verifier.requests)
	assert.Equal(t, 1, chain.closed)
}

// TestRunProviderFailures ensures failures at each network step are DeploymentFailed and always stop the provider.
func TestRunProviderFailures(t *testing.T) {
	contractsDir, artifactPath := writeProject(t, validArtifact())

	cases := map[string]func(f *fakeChain){
		"chain id":    func(f *fakeChain) { f.chainIDErr = errors.New("connection refused") },
		"send":        func(f *fakeChain) { f.sendErr = errors.New("insufficient funds for gas * price + value") },
		"never mined": func(f *fakeChain) { f.neverMined = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			chain := newFakeChain()
			mutate(chain)
			verifier := &fakeVerifier{}
			dials := 0

			cfg := testConfig(contractsDir)
			cfg.Transaction.ConfirmationTimeout = 50 * time.Millisecond
			pipeline := NewPipeline(cfg, chain.dialer(&dials), verifier, quietLogger())
			_, err := pipeline.Run(context.Background(), artifactPath)
			assert.True(t, errtypes.IsKind(err, errtypes.DeploymentFailed), "expected DeploymentFailed, got %v", err)
			assert.Equal(t, Failed, pipeline.State())
			assert.Empty(t, verifier.requests)
			assert.Equal(t, 1, chain.closed)
		})
	}

	// A failed dial leaves nothing to stop
	verifier := &fakeVerifier{}
	dial := func(ctx context.Context, nodeURL string) (ChainClient, error) {
		return nil, errors.New("no such host")
	}
	pipeline := NewPipeline(testConfig(contractsDir), dial, verifier, quietLogger())
	_, err := pipeline.Run(context.Background(), artifactPath)
	assert.True(t, errtypes.IsKind(err, errtypes.DeploymentFailed))
	assert.Empty(t, verifier.requests)
}

// TestRunMissingSecrets ensures absent secrets fail before the node is contacted.
func TestRunMissingSecrets(t *testing.T) {
	contractsDir, artifactPath := writeProject(t, validArtifact())
	chain := newFakeChain()
	dials := 0

	cfg := testConfig(contractsDir)
	cfg.Mnemonic, cfg.NodeURL, cfg.ExplorerAPIKey = "", "", ""
	pipeline := NewPipeline(cfg, chain.dialer(&dials), &fakeVerifier{}, quietLogger())
	_, err := pipeline.Run(context.Background(), artifactPath)
	assert.True(t, errtypes.IsKind(err, errtypes.ConfigError))
	assert.Equal(t, NotStarted, pipeline.State())
	assert.Zero(t, dials)
}

// TestRunInvalidArtifacts ensures malformed artifacts fail before any transaction is sent.
func TestRunInvalidArtifacts(t *testing.T) {
	cases := map[string]func(a map[string]any){
		"missing bytecode": func(a map[string]any) { delete(a, "bytecode") },
		"empty bytecode":   func(a map[string]any) { a["bytecode"] = "0x" },
		"missing abi":      func(a map[string]any) { delete(a, "abi") },
		"empty abi":        func(a map[string]any) { a["abi"] = json.RawMessage("[]") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			artifact := validArtifact()
			mutate(artifact)
			contractsDir, artifactPath := writeProject(t, artifact)
			chain := newFakeChain()
			dials := 0

			pipeline := NewPipeline(testConfig(contractsDir), chain.dialer(&dials), &fakeVerifier{}, quietLogger())
			_, err := pipeline.Run(context.Background(), artifactPath)
			assert.True(t, errtypes.IsKind(err, errtypes.ArtifactError), "expected ArtifactError, got %v", err)
			assert.Zero(t, dials)
			assert.Empty(t, chain.sent)
		})
	}
}

// TestRunMissingArtifact ensures a missing or empty artifact path is a usage error.
func TestRunMissingArtifact(t *testing.T) {
	dials := 0
	pipeline := NewPipeline(testConfig(t.TempDir()), newFakeChain().dialer(&dials), &fakeVerifier{}, quietLogger())

	_, err := pipeline.Run(context.Background(), "")
	assert.True(t, errtypes.IsKind(err, errtypes.UsageError))
	_, err = pipeline.Run(context.Background(), filepath.Join(t.TempDir(), "Missing.json"))
	assert.True(t, errtypes.IsKind(err, errtypes.UsageError))
	assert.Zero(t, dials)
}

// TestRunDefaultMetadata ensures artifacts without compiler metadata are verified with the configured defaults and
// the source next to the artifact.
func TestRunDefaultMetadata(t *testing.T) {
	artifact := validArtifact()
	delete(artifact, "compiler")
	contractsDir, artifactPath := writeProject(t, artifact)
	chain := newFakeChain()
	verifier := &fakeVerifier{outcome: &verification.Outcome{Status: "0", Result: "Fail - Unable to verify"}}
	dials := 0

	pipeline := NewPipeline(testConfig(contractsDir), chain.dialer(&dials), verifier, quietLogger())
	result, err := pipeline.Run(context.Background(), artifactPath)

	// A rejected verification does not fail the deployment
	require.NoError(t, err)
	assert.False(t, result.Verification.Success())

	require.Len(t, verifier.requests, 1)
	request := verifier.requests[0]
	assert.EqualValues(t, config.DefaultCompilerVersion, request.CompilerVersion)
	assert.True(t, request.OptimizationUsed)
	assert.EqualValues(t, config.DefaultOptimizerRuns, request.Runs)
	assert.EqualValues(t, filepath.Join(filepath.Dir(artifactPath), "Storage.sol"), request.SourcePath)
}

// TestRunVerificationErrorIsLogged ensures verifier errors do not fail a confirmed deployment.
func TestRunVerificationErrorIsLogged(t *testing.T) {
	contractsDir, artifactPath := writeProject(t, validArtifact())
	chain := newFakeChain()
	verifier := &fakeVerifier{err: errtypes.New(errtypes.VerificationError, "explorer unavailable")}
	dials := 0

	cfg := testConfig(contractsDir)
	cfg.Verification.SourcePath = "/override/Storage.sol"
	pipeline := NewPipeline(cfg, chain.dialer(&dials), verifier, quietLogger())
	result, err := pipeline.Run(context.Background(), artifactPath)
	require.NoError(t, err)
	assert.Nil(t, result.Verification)
	require.Len(t, verifier.requests, 1)
	assert.EqualValues(t, "/override/Storage.sol", verifier.requests[0].SourcePath)
	assert.Equal(t, 1, chain.closed)
}

// TestRunSkipVerify ensures verification can be disabled.
func TestRunSkipVerify(t *testing.T) {
	contractsDir, artifactPath := writeProject(t, validArtifact())
	chain := newFakeChain()
	verifier := &fakeVerifier{}
	dials := 0

	cfg := testConfig(contractsDir)
	cfg.Verification.Enabled = false
	pipeline := NewPipeline(cfg, chain.dialer(&dials), verifier, quietLogger())
	_, err := pipeline.Run(context.Background(), artifactPath)
	require.NoError(t, err)
	assert.Empty(t, verifier.requests)
	assert.Equal(t, Confirmed, pipeline.State())
}

// TestResolveMetadataFallback ensures invalid recorded metadata falls back to the defaults.
func TestResolveMetadataFallback(t *testing.T) {
	pipeline := NewPipeline(testConfig("contracts"), nil, nil, quietLogger())
	artifact := &types.Artifact{
		Abi:      json.RawMessage(storageAbi),
		Bytecode: "0x6080",
		Compiler: &types.CompilationMetadata{Version: "not-a-version"},
	}
	metadata := pipeline.resolveMetadata(artifact)
	assert.EqualValues(t, config.DefaultCompilerVersion, metadata.Version)
}

// TestTerminalStatesAreFinal ensures a run that confirmed or failed cannot be moved to another state, and that a new
// Run starts over.
func TestTerminalStatesAreFinal(t *testing.T) {
	contractsDir, artifactPath := writeProject(t, validArtifact())
	chain := newFakeChain()
	dials := 0
	verifier := &fakeVerifier{outcome: &verification.Outcome{Status: "1", Message: "OK", Result: "guid"}}
	pipeline := NewPipeline(testConfig(contractsDir), chain.dialer(&dials), verifier, quietLogger())

	var published []StateChangedEvent
	pipeline.Events.StateChanged.Subscribe(func(event StateChangedEvent) error {
		published = append(published, event)
		return nil
	})

	pipeline.transition(Failed)
	pipeline.transition(TxSubmitted)
	pipeline.transition(Confirmed)
	assert.Equal(t, Failed, pipeline.State())
	assert.EqualValues(t, []StateChangedEvent{{Previous: NotStarted, Current: Failed}}, published)

	_, err := pipeline.Run(context.Background(), artifactPath)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, pipeline.State())
}

// TestConfirmedAddress ensures reverted receipts are errors carrying a stack, and that the precomputed address is
// used when the receipt does not report one.
func TestConfirmedAddress(t *testing.T) {
	creation := &CreationTransaction{ExpectedAddress: common.HexToAddress("0x00000000000000000000000000000000000000aa")}

	reverted := &coretypes.Receipt{Status: coretypes.ReceiptStatusFailed, BlockNumber: big.NewInt(3), GasUsed: 21000}
	_, err := ConfirmedAddress(reverted, creation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted in block 3")
	_, hasStack := err.(interface{ StackTrace() pkgerrors.StackTrace })
	assert.True(t, hasStack)

	mined := &coretypes.Receipt{Status: coretypes.ReceiptStatusSuccessful}
	address, err := ConfirmedAddress(mined, creation)
	require.NoError(t, err)
	assert.Equal(t, creation.ExpectedAddress, address)

	mined.ContractAddress = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	address, err = ConfirmedAddress(mined, creation)
	require.NoError(t, err)
	assert.Equal(t, mined.ContractAddress, address)
}
