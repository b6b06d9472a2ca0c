package deployment

import (
	"context"
	"math/big"
	"path/filepath"

	"github.com/crytic/solpipe/compilation/types"
	"github.com/crytic/solpipe/config"
	"github.com/crytic/solpipe/errtypes"
	"github.com/crytic/solpipe/logging"
	"github.com/crytic/solpipe/logging/colors"
	"github.com/crytic/solpipe/utils"
	"github.com/crytic/solpipe/verification"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Result describes a confirmed deployment. It is only logged, never persisted.
type Result struct {
	// ContractName is the label of the deployed contract.
	ContractName string

	// ContractAddress is the address the contract was created at.
	ContractAddress common.Address

	// TransactionHash is the hash of the contract creation transaction.
	TransactionHash common.Hash

	// Deployer is the account which sent the transaction.
	Deployer common.Address

	// BlockNumber is the block the transaction was mined in.
	BlockNumber *big.Int

	// GasUsed is the gas consumed by the transaction.
	GasUsed uint64

	// Verification is the explorer's response to the verification submission, if one was made and answered.
	Verification *verification.Outcome
}

// Pipeline deploys a compiled artifact and submits its source for verification.
type Pipeline struct {
	// config describes the secrets and settings of the deployment.
	config *config.DeploymentConfig

	// dial describes how the chain node is connected to.
	dial Dialer

	// verifier describes where the source is submitted for verification. If nil, an EtherscanClient is created from
	// the configuration.
	verifier verification.Verifier

	// logger describes the logger used to report progress.
	logger *logging.Logger

	// state describes the progress of the most recent Run.
	state State

	// Events describes the event system for the Pipeline.
	Events PipelineEvents
}

// NewPipeline creates a deployment Pipeline. Nil dial, verifier and logger values are replaced with DialEthClient, an
// EtherscanClient and a sub-logger of logging.GlobalLogger respectively.
func NewPipeline(cfg *config.DeploymentConfig, dial Dialer, verifier verification.Verifier, logger *logging.Logger) *Pipeline {
	if dial == nil {
		dial = DialEthClient
	}
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger(logging.MODULE_KEY, logging.DEPLOYMENT_SERVICE)
	}
	return &Pipeline{
		config:   cfg,
		dial:     dial,
		verifier: verifier,
		logger:   logger,
		state:    NotStarted,
	}
}

// State returns the state the most recent Run ended in.
func (p *Pipeline) State() State {
	return p.state
}

// transition moves the pipeline to the provided state and publishes a StateChangedEvent. A run which reached a
// terminal state stays there.
func (p *Pipeline) transition(state State) {
	previous := p.state
	if previous.IsTerminal() {
		p.logger.Error("Ignoring transition from terminal state ", previous.String(), " to ", state.String())
		return
	}
	p.state = state
	p.logger.Debug("Deployment is now ", state.String())
	if err := p.Events.StateChanged.Publish(StateChangedEvent{Previous: previous, Current: state}); err != nil {
		p.logger.Warn("State change handler failed: ", err.Error())
	}
}

// Run deploys the artifact at artifactPath. Argument, configuration and artifact errors are returned before any
// network operation. Once the node is contacted, any failure ends the deployment with a DeploymentFailed error and
// verification is skipped. Verification failures are logged and never returned.
func (p *Pipeline) Run(ctx context.Context, artifactPath string) (*Result, error) {
	p.state = NotStarted

	if artifactPath == "" {
		return nil, errtypes.New(errtypes.UsageError, "the path to a compiled contract JSON file must be provided")
	}
	if !utils.FileExists(artifactPath) {
		return nil, errtypes.New(errtypes.UsageError, "compiled contract file not found at %s", artifactPath)
	}

	if p.config == nil {
		return nil, errtypes.New(errtypes.ConfigError, "deployment configuration must not be nil")
	}
	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	gasPrice, err := GweiToWei(p.config.Transaction.GasPriceGwei)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.ConfigError, err, "invalid gas price")
	}
	maxCost, err := MaxTransactionCost(p.config.Transaction.GasLimit, gasPrice)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.ConfigError, err, "invalid gas settings")
	}

	artifact, err := types.LoadArtifactFromFile(artifactPath)
	if err != nil {
		return nil, errtypes.Wrap(errtypes.ArtifactError, err, "could not load compiled contract %s", artifactPath)
	}
	if err = artifact.Validate(); err != nil {
		return nil, errtypes.Wrap(errtypes.ArtifactError, err, "invalid compiled contract %s", artifactPath)
	}
	bytecode, err := artifact.BytecodeBytes()
	if err != nil {
		return nil, errtypes.Wrap(errtypes.ArtifactError, err, "invalid compiled contract %s", artifactPath)
	}
	contractName := utils.GetFileNameWithoutExtension(artifactPath)

	// From here on the network is involved, so the provider must be stopped on every path
	provider, err := NewProvider(ctx, p.dial, p.config.NodeURL, p.config.Mnemonic, p.config.Account.DerivationPath)
	if err != nil {
		return nil, p.fail(contractName, err)
	}
	defer provider.Stop()
	p.transition(ProviderReady)
	p.logger.Debug("Connected to chain ", provider.ChainID().String())

	result, err := p.deploy(ctx, provider, contractName, bytecode, gasPrice, maxCost)
	if err != nil {
		return nil, p.fail(contractName, err)
	}

	if !p.config.Verification.Enabled {
		p.logger.Info("Verification skipped")
		return result, nil
	}
	result.Verification = p.verify(ctx, artifactPath, artifact, result)
	return result, nil
}

// deploy resolves the deployer account, submits the contract creation and waits for it to be confirmed.
func (p *Pipeline) deploy(ctx context.Context, provider *Provider, contractName string, bytecode []byte, gasPrice *big.Int, maxCost *uint256.Int) (*Result, error) {
	account, err := provider.Account(p.config.Account.Index)
	if err != nil {
		return nil, err
	}
	p.transition(AccountResolved)
	p.logger.Info("Attempting to deploy ", colors.Bold, contractName, colors.Reset, " from account ", account.Address.Hex())

	// A low balance is only reported, the node has the final say
	balance, err := provider.Client().BalanceAt(ctx, account.Address, nil)
	if err != nil {
		p.logger.Debug("Could not get deployer balance: ", err.Error())
	} else if balance.Cmp(maxCost.ToBig()) < 0 {
		p.logger.Warn("Deployer balance of ", FormatEther(balance), " ETH is below the maximum transaction cost of ", FormatEther(maxCost.ToBig()), " ETH")
	}

	creation, err := provider.SubmitCreation(ctx, account, bytecode, p.config.Transaction.GasLimit, gasPrice)
	if err != nil {
		return nil, err
	}
	p.transition(TxSubmitted)
	p.logger.Info("Transaction submitted: ", creation.Transaction.Hash().Hex(), logging.StructuredLogInfo{
		"gasLimit":    p.config.Transaction.GasLimit,
		"gasPriceWei": gasPrice.String(),
		"nonce":       creation.Transaction.Nonce(),
	})

	waitCtx, cancel := context.WithTimeout(ctx, p.config.Transaction.ConfirmationTimeout)
	defer cancel()
	receipt, err := provider.WaitForReceipt(waitCtx, creation.Transaction.Hash(), p.config.Transaction.PollInterval)
	if err != nil {
		return nil, err
	}
	address, err := ConfirmedAddress(receipt, creation)
	if err != nil {
		return nil, err
	}
	p.transition(Confirmed)

	p.logger.Info("Contract deployed to: ", colors.GreenBold, address.Hex())
	p.logger.Info("View on the block explorer: ", p.config.ExplorerAddressURL(address.Hex()))

	return &Result{
		ContractName:    contractName,
		ContractAddress: address,
		TransactionHash: creation.Transaction.Hash(),
		Deployer:        account.Address,
		BlockNumber:     receipt.BlockNumber,
		GasUsed:         receipt.GasUsed,
	}, nil
}

// fail moves the pipeline to Failed, logs the error and wraps it as DeploymentFailed.
func (p *Pipeline) fail(contractName string, err error) error {
	p.transition(Failed)
	p.logger.Error("Deployment error: ", err)
	p.logger.Warn("Verification skipped: contract deployment failed")
	return errtypes.Wrap(errtypes.DeploymentFailed, err, "deployment of %s failed", contractName)
}

// verify submits the deployed contract for verification. Failures are logged and nil is returned.
func (p *Pipeline) verify(ctx context.Context, artifactPath string, artifact *types.Artifact, result *Result) *verification.Outcome {
	verifier := p.verifier
	if verifier == nil {
		verifier = verification.NewEtherscanClient(p.config.ExplorerAPIURL, p.config.ExplorerAPIKey, nil)
	}

	metadata := p.resolveMetadata(artifact)
	request := &verification.Request{
		Address:          result.ContractAddress.Hex(),
		SourcePath:       p.resolveSourcePath(artifactPath, metadata),
		ContractName:     result.ContractName,
		CompilerVersion:  metadata.Version,
		OptimizationUsed: metadata.OptimizationUsed,
		Runs:             metadata.Runs,
	}
	p.logger.Debug("Submitting verification", logging.StructuredLogInfo{
		"source":           request.SourcePath,
		"compilerVersion":  request.CompilerVersion,
		"optimizationUsed": request.OptimizationUsed,
		"runs":             request.Runs,
	})

	outcome, err := verifier.Verify(ctx, request)
	if err == nil && outcome == nil {
		err = errors.New("verifier returned no outcome")
	}
	if err != nil {
		p.logger.Error("Verification error: ", err)
		return nil
	}
	if err = p.Events.VerificationFinished.Publish(VerificationFinishedEvent{ContractName: result.ContractName, Outcome: *outcome}); err != nil {
		p.logger.Warn("Verification handler failed: ", err.Error())
	}
	if outcome.Success() {
		p.logger.Info("Contract submitted for verification successfully, check its status on the block explorer (guid ", outcome.Result, ")")
	} else {
		p.logger.Error("Verification failed: ", outcome.Result)
	}
	return outcome
}

// resolveMetadata returns the compiler metadata recorded in the artifact, falling back to the configured defaults. The
// compiler release embedded in the bytecode is cross-checked against the result.
func (p *Pipeline) resolveMetadata(artifact *types.Artifact) types.CompilationMetadata {
	metadata := p.config.Verification.DefaultMetadata
	if artifact.Compiler != nil {
		if err := artifact.Compiler.Validate(); err != nil {
			p.logger.Warn("Ignoring invalid compiler metadata in artifact: ", err.Error())
		} else {
			metadata = *artifact.Compiler
		}
	}

	embedded := artifact.EmbeddedMetadata()
	if embedded == nil {
		return metadata
	}
	if hash := embedded.ExtractBytecodeHash(); hash != nil {
		p.logger.Debug("Bytecode metadata hash ", hexutil.Encode(hash))
	}
	embeddedVersion, err := embedded.ExtractCompilerVersion()
	if err != nil {
		return metadata
	}
	version, err := metadata.SemanticVersion()
	if err == nil && !types.SameCompilerRelease(version, embeddedVersion) {
		p.logger.Warn("Bytecode was compiled with solc ", embeddedVersion.String(), " but verification will use ", metadata.Version)
	}
	return metadata
}

// resolveSourcePath returns the source submitted for verification: the configured override, the source unit recorded
// in the artifact, or the artifact path with a .sol extension.
func (p *Pipeline) resolveSourcePath(artifactPath string, metadata types.CompilationMetadata) string {
	if p.config.Verification.SourcePath != "" {
		return p.config.Verification.SourcePath
	}
	if metadata.Source != "" {
		return filepath.Join(p.config.Verification.ContractsDirectory, filepath.FromSlash(metadata.Source))
	}
	return utils.GetFilePathWithoutExtension(artifactPath) + ".sol"
}
