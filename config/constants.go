package config

import "time"

const (
	// DefaultContractsDirectory describes the directory Solidity sources are read from.
	DefaultContractsDirectory = "contracts"

	// DefaultOutputDirectory describes the directory compiled artifacts are written to.
	DefaultOutputDirectory = "compile"

	// DefaultOptimizerRuns describes the optimizer runs setting used when none is provided.
	DefaultOptimizerRuns = 200

	// DefaultEnvFile describes the dotenv file read for deployment secrets when none is provided.
	DefaultEnvFile = ".env"

	// DefaultExplorerAPIURL describes the verification endpoint of the Sepolia block explorer.
	DefaultExplorerAPIURL = "https://api-sepolia.etherscan.io/api"

	// DefaultExplorerURL describes the web front-end of the Sepolia block explorer.
	DefaultExplorerURL = "https://sepolia.etherscan.io"

	// DefaultGasLimit describes the fixed gas limit of the contract creation transaction.
	DefaultGasLimit uint64 = 2_000_000

	// DefaultGasPriceGwei describes the fixed gas price of the contract creation transaction, in gwei.
	DefaultGasPriceGwei = "20"

	// DefaultConfirmationTimeout bounds the wait for the contract creation receipt.
	DefaultConfirmationTimeout = 5 * time.Minute

	// DefaultPollInterval describes how often the node is asked for the contract creation receipt.
	DefaultPollInterval = 2 * time.Second

	// DefaultCompilerVersion describes the compiler version submitted for verification when an artifact does not
	// record one.
	DefaultCompilerVersion = "v0.8.24+commit.e11b9ed9"

	// DefaultOptimizationUsed describes the optimizer flag submitted for verification when an artifact does not
	// record one.
	DefaultOptimizationUsed = true
)

// Configuration keys, shared by environment variables, the dotenv file and command-line flags.
const (
	KeyMnemonic            = "mnemonic"
	KeyNodeURL             = "node_url"
	KeyExplorerAPIKey      = "explorer_api_key"
	KeyExplorerAPIURL      = "explorer_api_url"
	KeyExplorerURL         = "explorer_url"
	KeyAccountIndex        = "account_index"
	KeyDerivationPath      = "derivation_path"
	KeyGasLimit            = "gas_limit"
	KeyGasPriceGwei        = "gas_price_gwei"
	KeyConfirmationTimeout = "confirmation_timeout"
	KeyCompilerVersion     = "compiler_version"
	KeyOptimizationUsed    = "optimization_used"
	KeyRuns                = "runs"
	KeyContractsDirectory  = "contracts_dir"
	KeySourcePath          = "source"
	KeySkipVerify          = "skip_verify"
)

// secretEnvNames maps each required secret to the environment variable names it may be provided under, in order of
// preference.
var secretEnvNames = map[string][]string{
	KeyMnemonic:       {"MNEMONIC"},
	KeyNodeURL:        {"NODE_URL", "INFURA_URL"},
	KeyExplorerAPIKey: {"EXPLORER_API_KEY", "ETHERSCAN_API_KEY"},
}
