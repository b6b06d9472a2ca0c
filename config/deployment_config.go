package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/crytic/solpipe/compilation/types"
	"github.com/crytic/solpipe/errtypes"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/tyler-smith/go-bip39"
)

// DeploymentConfig describes the configuration used by the deploy pipeline. It is constructed once, explicitly, and
// passed into the pipeline rather than read from process state.
type DeploymentConfig struct {
	// Mnemonic is the BIP-39 seed phrase the deployer key is derived from.
	Mnemonic string `json:"-"`

	// NodeURL is the JSON-RPC endpoint of the chain node.
	NodeURL string `json:"-"`

	// ExplorerAPIKey is the block explorer API key used for verification.
	ExplorerAPIKey string `json:"-"`

	// ExplorerAPIURL is the block explorer verification endpoint.
	ExplorerAPIURL string `json:"explorerApiUrl"`

	// ExplorerURL is the block explorer web front-end used for address links.
	ExplorerURL string `json:"explorerUrl"`

	// Account describes which derived account deploys the contract.
	Account AccountConfig `json:"account"`

	// Transaction describes the fixed parameters of the contract creation transaction.
	Transaction TransactionConfig `json:"transaction"`

	// Verification describes the explorer verification step.
	Verification VerificationConfig `json:"verification"`
}

// AccountConfig describes the deployer account selection.
type AccountConfig struct {
	// Index is the address index appended to the derivation path. Defaults to 0, the first derived account.
	Index uint32 `json:"index"`

	// DerivationPath is the base derivation path the index is appended to. Defaults to m/44'/60'/0'/0.
	DerivationPath string `json:"derivationPath"`
}

// TransactionConfig describes the fixed gas parameters of the contract creation transaction. There is no fee
// estimation and no retry.
type TransactionConfig struct {
	// GasLimit is the gas limit of the transaction.
	GasLimit uint64 `json:"gasLimit"`

	// GasPriceGwei is the gas price of the transaction, in gwei, as a decimal string.
	GasPriceGwei string `json:"gasPriceGwei"`

	// ConfirmationTimeout bounds the wait for the transaction receipt.
	ConfirmationTimeout time.Duration `json:"confirmationTimeout"`

	// PollInterval describes how often the receipt is requested while waiting.
	PollInterval time.Duration `json:"pollInterval"`
}

// VerificationConfig describes the explorer verification step and the compiler metadata used when an artifact does
// not record its own.
type VerificationConfig struct {
	// Enabled indicates whether verification is submitted after a confirmed deployment.
	Enabled bool `json:"enabled"`

	// SourcePath overrides the Solidity source submitted for verification.
	SourcePath string `json:"sourcePath"`

	// ContractsDirectory resolves the source unit name recorded in an artifact.
	ContractsDirectory string `json:"contractsDirectory"`

	// DefaultMetadata is used when the artifact carries no compiler metadata.
	DefaultMetadata types.CompilationMetadata `json:"defaultMetadata"`
}

// GetDefaultDeploymentConfig obtains a deployment configuration with every non-secret option set to its default. The
// secrets are left empty.
func GetDefaultDeploymentConfig() *DeploymentConfig {
	return &DeploymentConfig{
		ExplorerAPIURL: DefaultExplorerAPIURL,
		ExplorerURL:    DefaultExplorerURL,
		Account: AccountConfig{
			Index:          0,
			DerivationPath: accounts.DefaultRootDerivationPath.String(),
		},
		Transaction: TransactionConfig{
			GasLimit:            DefaultGasLimit,
			GasPriceGwei:        DefaultGasPriceGwei,
			ConfirmationTimeout: DefaultConfirmationTimeout,
			PollInterval:        DefaultPollInterval,
		},
		Verification: VerificationConfig{
			Enabled:            true,
			ContractsDirectory: DefaultContractsDirectory,
			DefaultMetadata: types.CompilationMetadata{
				Version:          DefaultCompilerVersion,
				OptimizationUsed: DefaultOptimizationUsed,
				Runs:             DefaultOptimizerRuns,
			},
		},
	}
}

// NewViper creates a viper instance which resolves configuration keys from (in order of precedence) bound flags,
// environment variables and the given dotenv file. A missing dotenv file is only an error when required is true.
func NewViper(envFile string, required bool) (*viper.Viper, error) {
	v := viper.New()

	// Bind every secret to all the environment variable names it may be provided under
	for key, names := range secretEnvNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	for _, key := range []string{KeyExplorerAPIURL, KeyExplorerURL} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if envFile == "" {
		return v, nil
	}

	// Read the dotenv file, if there is one
	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) && !required {
			return v, nil
		}
		return nil, errtypes.Wrap(errtypes.ConfigError, err, "could not read env file %s", envFile)
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, errtypes.Wrap(errtypes.ConfigError, err, "could not parse env file %s", envFile)
	}
	return v, nil
}

// LoadDeploymentConfig builds a DeploymentConfig from the provided viper instance on top of the defaults. The result
// is not validated.
func LoadDeploymentConfig(v *viper.Viper) *DeploymentConfig {
	cfg := GetDefaultDeploymentConfig()

	cfg.Mnemonic = strings.Join(strings.Fields(lookupSecret(v, KeyMnemonic)), " ")
	cfg.NodeURL = strings.TrimSpace(lookupSecret(v, KeyNodeURL))
	cfg.ExplorerAPIKey = strings.TrimSpace(lookupSecret(v, KeyExplorerAPIKey))

	if s := v.GetString(KeyExplorerAPIURL); s != "" {
		cfg.ExplorerAPIURL = s
	}
	if s := v.GetString(KeyExplorerURL); s != "" {
		cfg.ExplorerURL = s
	}
	if v.IsSet(KeyAccountIndex) {
		cfg.Account.Index = v.GetUint32(KeyAccountIndex)
	}
	if s := v.GetString(KeyDerivationPath); s != "" {
		cfg.Account.DerivationPath = s
	}
	if v.IsSet(KeyGasLimit) {
		cfg.Transaction.GasLimit = v.GetUint64(KeyGasLimit)
	}
	if s := v.GetString(KeyGasPriceGwei); s != "" {
		cfg.Transaction.GasPriceGwei = s
	}
	if v.IsSet(KeyConfirmationTimeout) {
		cfg.Transaction.ConfirmationTimeout = v.GetDuration(KeyConfirmationTimeout)
	}
	if v.IsSet(KeySkipVerify) {
		cfg.Verification.Enabled = !v.GetBool(KeySkipVerify)
	}
	if s := v.GetString(KeySourcePath); s != "" {
		cfg.Verification.SourcePath = s
	}
	if s := v.GetString(KeyContractsDirectory); s != "" {
		cfg.Verification.ContractsDirectory = s
	}
	if s := v.GetString(KeyCompilerVersion); s != "" {
		cfg.Verification.DefaultMetadata.Version = types.NormalizeCompilerVersion(s)
	}
	if v.IsSet(KeyOptimizationUsed) {
		cfg.Verification.DefaultMetadata.OptimizationUsed = v.GetBool(KeyOptimizationUsed)
	}
	if v.IsSet(KeyRuns) {
		cfg.Verification.DefaultMetadata.Runs = v.GetInt(KeyRuns)
	}
	return cfg
}

// lookupSecret resolves a secret from flags or environment variables first, then from the dotenv file, where keys are
// stored under their lowercased variable names.
func lookupSecret(v *viper.Viper, key string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	for _, name := range secretEnvNames[key] {
		if s := v.GetString(strings.ToLower(name)); s != "" {
			return s
		}
	}
	return ""
}

// Validate ensures that every required secret is present and that the remaining options are usable. It never performs
// network operations. Any failure is a ConfigError.
func (c *DeploymentConfig) Validate() error {
	// Collect all missing secrets so the user can fix them in one go
	var missing []string
	if c.Mnemonic == "" {
		missing = append(missing, secretEnvNames[KeyMnemonic][0])
	}
	if c.NodeURL == "" {
		missing = append(missing, strings.Join(secretEnvNames[KeyNodeURL], "/"))
	}
	if c.ExplorerAPIKey == "" {
		missing = append(missing, strings.Join(secretEnvNames[KeyExplorerAPIKey], "/"))
	}
	if len(missing) > 0 {
		return errtypes.New(errtypes.ConfigError, "missing required configuration: %s must be set in the environment or env file", strings.Join(missing, ", "))
	}

	if !bip39.IsMnemonicValid(c.Mnemonic) {
		return errtypes.New(errtypes.ConfigError, "the configured mnemonic is not a valid BIP-39 phrase")
	}
	if _, err := accounts.ParseDerivationPath(c.Account.DerivationPath); err != nil {
		return errtypes.Wrap(errtypes.ConfigError, err, "invalid derivation path %q", c.Account.DerivationPath)
	}
	if c.Transaction.GasLimit == 0 {
		return errtypes.New(errtypes.ConfigError, "gas limit must be greater than zero")
	}
	if c.Transaction.ConfirmationTimeout <= 0 {
		return errtypes.New(errtypes.ConfigError, "confirmation timeout must be positive, got %v", c.Transaction.ConfirmationTimeout)
	}
	if c.Transaction.PollInterval <= 0 {
		return errtypes.New(errtypes.ConfigError, "poll interval must be positive, got %v", c.Transaction.PollInterval)
	}
	if c.Verification.Enabled {
		if c.ExplorerAPIURL == "" {
			return errtypes.New(errtypes.ConfigError, "explorer api url must not be empty")
		}
		if err := c.Verification.DefaultMetadata.Validate(); err != nil {
			return errtypes.Wrap(errtypes.ConfigError, err, "invalid verification defaults")
		}
	}
	return nil
}

// ExplorerAddressURL returns the block explorer link for the given address.
func (c *DeploymentConfig) ExplorerAddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", strings.TrimSuffix(c.ExplorerURL, "/"), address)
}
