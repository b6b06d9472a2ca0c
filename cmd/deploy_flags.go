package cmd

import (
	"github.com/crytic/solpipe/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// deployFlagKeys maps each deploy flag to the configuration key it is bound to.
var deployFlagKeys = map[string]string{
	"explorer-api-url":     config.KeyExplorerAPIURL,
	"explorer-url":         config.KeyExplorerURL,
	"account-index":        config.KeyAccountIndex,
	"derivation-path":      config.KeyDerivationPath,
	"gas-limit":            config.KeyGasLimit,
	"gas-price-gwei":       config.KeyGasPriceGwei,
	"confirmation-timeout": config.KeyConfirmationTimeout,
	"source":               config.KeySourcePath,
	contractsDirFlag:       config.KeyContractsDirectory,
	"compiler-version":     config.KeyCompilerVersion,
	"optimization-used":    config.KeyOptimizationUsed,
	"runs":                 config.KeyRuns,
	"skip-verify":          config.KeySkipVerify,
}

// addDeployFlags adds the various flags for the deploy command
func addDeployFlags() {
	defaultConfig := config.GetDefaultDeploymentConfig()

	// Prevent alphabetical sorting of usage message
	deployCmd.Flags().SortFlags = false

	// Configuration sources
	deployCmd.Flags().String("env-file", config.DefaultEnvFile, "dotenv file holding MNEMONIC, NODE_URL and EXPLORER_API_KEY")
	deployCmd.Flags().Bool("strict", false, "exit with a non-zero code if the deployment fails")

	// Account
	deployCmd.Flags().Uint32("account-index", defaultConfig.Account.Index, "index of the derived account used to deploy")
	deployCmd.Flags().String("derivation-path", defaultConfig.Account.DerivationPath, "base derivation path the account index is appended to")

	// Transaction
	deployCmd.Flags().Uint64("gas-limit", defaultConfig.Transaction.GasLimit, "fixed gas limit of the contract creation transaction")
	deployCmd.Flags().String("gas-price-gwei", defaultConfig.Transaction.GasPriceGwei, "fixed gas price of the contract creation transaction, in gwei")
	deployCmd.Flags().Duration("confirmation-timeout", defaultConfig.Transaction.ConfirmationTimeout, "how long to wait for the transaction to be mined")

	// Verification
	deployCmd.Flags().Bool("skip-verify", false, "do not submit the source for verification")
	deployCmd.Flags().String("source", "", "Solidity source submitted for verification (defaults to the source recorded in the artifact)")
	deployCmd.Flags().String(contractsDirFlag, defaultConfig.Verification.ContractsDirectory, "directory the source recorded in the artifact is resolved against")
	deployCmd.Flags().String("compiler-version", defaultConfig.Verification.DefaultMetadata.Version, "compiler version used when the artifact does not record one")
	deployCmd.Flags().Bool("optimization-used", defaultConfig.Verification.DefaultMetadata.OptimizationUsed, "optimizer flag used when the artifact does not record one")
	deployCmd.Flags().Int("runs", defaultConfig.Verification.DefaultMetadata.Runs, "optimizer runs used when the artifact does not record them")
	deployCmd.Flags().String("explorer-api-url", defaultConfig.ExplorerAPIURL, "block explorer verification endpoint")
	deployCmd.Flags().String("explorer-url", defaultConfig.ExplorerURL, "block explorer web front-end used for address links")
}

// bindDeployFlags binds the deploy flags into the given viper instance, so that explicitly set flags take precedence
// over environment variables and the dotenv file.
func bindDeployFlags(cmd *cobra.Command, v *viper.Viper) error {
	for flagName, key := range deployFlagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flagName)); err != nil {
			return errors.Wrapf(err, "could not bind --%s", flagName)
		}
	}
	return nil
}
