package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crytic/solpipe/errtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// clearSecretEnv blanks every secret environment variable for the duration of the test.
func clearSecretEnv(t *testing.T) {
	for _, names := range secretEnvNames {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
	t.Setenv("EXPLORER_API_URL", "")
	t.Setenv("EXPLORER_URL", "")
}

func writeEnvFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadFromEnvFile ensures secrets, including their aliases, are read from a dotenv file.
func TestLoadFromEnvFile(t *testing.T) {
	clearSecretEnv(t)
	envFile := writeEnvFile(t, "MNEMONIC=\""+testMnemonic+"\"\nINFURA_URL=https://node.example\nETHERSCAN_API_KEY=KEY123\n")

	v, err := NewViper(envFile, true)
	require.NoError(t, err)
	cfg := LoadDeploymentConfig(v)

	assert.Equal(t, testMnemonic, cfg.Mnemonic)
	assert.Equal(t, "https://node.example", cfg.NodeURL)
	assert.Equal(t, "KEY123", cfg.ExplorerAPIKey)
	assert.NoError(t, cfg.Validate())
}

// TestEnvironmentOverridesEnvFile ensures process environment variables take precedence over the dotenv file.
func TestEnvironmentOverridesEnvFile(t *testing.T) {
	clearSecretEnv(t)
	envFile := writeEnvFile(t, "MNEMONIC=\""+testMnemonic+"\"\nNODE_URL=https://file.example\nEXPLORER_API_KEY=FILE\n")
	t.Setenv("NODE_URL", "https://env.example")

	v, err := NewViper(envFile, true)
	require.NoError(t, err)
	cfg := LoadDeploymentConfig(v)

	assert.Equal(t, "https://env.example", cfg.NodeURL)
	assert.Equal(t, "FILE", cfg.ExplorerAPIKey)
}

// TestMissingEnvFile ensures a missing default dotenv file is tolerated while an explicitly requested one is not.
func TestMissingEnvFile(t *testing.T) {
	clearSecretEnv(t)
	missing := filepath.Join(t.TempDir(), "does-not-exist.env")

	_, err := NewViper(missing, false)
	assert.NoError(t, err)

	_, err = NewViper(missing, true)
	assert.True(t, errtypes.IsKind(err, errtypes.ConfigError))
}

// TestValidateMissingSecrets ensures every missing secret is reported in a single ConfigError.
func TestValidateMissingSecrets(t *testing.T) {
	clearSecretEnv(t)
	v, err := NewViper("", false)
	require.NoError(t, err)

	err = LoadDeploymentConfig(v).Validate()
	require.Error(t, err)
	assert.True(t, errtypes.IsKind(err, errtypes.ConfigError))
	assert.Contains(t, err.Error(), "MNEMONIC")
	assert.Contains(t, err.Error(), "NODE_URL")
	assert.Contains(t, err.Error(), "EXPLORER_API_KEY")
}

// TestValidateRejectsInvalidValues ensures malformed values fail validation before any network activity.
func TestValidateRejectsInvalidValues(t *testing.T) {
	valid := func() *DeploymentConfig {
		cfg := GetDefaultDeploymentConfig()
		cfg.Mnemonic = testMnemonic
		cfg.NodeURL = "https://node.example"
		cfg.ExplorerAPIKey = "KEY"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *DeploymentConfig){
		"bad mnemonic":        func(c *DeploymentConfig) { c.Mnemonic = "not a real seed phrase" },
		"bad derivation path": func(c *DeploymentConfig) { c.Account.DerivationPath = "x/1/2" },
		"zero gas limit":      func(c *DeploymentConfig) { c.Transaction.GasLimit = 0 },
		"zero timeout":        func(c *DeploymentConfig) { c.Transaction.ConfirmationTimeout = 0 },
		"bad version":         func(c *DeploymentConfig) { c.Verification.DefaultMetadata.Version = "latest" },
		"negative runs":       func(c *DeploymentConfig) { c.Verification.DefaultMetadata.Runs = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			err := cfg.Validate()
			assert.True(t, errtypes.IsKind(err, errtypes.ConfigError), "expected ConfigError, got %v", err)
		})
	}

	// Verification defaults are irrelevant when verification is skipped
	cfg := valid()
	cfg.Verification.Enabled = false
	cfg.Verification.DefaultMetadata.Version = ""
	assert.NoError(t, cfg.Validate())
}

// TestLoadOverrides ensures non-secret options set on the viper instance override the defaults.
func TestLoadOverrides(t *testing.T) {
	clearSecretEnv(t)
	v, err := NewViper("", false)
	require.NoError(t, err)
	v.Set(KeyAccountIndex, 3)
	v.Set(KeyGasLimit, 3_000_000)
	v.Set(KeyGasPriceGwei, "1.5")
	v.Set(KeyConfirmationTimeout, "30s")
	v.Set(KeyCompilerVersion, "0.8.20+commit.a1b79de6")
	v.Set(KeyOptimizationUsed, false)
	v.Set(KeyRuns, 1000)
	v.Set(KeySkipVerify, true)

	cfg := LoadDeploymentConfig(v)
	assert.EqualValues(t, 3, cfg.Account.Index)
	assert.EqualValues(t, 3_000_000, cfg.Transaction.GasLimit)
	assert.Equal(t, "1.5", cfg.Transaction.GasPriceGwei)
	assert.Equal(t, 30*time.Second, cfg.Transaction.ConfirmationTimeout)
	assert.Equal(t, "v0.8.20+commit.a1b79de6", cfg.Verification.DefaultMetadata.Version)
	assert.False(t, cfg.Verification.DefaultMetadata.OptimizationUsed)
	assert.Equal(t, 1000, cfg.Verification.DefaultMetadata.Runs)
	assert.False(t, cfg.Verification.Enabled)
}

// TestCompileConfigValidate ensures the default compile configuration is valid and empty directories are rejected.
func TestCompileConfigValidate(t *testing.T) {
	cfg := GetDefaultCompileConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "contracts", cfg.ContractsDirectory)
	assert.Equal(t, "compile", cfg.OutputDirectory)

	cfg.OutputDirectory = ""
	assert.Error(t, cfg.Validate())
}

// TestCompileConfigRejectsOverlappingDirectories ensures the output directory, which is wiped on every run, can never
// be or contain the contracts directory.
func TestCompileConfigRejectsOverlappingDirectories(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]struct {
		contractsDir string
		outputDir    string
		valid        bool
	}{
		"same directory":       {filepath.Join(dir, "contracts"), filepath.Join(dir, "contracts"), false},
		"same after cleaning":  {filepath.Join(dir, "contracts"), filepath.Join(dir, "contracts", ".") + "/", false},
		"contracts inside out": {filepath.Join(dir, "out", "contracts"), filepath.Join(dir, "out"), false},
		"out is the project":   {filepath.Join(dir, "contracts"), dir, false},
		"siblings":             {filepath.Join(dir, "contracts"), filepath.Join(dir, "compile"), true},
		"similar prefix":       {filepath.Join(dir, "compiled"), filepath.Join(dir, "compile"), true},
		"out inside contracts": {filepath.Join(dir, "contracts"), filepath.Join(dir, "contracts", "compile"), true},
		"relative same":        {"contracts", "./contracts", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := GetDefaultCompileConfig()
			cfg.ContractsDirectory = tc.contractsDir
			cfg.OutputDirectory = tc.outputDir
			if tc.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

// TestExplorerAddressURL ensures address links are joined without duplicate slashes.
func TestExplorerAddressURL(t *testing.T) {
	cfg := GetDefaultDeploymentConfig()
	cfg.ExplorerURL = "https://sepolia.etherscan.io/"
	assert.Equal(t, "https://sepolia.etherscan.io/address/0xabc", cfg.ExplorerAddressURL("0xabc"))
}
