package deployment

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// Account describes a signing identity derived from a mnemonic.
type Account struct {
	// Address is the account's chain address.
	Address common.Address

	// Path is the full derivation path the key was derived at.
	Path accounts.DerivationPath

	// privateKey is the account's signing key.
	privateKey *ecdsa.PrivateKey
}

// DeriveAccount derives the account at basePath/index from a BIP-39 mnemonic with an empty passphrase. With the default
// base path m/44'/60'/0'/0 and index 0 this is the first account any standard Ethereum wallet shows for the phrase.
func DeriveAccount(mnemonic string, basePath string, index uint32) (*Account, error) {
	path, err := accounts.ParseDerivationPath(basePath)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid derivation path %q", basePath)
	}
	path = append(path, index)

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}
	for _, component := range path {
		key, err = key.Derive(component)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive %s", path.String())
		}
	}

	ecPrivKey, err := key.ECPrivKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get EC private key")
	}
	privateKey := ecPrivKey.ToECDSA()

	return &Account{
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		Path:       path,
		privateKey: privateKey,
	}, nil
}
