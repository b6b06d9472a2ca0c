package deployment

import (
	"context"
	"math/big"
	"time"

	"github.com/crytic/solpipe/utils"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// CreationTransaction describes a signed contract creation transaction which was submitted to the node.
type CreationTransaction struct {
	// Transaction is the signed transaction.
	Transaction *types.Transaction

	// From is the deployer address.
	From common.Address

	// ExpectedAddress is the address the contract will be created at, derived from the deployer and nonce.
	ExpectedAddress common.Address
}

// SubmitCreation signs a legacy contract creation transaction carrying the provided bytecode with a fixed gas limit and
// gas price, and submits it to the node. There is no fee estimation and no retry.
func (p *Provider) SubmitCreation(ctx context.Context, account *Account, bytecode []byte, gasLimit uint64, gasPrice *big.Int) (*CreationTransaction, error) {
	nonce, err := p.client.PendingNonceAt(ctx, account.Address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get nonce")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       nil,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     bytecode,
	})
	signedTx, err := p.SignTx(account, tx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign contract creation transaction")
	}

	if err = p.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, errors.Wrap(err, "failed to send transaction")
	}

	return &CreationTransaction{
		Transaction:     signedTx,
		From:            account.Address,
		ExpectedAddress: crypto.CreateAddress(account.Address, nonce),
	}, nil
}

// WaitForReceipt polls the node for the receipt of the given transaction every pollInterval until it is mined or the
// context is done.
func (p *Provider) WaitForReceipt(ctx context.Context, txHash common.Hash, pollInterval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if utils.CheckContextDone(ctx) {
			return nil, errors.Wrapf(ctx.Err(), "stopped waiting for transaction %s", txHash.Hex())
		}

		receipt, err := p.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, errors.Wrap(err, "failed to get transaction receipt")
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// ConfirmedAddress checks that the receipt reports success and returns the created contract address.
func ConfirmedAddress(receipt *types.Receipt, creation *CreationTransaction) (common.Address, error) {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, errors.Errorf("transaction %s reverted in block %v after using %d gas", receipt.TxHash.Hex(), receipt.BlockNumber, receipt.GasUsed)
	}
	if receipt.ContractAddress != (common.Address{}) {
		return receipt.ContractAddress, nil
	}
	return creation.ExpectedAddress, nil
}
