package deployment

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// ChainClient describes the subset of a chain node's JSON-RPC API used to deploy a contract. It is satisfied by
// *ethclient.Client.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// Dialer connects to the chain node at the given URL.
type Dialer func(ctx context.Context, nodeURL string) (ChainClient, error)

// DialEthClient is the default Dialer, connecting through go-ethereum's ethclient.
func DialEthClient(ctx context.Context, nodeURL string) (ChainClient, error) {
	client, err := ethclient.DialContext(ctx, nodeURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Provider binds a chain client to the accounts derived from a mnemonic and signs transactions for them. A Provider
// holds an open connection to the node and must be stopped once it is no longer needed.
type Provider struct {
	// client describes the connection to the chain node.
	client ChainClient

	// mnemonic and derivationPath describe the wallet accounts are derived from.
	mnemonic       string
	derivationPath string

	// chainID describes the chain the node serves, used for replay-protected signing.
	chainID *big.Int

	// signer describes the transaction signer for chainID.
	signer types.Signer

	// stopOnce ensures the connection is only closed once.
	stopOnce sync.Once
}

// NewProvider connects to the node at nodeURL using dial and resolves its chain id. On error, no connection is left
// open.
func NewProvider(ctx context.Context, dial Dialer, nodeURL string, mnemonic string, derivationPath string) (*Provider, error) {
	if dial == nil {
		dial = DialEthClient
	}
	client, err := dial(ctx, nodeURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the chain node")
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to get chain id")
	}

	return &Provider{
		client:         client,
		mnemonic:       mnemonic,
		derivationPath: derivationPath,
		chainID:        chainID,
		signer:         types.LatestSignerForChainID(chainID),
	}, nil
}

// ChainID returns the chain id reported by the node.
func (p *Provider) ChainID() *big.Int {
	return new(big.Int).Set(p.chainID)
}

// Client returns the underlying chain client.
func (p *Provider) Client() ChainClient {
	return p.client
}

// Account derives the wallet account at the given index.
func (p *Provider) Account(index uint32) (*Account, error) {
	return DeriveAccount(p.mnemonic, p.derivationPath, index)
}

// SignTx signs the transaction with the account's key for the provider's chain.
func (p *Provider) SignTx(account *Account, tx *types.Transaction) (*types.Transaction, error) {
	return types.SignTx(tx, p.signer, account.privateKey)
}

// Stop closes the connection to the node. It is safe to call Stop more than once.
func (p *Provider) Stop() {
	p.stopOnce.Do(func() {
		p.client.Close()
	})
}
