package deployment

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// weiPerGwei is the number of wei in one gwei.
	weiPerGwei = decimal.New(1, 9)

	// etherExponent is the decimal exponent converting wei to ether.
	etherExponent int32 = -18
)

// GweiToWei converts a decimal gwei amount, such as "20" or "1.5", to wei. Amounts which are negative or do not map to
// a whole number of wei are rejected.
func GweiToWei(gwei string) (*big.Int, error) {
	amount, err := decimal.NewFromString(gwei)
	if err != nil {
		return nil, fmt.Errorf("invalid gas price %q: %v", gwei, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("gas price must not be negative, got %s gwei", gwei)
	}

	wei := amount.Mul(weiPerGwei)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("gas price %s gwei is not a whole number of wei", gwei)
	}
	return wei.BigInt(), nil
}

// MaxTransactionCost returns the most a transaction with the given gas limit and gas price can cost, in wei. An error
// is returned if the cost does not fit in 256 bits.
func MaxTransactionCost(gasLimit uint64, gasPrice *big.Int) (*uint256.Int, error) {
	price, overflow := uint256.FromBig(gasPrice)
	if overflow || gasPrice.Sign() < 0 {
		return nil, fmt.Errorf("gas price %v is out of range", gasPrice)
	}
	cost, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(gasLimit))
	if overflow {
		return nil, fmt.Errorf("transaction cost of %d gas at %v wei overflows", gasLimit, gasPrice)
	}
	return cost, nil
}

// FormatEther formats a wei amount in ether, without trailing zeros.
func FormatEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, etherExponent).String()
}
