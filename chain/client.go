package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrNoAccount = errors.New("no account address available")

// CallRequest addresses one contract function.
type CallRequest struct {
	Address common.Address
	ABI     abi.ABI
	Method  string
	Args    []any
	Value   *big.Int
}

// PreparedTx is the outcome of a successful simulation, ready to be signed and
// submitted. Nonce and gas price are assigned at submission.
type PreparedTx struct {
	From  common.Address
	To    *common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
}

// DeployRequest carries a contract creation payload.
type DeployRequest struct {
	ABI      abi.ABI
	Bytecode []byte
	Args     []any
}

// Client is the chain capability shared by every tool handler. It is bound to
// one network and at most one signing account.
type Client interface {
	Network() Network
	Account() (common.Address, bool)
	ReadContract(ctx context.Context, req CallRequest) ([]any, error)
	SimulateContract(ctx context.Context, req CallRequest) (*PreparedTx, error)
	WriteContract(ctx context.Context, tx *PreparedTx) (common.Hash, error)
	DeployContract(ctx context.Context, req DeployRequest) (common.Hash, error)
	GasPrice(ctx context.Context) (*big.Int, error)
}

// BalanceReader is the minimal client used for one-off balance lookups.
type BalanceReader interface {
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
	Close()
}

// Dialer opens transient clients bound to an arbitrary network.
type Dialer interface {
	Dial(ctx context.Context, network Network) (BalanceReader, error)
}
