package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"rafflefront/internal/contracts"
	"rafflefront/internal/metrics"
	"rafflefront/internal/wallet"
)

// EthClient talks to the Raffle contract over JSON-RPC.
type EthClient struct {
	client      *ethclient.Client
	contract    *bind.BoundContract
	address     common.Address
	chainID     *big.Int
	receiptPoll time.Duration
	metrics     *metrics.Registry
}

type EthClientConfig struct {
	RPCURL      string
	Contract    common.Address
	ReceiptPoll time.Duration
	Metrics     *metrics.Registry
}

func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewEthClientFromRPC(ctx, rpcClient, cfg)
}

// NewEthClientFromRPC wraps an existing RPC connection.
func NewEthClientFromRPC(ctx context.Context, rpcClient *rpc.Client, cfg EthClientConfig) (*EthClient, error) {
	if cfg.Contract == (common.Address{}) {
		return nil, fmt.Errorf("raffle address is required")
	}

	parsedABI, err := contracts.ParsedRaffleABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	cli := ethclient.NewClient(rpcClient)
	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	poll := cfg.ReceiptPoll
	if poll <= 0 {
		poll = 2 * time.Second
	}

	return &EthClient{
		client:      cli,
		contract:    bind.NewBoundContract(cfg.Contract, parsedABI, cli, cli, cli),
		address:     cfg.Contract,
		chainID:     chainID,
		receiptPoll: poll,
		metrics:     cfg.Metrics,
	}, nil
}

func (c *EthClient) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *EthClient) Close() { c.client.Close() }

func (c *EthClient) EntranceFee(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, contracts.MethodGetEntranceFee)
	if err != nil {
		return nil, err
	}
	fee, ok := out.(*big.Int)
	if !ok {
		return nil, unexpectedOutput(contracts.MethodGetEntranceFee, out)
	}
	return fee, nil
}

func (c *EthClient) RaffleState(ctx context.Context) (State, error) {
	out, err := c.call(ctx, contracts.MethodGetRaffleState)
	if err != nil {
		return Calculating, err
	}
	raw, ok := out.(uint8)
	if !ok {
		return Calculating, unexpectedOutput(contracts.MethodGetRaffleState, out)
	}
	return ParseState(raw), nil
}

func (c *EthClient) LastTimestamp(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, contracts.MethodGetLastTimeStamp)
	if err != nil {
		return 0, err
	}
	ts, ok := out.(*big.Int)
	if !ok || !ts.IsUint64() {
		return 0, unexpectedOutput(contracts.MethodGetLastTimeStamp, out)
	}
	return ts.Uint64(), nil
}

func (c *EthClient) RecentWinner(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, contracts.MethodGetRecentWinner)
	if err != nil {
		return common.Address{}, err
	}
	winner, ok := out.(common.Address)
	if !ok {
		return common.Address{}, unexpectedOutput(contracts.MethodGetRecentWinner, out)
	}
	return winner, nil
}

// Enter signs and broadcasts enterRaffle paying value. Gas is left to the node.
func (c *EthClient) Enter(ctx context.Context, signer wallet.Signer, value *big.Int) (*types.Transaction, error) {
	if signer == nil {
		return nil, submitError(errors.New("no wallet connected"))
	}
	from := signer.Address()
	opts := &bind.TransactOpts{
		From:    from,
		Context: ctx,
		Value:   new(big.Int).Set(value),
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != from {
				return nil, bind.ErrNotAuthorized
			}
			return signer.SignTx(ctx, tx, c.chainID)
		},
	}

	started := time.Now()
	tx, err := c.contract.Transact(opts, contracts.MethodEnterRaffle)
	c.metrics.ObserveCall(contracts.MethodEnterRaffle, err, started)
	if err != nil {
		return nil, submitError(err)
	}
	return tx, nil
}

// WaitIncluded polls until the transaction is mined or ctx ends. A reverted
// receipt is an inclusion failure.
func (c *EthClient) WaitIncluded(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, tx.Hash())
		if receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, inclusionError(fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
			}
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, inclusionError(err)
		}
		select {
		case <-ctx.Done():
			return nil, inclusionError(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *EthClient) Ping(ctx context.Context) error {
	_, err := c.client.BlockNumber(ctx)
	return err
}

func (c *EthClient) call(ctx context.Context, method string) (interface{}, error) {
	started := time.Now()
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method)
	c.metrics.ObserveCall(method, err, started)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", method, ErrReadFailed, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: %w: expected 1 output, got %d", method, ErrReadFailed, len(out))
	}
	return out[0], nil
}

func unexpectedOutput(method string, out interface{}) error {
	return fmt.Errorf("%s: %w: unexpected output %T", method, ErrReadFailed, out)
}
