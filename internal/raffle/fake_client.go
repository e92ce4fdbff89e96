package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"rafflefront/internal/contracts"
	"rafflefront/internal/wallet"
)

// DemoFee is the fake raffle's entrance fee: a tenth of one whole unit of a
// currency with the given decimals, never less than one base unit.
func DemoFee(decimals int32) *big.Int {
	if decimals <= 0 {
		return big.NewInt(1)
	}
	whole := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return whole.Quo(whole, big.NewInt(10))
}

// FakeClient is an in-memory raffle for tests and for running the UI without a node.
type FakeClient struct {
	ChainID *big.Int
	Address common.Address

	mu        sync.Mutex
	fee       *big.Int
	state     State
	lastDraw  uint64
	winner    common.Address
	readErrs  map[string]error
	enterErr  error
	includErr error
	hold      chan struct{}
	nonce     uint64
	entrants  []common.Address
}

func NewFakeClient(fee *big.Int, lastDraw time.Time) *FakeClient {
	return &FakeClient{
		ChainID:  big.NewInt(31337),
		Address:  common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		fee:      new(big.Int).Set(fee),
		lastDraw: uint64(lastDraw.Unix()),
		readErrs: make(map[string]error),
	}
}

func (f *FakeClient) SetState(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *FakeClient) SetFee(fee *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fee = new(big.Int).Set(fee)
}

func (f *FakeClient) SetWinner(addr common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winner = addr
}

// FailRead makes the named contract method fail until cleared with a nil error.
func (f *FakeClient) FailRead(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.readErrs, method)
		return
	}
	f.readErrs[method] = err
}

func (f *FakeClient) FailEnter(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enterErr = err
}

func (f *FakeClient) FailInclusion(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.includErr = err
}

// HoldInclusion keeps WaitIncluded blocked until the returned func is called.
func (f *FakeClient) HoldInclusion() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *FakeClient) Entrants() []common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address(nil), f.entrants...)
}

func (f *FakeClient) EntranceFee(_ context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(contracts.MethodGetEntranceFee); err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.fee), nil
}

func (f *FakeClient) RaffleState(_ context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(contracts.MethodGetRaffleState); err != nil {
		return Calculating, err
	}
	return f.state, nil
}

func (f *FakeClient) LastTimestamp(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(contracts.MethodGetLastTimeStamp); err != nil {
		return 0, err
	}
	return f.lastDraw, nil
}

func (f *FakeClient) RecentWinner(_ context.Context) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr(contracts.MethodGetRecentWinner); err != nil {
		return common.Address{}, err
	}
	return f.winner, nil
}

func (f *FakeClient) Enter(ctx context.Context, signer wallet.Signer, value *big.Int) (*types.Transaction, error) {
	if signer == nil {
		return nil, submitError(errors.New("no wallet connected"))
	}

	f.mu.Lock()
	if f.enterErr != nil {
		err := f.enterErr
		f.mu.Unlock()
		return nil, submitError(err)
	}
	if f.state != Open {
		f.mu.Unlock()
		return nil, submitError(errors.New("execution reverted: Raffle__RaffleNotOpen"))
	}
	if value.Cmp(f.fee) < 0 {
		f.mu.Unlock()
		return nil, submitError(errors.New("execution reverted: Raffle__SendMoreToEnterRaffle"))
	}
	nonce := f.nonce
	f.nonce++
	to := f.Address
	f.mu.Unlock()

	parsed, err := contracts.ParsedRaffleABI()
	if err != nil {
		return nil, submitError(err)
	}
	data, err := parsed.Pack(contracts.MethodEnterRaffle)
	if err != nil {
		return nil, submitError(err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    new(big.Int).Set(value),
		Gas:      100_000,
		GasPrice: big.NewInt(1_000_000_000),
		Data:     data,
	})
	signed, err := signer.SignTx(ctx, tx, f.ChainID)
	if err != nil {
		return nil, submitError(err)
	}

	f.mu.Lock()
	f.entrants = append(f.entrants, signer.Address())
	f.mu.Unlock()
	return signed, nil
}

func (f *FakeClient) WaitIncluded(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, inclusionError(ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.includErr != nil {
		return nil, inclusionError(f.includErr)
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(tx.Nonce() + 1),
		Logs:        []*types.Log{},
	}, nil
}

func (f *FakeClient) Ping(context.Context) error { return nil }

func (f *FakeClient) readErr(method string) error {
	if err, ok := f.readErrs[method]; ok {
		return fmt.Errorf("%s: %w: %w", method, ErrReadFailed, err)
	}
	return nil
}
