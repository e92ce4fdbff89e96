// Package raffle reads and writes the deployed Raffle contract.
package raffle

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"rafflefront/internal/wallet"
)

var (
	ErrReadFailed      = errors.New("read failed")
	ErrSubmitFailed    = errors.New("submit failed")
	ErrInclusionFailed = errors.New("inclusion failed")
)

// State mirrors the contract's RaffleState enum.
type State uint8

const (
	Open State = iota
	Calculating
)

// ParseState maps the raw enum: zero is Open, anything else Calculating.
func ParseState(raw uint8) State {
	if raw == 0 {
		return Open
	}
	return Calculating
}

func (s State) String() string {
	if s == Open {
		return "OPEN"
	}
	return "CALCULATING"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reader is the read-only surface. Each call is independent of the others.
type Reader interface {
	EntranceFee(ctx context.Context) (*big.Int, error)
	RaffleState(ctx context.Context) (State, error)
	LastTimestamp(ctx context.Context) (uint64, error)
	RecentWinner(ctx context.Context) (common.Address, error)
}

// Writer submits entries and observes their inclusion.
type Writer interface {
	Enter(ctx context.Context, signer wallet.Signer, value *big.Int) (*types.Transaction, error)
	WaitIncluded(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type Client interface {
	Reader
	Writer
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// TxError keeps the underlying reason as its message while matching one of
// ErrSubmitFailed or ErrInclusionFailed.
type TxError struct {
	Kind error
	Err  error
}

func (e *TxError) Error() string { return e.Err.Error() }

func (e *TxError) Unwrap() []error { return []error{e.Kind, e.Err} }

func submitError(err error) error    { return &TxError{Kind: ErrSubmitFailed, Err: err} }
func inclusionError(err error) error { return &TxError{Kind: ErrInclusionFailed, Err: err} }
