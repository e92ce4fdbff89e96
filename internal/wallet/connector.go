// Package wallet owns the wallet session: which connectors exist, which one is
// connected, and the signer used for outgoing transactions.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrConnectorUnavailable = errors.New("connector unavailable")
	ErrUserRejected         = errors.New("user rejected the request")
	ErrUnknownConnector     = errors.New("unknown connector")
	ErrConnectInProgress    = errors.New("connection already in progress")
	ErrAlreadyConnected     = errors.New("wallet already connected")
	ErrConnectAborted       = errors.New("connection aborted by disconnect")
)

// Signer signs transactions on behalf of one account.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Connector is one way of reaching a wallet.
type Connector interface {
	ID() string
	Name() string
	Connect(ctx context.Context) (Signer, error)
}

// ConnectorInfo is the displayable part of a Connector.
type ConnectorInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
