package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ClefConnector talks to an external clef signer, where a human approves or
// declines every request.
type ClefConnector struct {
	Endpoint string
}

func (ClefConnector) ID() string   { return "clef" }
func (ClefConnector) Name() string { return "Clef external signer" }

func (c ClefConnector) Connect(ctx context.Context) (Signer, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("%w: no clef endpoint configured", ErrConnectorUnavailable)
	}
	client, err := rpc.DialContext(ctx, c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectorUnavailable, err)
	}

	var version string
	if err := client.CallContext(ctx, &version, "account_version"); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectorUnavailable, err)
	}

	// clef answers an empty list when the account listing is declined.
	var accs []common.Address
	if err := client.CallContext(ctx, &accs, "account_list"); err != nil {
		client.Close()
		if isDenied(err) {
			return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectorUnavailable, err)
	}
	if len(accs) == 0 {
		client.Close()
		return nil, fmt.Errorf("%w: no account approved", ErrUserRejected)
	}
	return &clefSigner{client: client, account: accs[0]}, nil
}

type clefSigner struct {
	client  *rpc.Client
	account common.Address
}

type clefSignResult struct {
	Raw hexutil.Bytes      `json:"raw"`
	Tx  *types.Transaction `json:"tx"`
}

func (s *clefSigner) Address() common.Address { return s.account }

func (s *clefSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	data := hexutil.Bytes(tx.Data())
	args := &apitypes.SendTxArgs{
		From:  common.NewMixedcaseAddress(s.account),
		Gas:   hexutil.Uint64(tx.Gas()),
		Value: hexutil.Big(*tx.Value()),
		Nonce: hexutil.Uint64(tx.Nonce()),
		Input: &data,
	}
	if tx.To() != nil {
		to := common.NewMixedcaseAddress(*tx.To())
		args.To = &to
	}
	switch tx.Type() {
	case types.LegacyTxType, types.AccessListTxType:
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	case types.DynamicFeeTxType:
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	default:
		return nil, fmt.Errorf("unsupported transaction type %d", tx.Type())
	}
	if chainID != nil && chainID.Sign() != 0 {
		args.ChainID = (*hexutil.Big)(chainID)
	}
	if tx.Type() != types.LegacyTxType {
		accessList := tx.AccessList()
		args.AccessList = &accessList
	}

	var res clefSignResult
	if err := s.client.CallContext(ctx, &res, "account_signTransaction", args); err != nil {
		if isDenied(err) {
			return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return nil, err
	}
	if res.Tx == nil {
		return nil, errors.New("clef returned no signed transaction")
	}
	return res.Tx, nil
}

// Close drops the connection to clef.
func (s *clefSigner) Close() error {
	s.client.Close()
	return nil
}

func isDenied(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "denied") || strings.Contains(msg, "rejected")
}
