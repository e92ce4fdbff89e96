package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// KeystoreConnector unlocks the first account of an encrypted key directory.
type KeystoreConnector struct {
	Dir        string
	Passphrase string
}

func (KeystoreConnector) ID() string   { return "keystore" }
func (KeystoreConnector) Name() string { return "Keystore" }

func (c KeystoreConnector) Connect(_ context.Context) (Signer, error) {
	if c.Dir == "" {
		return nil, fmt.Errorf("%w: no keystore directory configured", ErrConnectorUnavailable)
	}
	if _, err := os.Stat(c.Dir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectorUnavailable, err)
	}

	ks := keystore.NewKeyStore(c.Dir, keystore.StandardScryptN, keystore.StandardScryptP)
	accs := ks.Accounts()
	if len(accs) == 0 {
		return nil, fmt.Errorf("%w: keystore %s holds no accounts", ErrConnectorUnavailable, c.Dir)
	}

	account := accs[0]
	if err := ks.Unlock(account, c.Passphrase); err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectorUnavailable, err)
	}
	return &keystoreSigner{ks: ks, account: account}, nil
}

type keystoreSigner struct {
	ks      *keystore.KeyStore
	account accounts.Account
}

func (s *keystoreSigner) Address() common.Address { return s.account.Address }

func (s *keystoreSigner) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := s.ks.SignTx(s.account, tx, chainID)
	if errors.Is(err, keystore.ErrLocked) {
		return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
	}
	return signed, err
}
