package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// DevConnector signs with a raw private key. Meant for local Anvil chains.
type DevConnector struct {
	PrivateKeyHex string
}

func (DevConnector) ID() string   { return "dev" }
func (DevConnector) Name() string { return "Development key" }

func (c DevConnector) Connect(_ context.Context) (Signer, error) {
	if c.PrivateKeyHex == "" {
		return nil, fmt.Errorf("%w: no development key configured", ErrConnectorUnavailable)
	}
	key, err := parsePrivateKey(c.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectorUnavailable, err)
	}
	return NewKeySigner(key), nil
}

// KeySigner signs locally with an in-memory key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *KeySigner) Address() common.Address { return s.address }

func (s *KeySigner) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}
