package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	ChainIDSepolia int64 = 11155111
	ChainIDLocal   int64 = 31337
)

// Currency describes the chain's native coin.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// ChainDescriptor identifies a network and where the raffle lives on it.
type ChainDescriptor struct {
	ChainID       int64    `json:"chainId"`
	Name          string   `json:"name"`
	RPCURL        string   `json:"rpcUrl"`
	Currency      Currency `json:"currency"`
	RaffleAddress string   `json:"raffleAddress"`
}

// Validate rejects descriptors the client cannot display amounts for.
func (c ChainDescriptor) Validate() error {
	if c.ChainID <= 0 {
		return fmt.Errorf("chain %q: chainId must be positive", c.Name)
	}
	if c.Currency.Symbol == "" {
		return fmt.Errorf("chain %d: currency symbol is required", c.ChainID)
	}
	if c.Currency.Decimals <= 0 || c.Currency.Decimals > maxDecimals {
		return fmt.Errorf("chain %d: currency decimals must be within 1..%d, got %d", c.ChainID, maxDecimals, c.Currency.Decimals)
	}
	return nil
}

type Chains []ChainDescriptor

const maxDecimals = 36

var ether = Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}

// DefaultChains returns the built-in local Anvil and Sepolia descriptors.
func DefaultChains() Chains {
	return Chains{
		{
			ChainID:  ChainIDLocal,
			Name:     "Anvil",
			RPCURL:   "http://localhost:8545",
			Currency: ether,
		},
		{
			ChainID:       ChainIDSepolia,
			Name:          "Sepolia",
			Currency:      ether,
			RaffleAddress: "0x980b222e16d578806FD7c1BCE7A0BEbc231F59e2",
		},
	}
}

func (c Chains) Find(chainID int64) (ChainDescriptor, bool) {
	for _, d := range c {
		if d.ChainID == chainID {
			return d, true
		}
	}
	return ChainDescriptor{}, false
}

// RaffleAddress picks the override, then the chain's own address, then the Sepolia deployment.
func (c Chains) RaffleAddress(chainID int64, override string) (common.Address, error) {
	candidate := override
	if candidate == "" {
		if d, ok := c.Find(chainID); ok {
			candidate = d.RaffleAddress
		}
	}
	if candidate == "" {
		if d, ok := c.Find(ChainIDSepolia); ok {
			candidate = d.RaffleAddress
		}
	}
	if candidate == "" {
		return common.Address{}, fmt.Errorf("no raffle address for chain %d", chainID)
	}
	if !common.IsHexAddress(candidate) {
		return common.Address{}, fmt.Errorf("invalid raffle address %q", candidate)
	}
	return common.HexToAddress(candidate), nil
}
