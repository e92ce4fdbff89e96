package readview

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	MsgLoading  = "Loading..."
	MsgNoWinner = "No winner yet"
)

// FormatUnits converts an amount in the smallest unit to its decimal form.
func FormatUnits(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ShortAddress renders an address as its first 6 and last 4 characters.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func FormatWinner(addr common.Address) string {
	if addr == (common.Address{}) {
		return MsgNoWinner
	}
	return ShortAddress(addr.Hex())
}
