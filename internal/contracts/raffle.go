// Package contracts holds the ABI descriptors of the on-chain contracts the client talks to.
package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Raffle methods consumed by the client.
const (
	MethodGetEntranceFee   = "getEntranceFee"
	MethodGetRaffleState   = "getRaffleState"
	MethodGetLastTimeStamp = "getLastTimeStamp"
	MethodGetRecentWinner  = "getRecentWinner"
	MethodEnterRaffle      = "enterRaffle"
)

// RaffleABI is the subset of the Raffle contract ABI read and written by the client.
const RaffleABI = `[
  {"type":"function","name":"getEntranceFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
  {"type":"function","name":"getRaffleState","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8","internalType":"enum Raffle.RaffleState"}]},
  {"type":"function","name":"getLastTimeStamp","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
  {"type":"function","name":"getRecentWinner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address","internalType":"address"}]},
  {"type":"function","name":"enterRaffle","stateMutability":"payable","inputs":[],"outputs":[]}
]`

var (
	parseOnce sync.Once
	parsed    abi.ABI
	parseErr  error
)

// ParsedRaffleABI returns RaffleABI parsed once per process.
func ParsedRaffleABI() (abi.ABI, error) {
	parseOnce.Do(func() {
		parsed, parseErr = abi.JSON(strings.NewReader(RaffleABI))
	})
	return parsed, parseErr
}
