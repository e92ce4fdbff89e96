// Package readview keeps the live, per-field view of the raffle contract and
// turns it into display strings.
package readview

import "rafflefront/internal/raffle"

//go:generate mockgen -destination=mocks_test.go -package=$GOPACKAGE rafflefront/internal/raffle Reader

// Reader is the read surface of the raffle contract.
type Reader = raffle.Reader
