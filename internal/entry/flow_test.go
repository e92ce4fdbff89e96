package entry

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rafflefront/internal/metrics"
	"rafflefront/internal/raffle"
	"rafflefront/internal/readview"
	"rafflefront/internal/wallet"
)

var oneTenthEth = big.NewInt(100000000000000000)

type staticView struct {
	mu   sync.Mutex
	snap readview.Snapshot
}

func openView(fee *big.Int) *staticView {
	return &staticView{snap: readview.Snapshot{
		EntranceFee: readview.Result[*big.Int]{Value: fee, Loaded: true},
		State:       readview.Result[raffle.State]{Value: raffle.Open, Loaded: true},
	}}
}

func (v *staticView) Snapshot() readview.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

func (v *staticView) setState(s raffle.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap.State = readview.Result[raffle.State]{Value: s, Loaded: true}
}

type staticSigner struct{ signer wallet.Signer }

func (s staticSigner) Signer() (wallet.Signer, bool) { return s.signer, s.signer != nil }

func newSigner(t *testing.T) wallet.Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet.NewKeySigner(key)
}

func waitFor(t *testing.T, f *Flow, status Status) State {
	t.Helper()
	require.Eventually(t, func() bool { return f.State().Status == status }, time.Second, time.Millisecond,
		"want %s, have %s", status, f.State().Status)
	return f.State()
}

func newTestFlow(t *testing.T, view ViewSource, signer wallet.Signer, contract raffle.Writer, opts Options) *Flow {
	t.Helper()
	f := NewFlow(view, staticSigner{signer}, contract, opts, zap.NewNop(), metrics.New())
	t.Cleanup(f.Close)
	return f
}

func TestFlowHappyPath(t *testing.T) {
	contract := raffle.NewFakeClient(oneTenthEth, time.Now())
	release := contract.HoldInclusion()
	view := openView(oneTenthEth)

	var refreshed atomic.Bool
	f := newTestFlow(t, view, newSigner(t), contract, Options{
		OnConfirmed: func(context.Context) { refreshed.Store(true) },
	})

	assert.Equal(t, Button{Label: LabelEnter}, ButtonFor(view.Snapshot().Open(), f.State()))
	assert.Empty(t, f.State().Message())

	var (
		mu   sync.Mutex
		seen []Status
	)
	unsubscribe := f.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})
	defer unsubscribe()

	require.True(t, f.Enter())

	pending := waitFor(t, f, Pending)
	assert.Equal(t, MsgConfirming, pending.Message())
	assert.NotEmpty(t, pending.TxHash)
	assert.Equal(t, Button{Label: MsgProcessing, Disabled: true}, ButtonFor(true, pending))

	release()
	confirmed := waitFor(t, f, Confirmed)
	assert.Equal(t, MsgConfirmed, confirmed.Message())
	assert.Equal(t, pending.TxHash, confirmed.TxHash)
	assert.Equal(t, "success", confirmed.Tone())
	assert.Eventually(t, refreshed.Load, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []Status{Submitted, Pending, Confirmed}, seen)
	mu.Unlock()

	require.Len(t, contract.Entrants(), 1)
}

func TestFlowRepeatedClicksSubmitOnce(t *testing.T) {
	contract := raffle.NewFakeClient(oneTenthEth, time.Now())
	release := contract.HoldInclusion()
	f := newTestFlow(t, openView(oneTenthEth), newSigner(t), contract, Options{})

	require.True(t, f.Enter())
	for i := 0; i < 10; i++ {
		assert.False(t, f.Enter(), "click %d must be ignored while in flight", i)
	}
	waitFor(t, f, Pending)
	assert.False(t, f.Enter())

	release()
	waitFor(t, f, Confirmed)
	assert.Len(t, contract.Entrants(), 1)

	// A confirmed attempt allows the next one.
	require.True(t, f.Enter())
	waitFor(t, f, Confirmed)
	assert.Len(t, contract.Entrants(), 2)
}

func TestFlowPreconditions(t *testing.T) {
	contract := raffle.NewFakeClient(oneTenthEth, time.Now())

	t.Run("no wallet", func(t *testing.T) {
		f := newTestFlow(t, openView(oneTenthEth), nil, contract, Options{})
		assert.False(t, f.Enter())
		assert.Equal(t, Idle, f.State().Status)
	})

	t.Run("fee unknown", func(t *testing.T) {
		view := openView(oneTenthEth)
		view.snap.EntranceFee = readview.Result[*big.Int]{Err: raffle.ErrReadFailed}
		f := newTestFlow(t, view, newSigner(t), contract, Options{})
		assert.False(t, f.Enter())
		assert.Equal(t, Idle, f.State().Status)
	})

	t.Run("raffle calculating", func(t *testing.T) {
		view := openView(oneTenthEth)
		view.setState(raffle.Calculating)
		f := newTestFlow(t, view, newSigner(t), contract, Options{})
		assert.False(t, f.Enter())
		assert.Equal(t, Button{Label: LabelClosed, Disabled: true}, ButtonFor(view.Snapshot().Open(), f.State()))
	})

	assert.Empty(t, contract.Entrants())
}

func TestFlowFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(c *raffle.FakeClient)
		wantReason string
	}{
		{
			name:       "wallet rejection",
			setup:      func(c *raffle.FakeClient) { c.FailEnter(errors.New("user rejected the request")) },
			wantReason: "user rejected the request",
		},
		{
			name:       "inclusion failure",
			setup:      func(c *raffle.FakeClient) { c.FailInclusion(errors.New("transaction reverted")) },
			wantReason: "transaction reverted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contract := raffle.NewFakeClient(oneTenthEth, time.Now())
			tt.setup(contract)
			f := newTestFlow(t, openView(oneTenthEth), newSigner(t), contract, Options{})

			require.True(t, f.Enter())
			failed := waitFor(t, f, Failed)
			assert.Equal(t, tt.wantReason, failed.Reason)
			assert.Equal(t, "Error: "+tt.wantReason, failed.Message())
			assert.Equal(t, "error", failed.Tone())
			assert.Equal(t, Button{Label: LabelEnter}, ButtonFor(true, failed))

			// No automatic retry, but the user may try again.
			contract.FailEnter(nil)
			contract.FailInclusion(nil)
			require.True(t, f.Enter())
			waitFor(t, f, Confirmed)
		})
	}
}

func TestFlowCloseStopsWaiting(t *testing.T) {
	contract := raffle.NewFakeClient(oneTenthEth, time.Now())
	contract.HoldInclusion()
	f := NewFlow(openView(oneTenthEth), staticSigner{newSigner(t)}, contract, Options{}, nil, nil)

	require.True(t, f.Enter())
	waitFor(t, f, Pending)

	f.Close()
	s := f.State()
	assert.Equal(t, Failed, s.Status)
	assert.Contains(t, s.Reason, context.Canceled.Error())
}

func TestFlowReceiptTimeout(t *testing.T) {
	contract := raffle.NewFakeClient(oneTenthEth, time.Now())
	contract.HoldInclusion()
	f := newTestFlow(t, openView(oneTenthEth), newSigner(t), contract, Options{ReceiptTimeout: 10 * time.Millisecond})

	require.True(t, f.Enter())
	failed := waitFor(t, f, Failed)
	assert.Contains(t, failed.Reason, context.DeadlineExceeded.Error())
	assert.NotEmpty(t, failed.TxHash)
}

func TestButtonFor(t *testing.T) {
	tests := []struct {
		open bool
		st   Status
		want Button
	}{
		{open: true, st: Idle, want: Button{Label: LabelEnter}},
		{open: true, st: Confirmed, want: Button{Label: LabelEnter}},
		{open: true, st: Failed, want: Button{Label: LabelEnter}},
		{open: true, st: Submitted, want: Button{Label: MsgProcessing, Disabled: true}},
		{open: true, st: Pending, want: Button{Label: MsgProcessing, Disabled: true}},
		{open: false, st: Idle, want: Button{Label: LabelClosed, Disabled: true}},
		{open: false, st: Confirmed, want: Button{Label: LabelClosed, Disabled: true}},
		{open: false, st: Failed, want: Button{Label: LabelClosed, Disabled: true}},
		{open: false, st: Pending, want: Button{Label: MsgProcessing, Disabled: true}},
	}
	for _, tt := range tests {
		got := ButtonFor(tt.open, State{Status: tt.st})
		assert.Equal(t, tt.want, got, "open=%v status=%s", tt.open, tt.st)
		if !tt.open {
			assert.True(t, got.Disabled)
		}
	}
}

const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func newProviderFlow(t *testing.T, contract raffle.Writer) (*Flow, *wallet.Provider) {
	t.Helper()
	provider := wallet.NewProvider(zap.NewNop(), nil, wallet.DevConnector{PrivateKeyHex: devKey})
	f := NewFlow(openView(oneTenthEth), provider, contract, Options{}, zap.NewNop(), metrics.New())
	t.Cleanup(f.Close)
	require.NoError(t, provider.Connect(context.Background(), "dev"))
	return f, provider
}

func TestFlowResetsOnDisconnect(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		contract := raffle.NewFakeClient(oneTenthEth, time.Now())
		f, provider := newProviderFlow(t, contract)

		var seen []Status
		var mu sync.Mutex
		f.Subscribe(func(s State) {
			mu.Lock()
			seen = append(seen, s.Status)
			mu.Unlock()
		})

		require.True(t, f.Enter())
		waitFor(t, f, Confirmed)

		provider.Disconnect()
		st := f.State()
		assert.Equal(t, Idle, st.Status)
		assert.Empty(t, st.Message())
		assert.Empty(t, st.TxHash)

		require.NoError(t, provider.Connect(context.Background(), "dev"))
		assert.Equal(t, Idle, f.State().Status)
		assert.Empty(t, f.State().Message())

		mu.Lock()
		defer mu.Unlock()
		require.NotEmpty(t, seen)
		assert.Equal(t, Idle, seen[len(seen)-1])
	})

	t.Run("failed", func(t *testing.T) {
		contract := raffle.NewFakeClient(oneTenthEth, time.Now())
		contract.FailEnter(errors.New("insufficient funds for gas * price + value"))
		f, provider := newProviderFlow(t, contract)

		require.True(t, f.Enter())
		assert.Equal(t, "insufficient funds for gas * price + value", waitFor(t, f, Failed).Reason)

		provider.Disconnect()
		assert.Equal(t, State{}, f.State())
	})

	t.Run("in flight", func(t *testing.T) {
		contract := raffle.NewFakeClient(oneTenthEth, time.Now())
		release := contract.HoldInclusion()
		f, provider := newProviderFlow(t, contract)

		require.True(t, f.Enter())
		waitFor(t, f, Pending)

		provider.Disconnect()
		assert.Equal(t, Pending, f.State().Status)

		release()
		waitFor(t, f, Idle)
		assert.Len(t, contract.Entrants(), 1)
	})

	t.Run("close unsubscribes", func(t *testing.T) {
		contract := raffle.NewFakeClient(oneTenthEth, time.Now())
		f, provider := newProviderFlow(t, contract)

		require.True(t, f.Enter())
		waitFor(t, f, Confirmed)

		f.Close()
		provider.Disconnect()
		assert.Equal(t, Confirmed, f.State().Status)
	})
}
