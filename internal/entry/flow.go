package entry

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"rafflefront/internal/metrics"
	"rafflefront/internal/raffle"
	"rafflefront/internal/readview"
	"rafflefront/internal/wallet"
)

type ViewSource interface {
	Snapshot() readview.Snapshot
}

type SignerSource interface {
	Signer() (wallet.Signer, bool)
}

// sessionNotifier is implemented by signer sources that announce session
// changes, such as wallet.Provider.
type sessionNotifier interface {
	Subscribe(fn func(wallet.Session)) func()
}

type Options struct {
	ReceiptTimeout time.Duration
	// OnConfirmed runs after an entry is included, e.g. to refresh the read view.
	OnConfirmed func(ctx context.Context)
}

// Flow owns the entry state machine:
//
//	Idle -> Submitted -> Pending -> Confirmed
//	Submitted|Pending -> Failed(reason)
//	Confirmed|Failed -> Idle when the wallet disconnects
type Flow struct {
	view     ViewSource
	wallet   SignerSource
	contract raffle.Writer
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.Registry

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()

	mu    sync.Mutex
	state State
	// orphaned marks an in-flight attempt whose wallet disconnected; its
	// outcome is published and then dropped.
	orphaned bool
	subs     map[int]func(State)
	nextSub  int
}

func NewFlow(view ViewSource, signers SignerSource, contract raffle.Writer, opts Options, logger *zap.Logger, m *metrics.Registry) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Flow{
		view:        view,
		wallet:      signers,
		contract:    contract,
		opts:        opts,
		logger:      logger,
		metrics:     m,
		ctx:         ctx,
		cancel:      cancel,
		unsubscribe: func() {},
		subs:        make(map[int]func(State)),
	}
	if n, ok := signers.(sessionNotifier); ok {
		f.unsubscribe = n.Subscribe(f.onSession)
	}
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Enter starts an attempt and reports whether one was started. It is a no-op
// when no wallet is connected, the fee is unknown, the raffle is not open or
// an attempt is already in flight.
func (f *Flow) Enter() bool {
	signer, ok := f.wallet.Signer()
	if !ok {
		return false
	}
	snap := f.view.Snapshot()
	fee, ok := snap.Fee()
	if !ok || !snap.Open() {
		return false
	}

	f.mu.Lock()
	if f.state.InFlight() {
		f.mu.Unlock()
		return false
	}
	f.state = State{Status: Submitted}
	f.orphaned = false
	f.mu.Unlock()
	f.publish(State{Status: Submitted})

	f.logger.Info("raffle entry submitted",
		zap.String("account", signer.Address().Hex()),
		zap.String("value", fee.String()))

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(signer, fee)
	}()
	return true
}

// Subscribe registers fn for every transition and returns its cancel func.
func (f *Flow) Subscribe(fn func(State)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Close stops waiting for inclusion. A broadcast transaction is not withdrawn.
func (f *Flow) Close() {
	f.unsubscribe()
	f.cancel()
	f.wg.Wait()
}

// onSession drops the outcome of the last attempt once its wallet is gone,
// so a reconnect starts from a clean panel. Attempts in flight keep running.
func (f *Flow) onSession(s wallet.Session) {
	if s.Connected() {
		return
	}
	f.mu.Lock()
	switch {
	case f.state.Status == Idle:
		f.mu.Unlock()
		return
	case f.state.InFlight():
		f.orphaned = true
		f.mu.Unlock()
		return
	}
	f.state = State{}
	f.mu.Unlock()

	f.logger.Debug("raffle entry reset", zap.String("wallet", s.Status.String()))
	f.publish(State{})
}

func (f *Flow) run(signer wallet.Signer, fee *big.Int) {
	tx, err := f.contract.Enter(f.ctx, signer, fee)
	if err != nil {
		f.fail(err)
		return
	}
	hash := tx.Hash().Hex()
	f.transition(State{Status: Pending, TxHash: hash})
	f.logger.Info("raffle entry broadcast", zap.String("tx", hash))

	waitCtx := f.ctx
	if f.opts.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(f.ctx, f.opts.ReceiptTimeout)
		defer cancel()
	}
	if _, err := f.contract.WaitIncluded(waitCtx, tx); err != nil {
		f.fail(err)
		return
	}
	f.transition(State{Status: Confirmed, TxHash: hash})
	f.logger.Info("raffle entry confirmed", zap.String("tx", hash))

	if f.opts.OnConfirmed != nil {
		f.opts.OnConfirmed(f.ctx)
	}
}

func (f *Flow) fail(err error) {
	f.mu.Lock()
	hash := f.state.TxHash
	f.mu.Unlock()

	f.logger.Warn("raffle entry failed", zap.String("tx", hash), zap.Error(err))
	f.transition(State{Status: Failed, Reason: err.Error(), TxHash: hash})
}

func (f *Flow) transition(s State) {
	f.mu.Lock()
	f.state = s
	reset := f.orphaned && !s.InFlight()
	if reset {
		f.state = State{}
		f.orphaned = false
	}
	f.mu.Unlock()

	f.publish(s)
	if reset {
		f.logger.Debug("raffle entry reset", zap.String("tx", s.TxHash))
		f.publish(State{})
	}
}

func (f *Flow) publish(s State) {
	f.mu.Lock()
	fns := make([]func(State), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	f.metrics.IncEntry(s.Status.String())
	for _, fn := range fns {
		fn(s)
	}
}
