package readview

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"rafflefront/internal/raffle"
)

// Snapshot is a copy of the four cells. The fields may come from different blocks.
type Snapshot struct {
	EntranceFee Result[*big.Int]
	State       Result[raffle.State]
	LastDraw    Result[uint64]
	Winner      Result[common.Address]
}

func (s Snapshot) Open() bool {
	return s.State.Known() && s.State.Value == raffle.Open
}

func (s Snapshot) Fee() (*big.Int, bool) {
	if !s.EntranceFee.Known() || s.EntranceFee.Value == nil {
		return nil, false
	}
	return new(big.Int).Set(s.EntranceFee.Value), true
}

type Options struct {
	PollInterval   time.Duration
	CallTimeout    time.Duration
	ReadsPerSecond int
}

// Poller refreshes each contract field on its own schedule.
type Poller struct {
	reader  Reader
	opts    Options
	limiter ratelimit.Limiter
	logger  *zap.Logger
	now     func() time.Time

	fee      Cell[*big.Int]
	state    Cell[raffle.State]
	lastDraw Cell[uint64]
	winner   Cell[common.Address]

	mu      sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPoller(reader Reader, opts Options, logger *zap.Logger) *Poller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 4 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	limiter := ratelimit.NewUnlimited()
	if opts.ReadsPerSecond > 0 {
		limiter = ratelimit.New(opts.ReadsPerSecond)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		reader:  reader,
		opts:    opts,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]func(Snapshot)),
	}
}

// Start launches one refresh loop per field. Stop ends them.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	for _, refresh := range p.refreshers() {
		p.wg.Add(1)
		go func(refresh func(context.Context)) {
			defer p.wg.Done()
			p.loop(ctx, refresh)
		}(refresh)
	}
}

func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Refresh re-reads all four fields concurrently and returns when they are done.
func (p *Poller) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	for _, refresh := range p.refreshers() {
		wg.Add(1)
		go func(refresh func(context.Context)) {
			defer wg.Done()
			refresh(ctx)
		}(refresh)
	}
	wg.Wait()
}

func (p *Poller) Snapshot() Snapshot {
	return Snapshot{
		EntranceFee: p.fee.Get(),
		State:       p.state.Get(),
		LastDraw:    p.lastDraw.Get(),
		Winner:      p.winner.Get(),
	}
}

// Subscribe registers fn for every cell write and returns its cancel func.
func (p *Poller) Subscribe(fn func(Snapshot)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Poller) loop(ctx context.Context, refresh func(context.Context)) {
	refresh(ctx)

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

func (p *Poller) refreshers() []func(context.Context) {
	return []func(context.Context){
		func(ctx context.Context) { refreshCell(ctx, p, "entranceFee", &p.fee, p.reader.EntranceFee) },
		func(ctx context.Context) { refreshCell(ctx, p, "raffleState", &p.state, p.reader.RaffleState) },
		func(ctx context.Context) { refreshCell(ctx, p, "lastTimestamp", &p.lastDraw, p.reader.LastTimestamp) },
		func(ctx context.Context) { refreshCell(ctx, p, "recentWinner", &p.winner, p.reader.RecentWinner) },
	}
}

func refreshCell[T any](ctx context.Context, p *Poller, field string, cell *Cell[T], read func(context.Context) (T, error)) {
	if ctx.Err() != nil {
		return
	}
	p.limiter.Take()

	callCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	v, err := read(callCtx)
	cancel()

	if err != nil {
		// Shutdown is not a read failure.
		if ctx.Err() != nil {
			return
		}
		p.logger.Debug("raffle read failed", zap.String("field", field), zap.Error(err))
		cell.Fail(err, p.now())
	} else {
		cell.Set(v, p.now())
	}
	p.notify()
}

func (p *Poller) notify() {
	snap := p.Snapshot()
	p.mu.Lock()
	fns := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
