// Package keeper finalizes proposals whose voting window has closed.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"presence_dao/contract"
	"presence_dao/contract/dao"
	"presence_dao/internal/notify"
	"presence_dao/sdk"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// runTimeout bounds a single scheduled crank.
const runTimeout = 25 * time.Second

type Keeper struct {
	engine    *contract.Engine
	sender    sdk.Address
	pool      pond.Pool
	publisher notify.Publisher
	logger    *zap.Logger
	now       func() time.Time

	cron     *cron.Cron
	schedule string
}

type Option func(*Keeper)

func WithLogger(l *zap.Logger) Option {
	return func(k *Keeper) { k.logger = l }
}

func WithPublisher(p notify.Publisher) Option {
	return func(k *Keeper) { k.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(k *Keeper) { k.now = now }
}

// New returns a keeper that submits finalize_proposal as sender using up to
// workers goroutines.
func New(engine *contract.Engine, sender sdk.Address, workers int, opts ...Option) (*Keeper, error) {
	if !sender.IsValid() {
		return nil, fmt.Errorf("keeper: invalid sender %q", sender)
	}
	if workers < 1 {
		workers = 1
	}
	k := &Keeper{
		engine:    engine,
		sender:    sender,
		pool:      pond.NewPool(workers),
		publisher: notify.Nop{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Due returns the ids of active proposals whose voting window has ended at ts.
func Due(proposals []*dao.Proposal, ts int64) []uint64 {
	var ids []uint64
	for _, prpsl := range proposals {
		if prpsl.Status == dao.ProposalActive && ts >= prpsl.VotingEndsAt {
			ids = append(ids, prpsl.ID)
		}
	}
	return ids
}

// Crank finalizes every due proposal and reports how many were finalized.
// A proposal that fails to finalize is logged and skipped.
func (k *Keeper) Crank(ctx context.Context) (int, error) {
	proposals, err := k.engine.Proposals(ctx)
	if err != nil {
		if errors.Is(err, contract.ErrNotInitialized) {
			return 0, nil
		}
		return 0, fmt.Errorf("list proposals: %w", err)
	}
	ts := k.now().Unix()
	due := Due(proposals, ts)
	if len(due) == 0 {
		return 0, nil
	}

	var done atomic.Int64
	group := k.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, id := range due {
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			if k.finalize(groupCtx, id, ts) {
				done.Add(1)
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return int(done.Load()), err
	}
	k.logger.Info("crank finished", zap.Int("due", len(due)), zap.Int64("finalized", done.Load()))
	return int(done.Load()), nil
}

func (k *Keeper) finalize(ctx context.Context, id uint64, ts int64) bool {
	env := sdk.NewEnv(k.sender, ts, uuid.NewString())
	ix := contract.Instruction{Action: contract.ActionFinalizeProposal, Payload: contract.UInt64ToString(id)}
	res, err := k.engine.Execute(ctx, env, ix)
	if err != nil {
		k.logger.Warn("finalize failed",
			zap.Uint64("proposal", id),
			zap.String("code", contract.Code(err)),
			zap.Error(err))
		return false
	}
	k.logger.Info("proposal finalized", zap.Uint64("proposal", id), zap.String("ret", res.Ret))
	k.publisher.Publish(ctx, notify.NewMessage(res, k.sender.String(), ts))
	return true
}

// specParser takes five or six fields, plus descriptors such as "@every 30s".
var specParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronLogger routes cron's own messages, recovered panics included, to zap.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Schedule registers Crank on a cron spec. Seconds are optional.
func (k *Keeper) Schedule(ctx context.Context, spec string) error {
	clog := cronLogger{s: k.logger.Named("cron").Sugar()}
	k.cron = cron.New(cron.WithParser(specParser), cron.WithLogger(clog), cron.WithChain(cron.Recover(clog)))
	_, err := k.cron.AddFunc(spec, func() {
		rctx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		if _, err := k.Crank(rctx); err != nil {
			k.logger.Warn("crank error", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("keeper schedule %q: %w", spec, err)
	}
	k.schedule = spec
	return nil
}

func (k *Keeper) Start() {
	if k.cron == nil {
		return
	}
	k.cron.Start()
	k.logger.Info("keeper started", zap.String("schedule", k.schedule), zap.String("sender", k.sender.Short()))
}

// Stop waits for a running crank, then drains the worker pool.
func (k *Keeper) Stop() {
	if k.cron != nil {
		<-k.cron.Stop().Done()
	}
	k.pool.StopAndWait()
}
