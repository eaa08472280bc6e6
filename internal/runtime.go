package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// TieBreak decides which write wins when reactions of the same wave share an output.
type TieBreak int

const (
	// TieBreakRegistration keeps the value of the latest registered writer,
	// whatever order suspending bodies complete in.
	TieBreakRegistration TieBreak = iota
	// TieBreakCompletion keeps the value of the writer that applied last.
	TieBreakCompletion
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakRegistration:
		return "registration"
	case TieBreakCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

const DefaultMaxCascadeDepth = 100

type Settings struct {
	Logger          *slog.Logger
	Clock           clockz.Clock
	MeterProvider   metric.MeterProvider
	TieBreak        TieBreak
	TaskTimeout     time.Duration
	MaxCascadeDepth int
	ErrorHistory    int
}

type Runtime struct {
	mu sync.Mutex

	registry  *Registry
	tree      *Tree
	owner     *Owner
	scheduler *Scheduler
	batcher   *Batcher
	tracker   *Tracker
	queue     *FiringQueue
	settled   *SettledQueue

	logger      *slog.Logger
	clock       clockz.Clock
	tieBreak    TieBreak
	taskTimeout time.Duration
	maxWaves    int
	errors      *errorRing
	metrics     *metrics

	active bool
	ctx    context.Context
	cancel context.CancelFunc

	// watchers of suspending bodies, one group per activation
	tasks *errgroup.Group
	// suspending bodies not applied yet, and those that completed
	pending  int
	finished []*invocation
}

func NewRuntime(s Settings) *Runtime {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Clock == nil {
		s.Clock = clockz.RealClock
	}
	if s.MeterProvider == nil {
		s.MeterProvider = otel.GetMeterProvider()
	}
	if s.MaxCascadeDepth <= 0 {
		s.MaxCascadeDepth = DefaultMaxCascadeDepth
	}

	return &Runtime{
		registry:  NewRegistry(),
		tree:      NewTree(),
		owner:     NewOwner(),
		scheduler: NewScheduler(),
		batcher:   NewBatcher(),
		tracker:   NewTracker(),
		queue:     NewFiringQueue(),
		settled:   NewSettledQueue(),

		logger:      s.Logger,
		clock:       s.Clock,
		tieBreak:    s.TieBreak,
		taskTimeout: s.TaskTimeout,
		maxWaves:    s.MaxCascadeDepth,
		errors:      newErrorRing(s.ErrorHistory),
		metrics:     newMetrics(s.MeterProvider, s.Logger),

		ctx: context.Background(),
	}
}

func (r *Runtime) Registry() *Registry { return r.registry }
func (r *Runtime) Tree() *Tree         { return r.tree }
func (r *Runtime) Owner() *Owner       { return r.owner }
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.scheduler.State()
}

// Pending returns how many suspending bodies have not been applied yet.
func (r *Runtime) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pending
}

// Errors returns the most recent callback errors, oldest first.
func (r *Runtime) Errors() []error {
	return r.errors.all()
}

func (r *Runtime) Context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ctx
}

func (r *Runtime) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active
}

// Register adds reaction to the table; owner's disposal unregisters it.
func (r *Runtime) Register(reaction *Reaction, owner *Owner) error {
	ctx := r.Context()

	if owner == nil {
		owner = r.owner
	}
	reaction.owner = owner

	if err := r.registry.Register(reaction); err != nil {
		capitan.Emit(ctx, ReactionRejected,
			KeyReaction.Field(reaction.Name),
			KeyError.Field(err.Error()),
		)
		return err
	}

	owner.OnCleanup(func() { r.Unregister(reaction) })

	capitan.Emit(ctx, ReactionRegistered,
		KeyReaction.Field(reaction.Name),
		KeyReactions.Field(r.registry.Len()),
	)
	r.logger.Debug("reaction registered", slog.String("reaction", reaction.String()))

	return nil
}

func (r *Runtime) Unregister(reaction *Reaction) bool {
	if !r.registry.Unregister(reaction) {
		return false
	}

	capitan.Emit(r.Context(), ReactionUnregistered,
		KeyReaction.Field(reaction.Name),
		KeyReactions.Field(r.registry.Len()),
	)
	return true
}

func (r *Runtime) Activate(ctx context.Context) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.active = true
	r.tasks = &errgroup.Group{}
	ctx = r.ctx
	r.mu.Unlock()

	capitan.Emit(ctx, AppActivated,
		KeyReactions.Field(r.registry.Len()),
		KeyElements.Field(r.tree.Len()),
	)
}

// Deactivate stops dispatching. Queued firings are dropped, in-flight
// suspending bodies see their context canceled and their outputs are discarded.
func (r *Runtime) Deactivate() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	dropped := r.queue.Len()
	r.queue.Drain()
	cancel, ctx, tasks := r.cancel, r.ctx, r.tasks
	r.mu.Unlock()

	cancel()
	_ = tasks.Wait()

	r.logger.Debug("deactivated", slog.Int("dropped", dropped))
	capitan.Emit(context.WithoutCancel(ctx), AppDeactivated)
}

// Notify is the interception entry point: properties and elements report firings here.
// The calling goroutine dispatches the firing if the engine is idle, otherwise
// the firing joins the next wave of the running dispatch. Either way Notify does
// not wait for suspending bodies.
func (r *Runtime) Notify(f Firing) {
	gid := getGID()

	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}

	f.At = r.clock.Now()

	if r.batcher.Holds(gid) {
		r.batcher.Hold(f)
		r.mu.Unlock()
		return
	}

	r.queue.Enqueue(f)
	if r.scheduler.Busy() {
		r.mu.Unlock()
		return
	}

	r.start(gid)
	r.mu.Unlock()

	r.flush()
}

// Batch holds the firings caused by fn and dispatches them as a single wave,
// so a reaction triggered by several of them runs once.
// If another goroutine is batching, fn runs unbatched.
func (r *Runtime) Batch(fn func()) {
	gid := getGID()

	r.mu.Lock()
	entered := r.batcher.Enter(gid)
	r.mu.Unlock()

	if !entered {
		fn()
		return
	}

	defer func() {
		r.mu.Lock()
		held := r.batcher.Leave()
		if len(held) == 0 || !r.active {
			r.mu.Unlock()
			return
		}

		r.queue.Enqueue(held...)
		if r.scheduler.Busy() {
			r.mu.Unlock()
			return
		}

		r.start(gid)
		r.mu.Unlock()

		r.flush()
	}()

	fn()
}

// Settle blocks until the engine is idle and every suspending body has been
// applied. It returns at once on the goroutine that owns the running dispatch,
// and when ctx is, or derives from, the context handed to a body.
func (r *Runtime) Settle(ctx context.Context) error {
	gid := getGID()

	r.mu.Lock()
	if r.settledLocked() || r.tracker.Owns(gid) || inBody(ctx) {
		r.mu.Unlock()
		return nil
	}
	ch := r.settled.Enqueue()
	r.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) settledLocked() bool {
	return !r.scheduler.Busy() && r.pending == 0
}

// start must be called with the lock held.
func (r *Runtime) start(gid int64) {
	r.tracker.Acquire(gid)
	r.scheduler.Transition(StateResolving)
}

func (r *Runtime) transition(to State) {
	r.mu.Lock()
	r.scheduler.Transition(to)
	r.mu.Unlock()
}

// flush applies completed suspending bodies and runs waves until no firing is
// left, then goes idle.
func (r *Runtime) flush() {
	batch := uuid.New()
	ctx := r.Context()

	for {
		r.mu.Lock()
		if finished := r.finished; len(finished) > 0 {
			r.finished = nil
			r.pending -= len(finished)
			active := r.active
			r.mu.Unlock()

			for _, inv := range finished {
				// outputs of an earlier activation are stale
				if active && inv.ctx.Err() == nil {
					r.apply(ctx, inv)
				}
			}
			continue
		}

		firings := r.queue.Drain()

		if len(firings) == 0 || !r.active {
			r.idle(ctx, batch)
			return
		}

		wave := r.scheduler.Begin()
		if wave > r.maxWaves {
			r.logger.Error("dispatch aborted",
				slog.String("batch", batch.String()),
				slog.Int("waves", wave-1),
				slog.Int("dropped", len(firings)),
				slog.Any("error", ErrCascadeLimit),
			)
			r.errors.push(fmt.Errorf("%w: %d waves", ErrCascadeLimit, wave-1))
			r.idle(ctx, batch)
			return
		}
		r.mu.Unlock()

		r.runWave(ctx, batch, wave, firings)
	}
}

// idle must be called with the lock held, it releases it.
func (r *Runtime) idle(ctx context.Context, batch uuid.UUID) {
	waves := r.scheduler.Idle()
	r.tracker.Release()
	if r.pending == 0 {
		r.settled.Release()
	}
	pending, total := r.pending, r.scheduler.Time()
	r.mu.Unlock()

	if waves == 0 {
		return
	}

	r.metrics.settled(ctx, waves)
	capitan.Emit(ctx, DispatchSettled,
		KeyBatch.Field(batch.String()),
		KeyWaves.Field(waves),
		KeyTotalWaves.Field(total),
		KeyPending.Field(pending),
	)
}

type invocation struct {
	reaction *Reaction
	call     *Call
	task     Task

	// runtime context of the activation that invoked it
	ctx context.Context
	// outputs already written in the invoking wave, for the tie-break
	written map[Ref]uint64
}

func (r *Runtime) runWave(ctx context.Context, batch uuid.UUID, wave int, firings []Firing) {
	heap := NewHeap()
	for _, f := range firings {
		r.metrics.fired(ctx, f)

		if f.Kind == KindRaised {
			for _, reaction := range r.registry.Raised() {
				if reaction.matches(f) >= 0 {
					heap.Insert(reaction, f)
				}
			}
			continue
		}

		heap.InsertAll(r.registry.Lookup(f.Key()), f)
	}

	r.logger.Debug("dispatch wave",
		slog.String("batch", batch.String()),
		slog.Int("wave", wave),
		slog.Int("firings", len(firings)),
		slog.Int("reactions", heap.Len()),
	)

	invocations := make([]*invocation, 0, heap.Len())
	for entry := range heap.Drain() {
		if !entry.reaction.Active() {
			continue
		}

		call, err := r.resolve(entry, batch)
		if err != nil {
			r.logger.Warn("reaction skipped",
				slog.String("reaction", entry.reaction.Name),
				slog.String("batch", batch.String()),
				slog.Any("error", err),
			)
			continue
		}

		invocations = append(invocations, &invocation{reaction: entry.reaction, call: call})
	}

	r.transition(StateInvoking)

	written := make(map[Ref]uint64)

	for _, inv := range invocations {
		// an earlier body of this wave may have unregistered it
		if !inv.reaction.Active() {
			continue
		}

		inv.ctx = ctx
		inv.written = written
		inv.task = r.invoke(ctx, inv)
		if isDone(inv.task) {
			r.apply(ctx, inv)
		} else {
			r.watch(ctx, inv)
		}
	}
}

// resolve reads the trigger and select values of a reaction from the current state.
func (r *Runtime) resolve(entry *heapEntry, batch uuid.UUID) (*Call, error) {
	reaction := entry.reaction

	call := &Call{
		Reaction: reaction.Name,
		Batch:    batch,
		Firings:  entry.firings,
		Inputs:   make([]any, len(reaction.Triggers)),
		Selects:  make([]any, len(reaction.Selects)),
	}

	read := func(ref Ref) (any, error) {
		v, err := r.tree.Read(ref)
		if errors.Is(err, ErrUnknownElement) {
			return nil, &UnknownElementError{Reaction: reaction.Name, ID: ref.ID}
		}
		return v, err
	}

	for i, t := range reaction.Triggers {
		if t.Kind == KindModified {
			v, err := read(t.Ref)
			if err != nil {
				return nil, err
			}
			call.Inputs[i] = v
		}
	}

	for _, f := range entry.firings {
		i := reaction.matches(f)
		switch {
		case i < 0:
		case f.Kind == KindPublished:
			call.Inputs[i] = f.Event
		case f.Kind == KindRaised:
			call.Inputs[i] = f.Err
		}
	}

	for i, s := range reaction.Selects {
		v, err := read(s.Ref)
		if err != nil {
			return nil, err
		}
		call.Selects[i] = v
	}

	for _, o := range reaction.Outputs {
		if _, ok := r.tree.Get(o.Ref.ID); !ok {
			return nil, &UnknownElementError{Reaction: reaction.Name, ID: o.Ref.ID}
		}
	}

	return call, nil
}

type bodyKey struct{}

// inBody reports whether ctx is, or derives from, a context handed to a body.
func inBody(ctx context.Context) bool {
	return ctx.Value(bodyKey{}) != nil
}

func (r *Runtime) invoke(ctx context.Context, inv *invocation) Task {
	r.metrics.invoked(ctx)

	bodyCtx := context.WithValue(ctx, bodyKey{}, inv.reaction.Name)

	var t Task
	_, err := Protect(func() ([]any, error) {
		t = inv.reaction.Body(bodyCtx, inv.call)
		return nil, nil
	})
	if err != nil {
		return Completed(nil, err)
	}

	return taskOrFail(t)
}

// watch waits for a suspending body off the loop. Once it completes, times out
// or the app deactivates, the next flush applies it.
func (r *Runtime) watch(ctx context.Context, inv *invocation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}
	r.pending++

	r.tasks.Go(func() error {
		var timeout <-chan time.Time
		if r.taskTimeout > 0 {
			timer := r.clock.NewTimer(r.taskTimeout)
			defer timer.Stop()
			timeout = timer.C()
		}

		select {
		case <-inv.task.Done():
		case <-timeout:
			inv.task = Completed(nil, fmt.Errorf("%w after %s", ErrTaskTimeout, r.taskTimeout))
		case <-ctx.Done():
			inv.task = Completed(nil, ctx.Err())
		}

		r.complete(inv)
		return nil
	})
}

// complete hands a finished body to the running dispatch, or starts one.
func (r *Runtime) complete(inv *invocation) {
	r.mu.Lock()
	r.finished = append(r.finished, inv)
	busy := r.scheduler.Busy()
	r.mu.Unlock()

	if !busy {
		go r.resume()
	}
}

// resume dispatches completed bodies no running dispatch picked up.
func (r *Runtime) resume() {
	gid := getGID()

	r.mu.Lock()
	if r.scheduler.Busy() || len(r.finished) == 0 {
		r.mu.Unlock()
		return
	}
	r.start(gid)
	r.mu.Unlock()

	r.flush()
}

// apply writes the outputs of a finished invocation, or reports its failure.
// Writes are tie-broken against the other writers of the wave that invoked it.
func (r *Runtime) apply(ctx context.Context, inv *invocation) {
	reaction := inv.reaction
	values, err := inv.task.Result()

	if err == nil && len(values) != len(reaction.Outputs) {
		err = fmt.Errorf("%w: returned %d values for %d outputs", ErrOutputArity, len(values), len(reaction.Outputs))
	}
	if errors.Is(err, ErrPreventUpdate) {
		return
	}
	if err != nil {
		r.fail(ctx, inv, err)
		return
	}

	r.transition(StateApplying)
	defer r.transition(StateInvoking)

	for i, o := range reaction.Outputs {
		v := values[i]
		if IsNoUpdate(v) {
			continue
		}

		if r.tieBreak == TieBreakRegistration {
			if last, ok := inv.written[o.Ref]; ok && last > reaction.seq {
				continue
			}
		}
		inv.written[o.Ref] = reaction.seq

		if err := r.write(o.Ref, v); err != nil {
			r.logger.Warn("output not applied",
				slog.String("reaction", reaction.Name),
				slog.String("output", o.Ref.String()),
				slog.Any("error", err),
			)
		}
	}
}

func (r *Runtime) write(ref Ref, v any) error {
	el, ok := r.tree.Get(ref.ID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownElement, ref.ID)
	}

	p, ok := el.Property(ref.Property)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, ref)
	}

	_, err := p.Assign(v)
	return err
}

// fail turns a callback error into a raised firing, or logs and suppresses it
// when no reaction handles it. Errors of reactions run for a raised firing are
// never raised again.
func (r *Runtime) fail(ctx context.Context, inv *invocation, err error) {
	name := inv.reaction.Name

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		r.logger.Debug("reaction canceled", slog.String("reaction", name))
		return
	}

	r.errors.push(fmt.Errorf("reaction %s: %w", name, err))
	r.metrics.failed(ctx, name)
	capitan.Emit(ctx, ReactionFailed,
		KeyReaction.Field(name),
		KeyTrigger.Field(inv.call.Trigger().Key().String()),
		KeyBatch.Field(inv.call.Batch.String()),
		KeyError.Field(err.Error()),
	)

	if !raisedOnly(inv.call.Firings) && r.registry.Handles(err) {
		r.mu.Lock()
		r.queue.Enqueue(Firing{
			Kind:   KindRaised,
			Ref:    Ref{RaisedID, fmt.Sprintf("%T", err)},
			Err:    err,
			Source: name,
			At:     r.clock.Now(),
		})
		r.mu.Unlock()
		return
	}

	r.logger.Error("reaction failed",
		slog.String("reaction", name),
		slog.String("batch", inv.call.Batch.String()),
		slog.Any("error", err),
	)
	inv.reaction.owner.Catch(fmt.Errorf("reaction %s: %w", name, err))
}

func raisedOnly(firings []Firing) bool {
	for _, f := range firings {
		if f.Kind != KindRaised {
			return false
		}
	}
	return len(firings) > 0
}
