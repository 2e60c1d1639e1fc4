package ledger

import (
	"bytes"
	"context"
	"math/bits"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/sentry"
)

// Program processes instructions addressed to its id.
type Program interface {
	Process(ctx context.Context, inv *Invocation, data []byte) error
}

// Receipt describes the outcome of a submitted transaction.
type Receipt struct {
	ID      uuid.UUID
	Time    int64
	Signers []core.Address
	// Programs lists the programs of the transaction's instructions.
	Programs []core.Address
	// Accounts lists every account the transaction referenced.
	Accounts []core.Address
	// Written lists the accounts changed by a successful transaction.
	Written []core.Address
	Logs    []string
	Success bool
	Err     *core.ErrorCode
	Message string
}

// Observer is notified about every receipt once the transaction is finished.
type Observer func(r Receipt)

type subscriberID int64

// Runtime executes transactions against a Store.
type Runtime struct {
	logger *zap.Logger
	store  Store
	clock  Clock
	rent   Rent
	tracer trace.Tracer

	mu        sync.RWMutex
	programs  map[core.Address]Program
	observers map[subscriberID]Observer
	currentID subscriberID

	// locks serializes transactions touching the same accounts.
	locks *xsync.MapOf[core.Address, *sync.Mutex]
}

type Options struct {
	clock Clock
	rent  Rent
}

type Option func(o *Options)

func WithClock(c Clock) Option {
	return func(o *Options) {
		o.clock = c
	}
}

func WithRent(r Rent) Option {
	return func(o *Options) {
		o.rent = r
	}
}

func NewRuntime(logger *zap.Logger, store Store, opts ...Option) *Runtime {
	o := &Options{
		clock: SystemClock{},
		rent:  DefaultRent,
	}
	for i := range opts {
		opts[i](o)
	}
	r := &Runtime{
		logger:    logger,
		store:     store,
		clock:     o.clock,
		rent:      o.rent,
		tracer:    otel.Tracer("github.com/arnac-io/auctionescrow/pkg/ledger"),
		programs:  map[core.Address]Program{},
		observers: map[subscriberID]Observer{},
		currentID: 1,
		locks:     xsync.NewTypedMapOf[core.Address, *sync.Mutex](hashAddress),
	}
	r.programs[SystemProgramID] = systemProgram{}
	return r
}

func (r *Runtime) RegisterProgram(id core.Address, p Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[id] = p
}

func (r *Runtime) program(id core.Address) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

// Subscribe registers an observer and returns a function that removes it.
func (r *Runtime) Subscribe(fn Observer) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.currentID
	r.currentID += 1
	r.observers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

func (r *Runtime) publish(receipt Receipt) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fn := range r.observers {
		fn(receipt)
	}
}

func (r *Runtime) Now() int64 {
	return r.clock.Now()
}

func (r *Runtime) Rent() Rent {
	return r.rent
}

// Account reads committed state.
func (r *Runtime) Account(ctx context.Context, addr core.Address) (core.Account, error) {
	return r.store.Get(ctx, addr)
}

func (r *Runtime) Accounts(ctx context.Context) ([]core.Account, error) {
	return r.store.Accounts(ctx)
}

// lockAccounts acquires the locks of all addresses in a fixed order.
func (r *Runtime) lockAccounts(addrs []core.Address) func() {
	sorted := slices.Clone(addrs)
	slices.SortFunc(sorted, func(a, b core.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	sorted = slices.Compact(sorted)
	held := make([]*sync.Mutex, 0, len(sorted))
	for _, a := range sorted {
		// the default address stands for "nobody" and is never written
		if core.IsDefault(a) {
			continue
		}
		m, _ := r.locks.LoadOrStore(a, &sync.Mutex{})
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Submit executes the transaction. Either every instruction succeeds and all account
// changes are committed together, or nothing is written.
func (r *Runtime) Submit(ctx context.Context, txn *Transaction) (*Receipt, error) {
	ctx, span := r.tracer.Start(ctx, "ledger.Submit",
		trace.WithAttributes(attribute.Int("instructions", len(txn.Instructions))))
	defer span.End()

	start := time.Now()
	receipt := &Receipt{
		ID:       uuid.New(),
		Accounts: txn.referencedAccounts(),
	}
	for _, ix := range txn.Instructions {
		receipt.Programs = append(receipt.Programs, ix.ProgramID)
	}
	err := r.execute(ctx, txn, receipt)

	result := "success"
	if err != nil {
		result = "failure"
		code := core.CodeOf(err)
		receipt.Err = &code
		receipt.Message = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, code.Name)
		r.logger.Info("transaction failed",
			zap.String("receipt", receipt.ID.String()),
			zap.String("code", code.Name),
			zap.Error(err))
		if isFatal(err) {
			programs := make([]string, 0, len(receipt.Programs))
			for _, p := range receipt.Programs {
				programs = append(programs, p.Hex())
			}
			sentry.ReportTransactionFailure(sentry.TransactionFailure{
				ReceiptID: receipt.ID.String(),
				Code:      code.Name,
				Message:   err.Error(),
				Programs:  programs,
			})
		}
	} else {
		receipt.Success = true
	}
	transactionsCounterVec.WithLabelValues(result).Inc()
	submitTimeHistogramVec.WithLabelValues(result).Observe(time.Since(start).Seconds())
	r.publish(*receipt)
	if err != nil {
		return receipt, err
	}
	return receipt, nil
}

func isFatal(err error) bool {
	return errors.Is(err, core.ArithmeticOverflow) ||
		errors.Is(err, core.UnbalancedTransaction) ||
		errors.Is(err, core.AmountOverflow)
}

func (r *Runtime) execute(ctx context.Context, txn *Transaction, receipt *Receipt) error {
	if len(txn.Instructions) == 0 {
		return errors.Wrap(core.InvalidArgument, "empty transaction")
	}
	signers, err := txn.verifySignatures()
	if err != nil {
		return err
	}
	for s := range signers {
		receipt.Signers = append(receipt.Signers, s)
	}

	unlock := r.lockAccounts(receipt.Accounts)
	defer unlock()

	receipt.Time = r.clock.Now()
	tx := newTx(ctx, r.store)
	for i, ix := range txn.Instructions {
		p, ok := r.program(ix.ProgramID)
		if !ok {
			return errors.Wrapf(core.IncorrectProgramID, "instruction %d: unknown program %v", i, ix.ProgramID.Hex())
		}
		inv := newInvocation(ctx, r.logger, tx, ix, signers, receipt.Time, r.rent, &receipt.Logs)
		if err := p.Process(ctx, inv, ix.Data); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	if err := tx.checkBalance(); err != nil {
		return err
	}
	changes := tx.changes()
	if err := r.store.Apply(ctx, changes); err != nil {
		return errors.Wrap(err, "commit")
	}
	for _, c := range changes {
		receipt.Written = append(receipt.Written, c.Address)
	}
	return nil
}

// Airdrop credits lamports to addr out of thin air. It exists for local networks and tests.
func (r *Runtime) Airdrop(ctx context.Context, addr core.Address, lamports uint64) error {
	if core.IsDefault(addr) {
		return errors.Wrap(core.ReadonlyAccount, "airdrop to the default address")
	}
	unlock := r.lockAccounts([]core.Address{addr})
	defer unlock()
	acc, err := r.store.Get(ctx, addr)
	switch {
	case errors.Is(err, core.ErrEntityNotFound):
		acc = core.Account{Address: addr, Owner: SystemProgramID}
	case err != nil:
		return err
	}
	sum, carry := bits.Add64(acc.Lamports, lamports, 0)
	if carry != 0 {
		return core.ArithmeticOverflow
	}
	acc.Lamports = sum
	return r.store.Apply(ctx, []core.Account{acc})
}
