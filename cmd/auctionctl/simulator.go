package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/client"
	"github.com/arnac-io/auctionescrow/pkg/api/i18n"
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

const (
	defaultLamports = 10_000_000_000
	minterLamports  = 100_000_000_000
)

type actor struct {
	name     string
	key      client.Keypair
	holdings map[string]core.Address
}

type exhibit struct {
	name      string
	address   core.Address
	exhibitor string
	asset     string
	payment   string
}

// Simulator runs a scenario against an in-process runtime driven by a manual clock.
type Simulator struct {
	logger  *zap.Logger
	out     io.Writer
	runtime *ledger.Runtime
	clock   *ledger.ManualClock
	client  *client.Client

	minter   client.Keypair
	mints    map[string]core.Address
	decimals map[string]uint8
	actors   map[string]*actor
	exhibits map[string]*exhibit
	order    []string
}

func NewSimulator(logger *zap.Logger, out io.Writer, start int64) *Simulator {
	clock := ledger.NewManualClock(start)
	runtime := ledger.NewRuntime(logger, ledger.NewMemoryStore(), ledger.WithClock(clock))
	runtime.RegisterProgram(token.ProgramID, token.NewProgram())
	runtime.RegisterProgram(escrow.ProgramID, escrow.NewProcessor(logger, token.Service{}))
	return &Simulator{
		logger:   logger,
		out:      out,
		runtime:  runtime,
		clock:    clock,
		client:   client.New(runtime, client.WithLogger(logger), client.WithBidAttempts(3, 0)),
		minter:   keypairOf("minter"),
		mints:    map[string]core.Address{},
		decimals: map[string]uint8{},
		actors:   map[string]*actor{},
		exhibits: map[string]*exhibit{},
	}
}

// keypairOf derives a stable key from a name so runs are reproducible.
func keypairOf(name string) client.Keypair {
	seed := sha256.Sum256([]byte("auctionctl/" + name))
	return client.KeypairFromSeed(seed[:])
}

func (s *Simulator) setup(ctx context.Context, sc *Scenario) error {
	if err := s.runtime.Airdrop(ctx, s.minter.Address(), minterLamports); err != nil {
		return errors.Wrap(err, "fund minter")
	}
	for name, m := range sc.Mints {
		addr, err := s.client.CreateMint(ctx, s.minter, s.minter.Address(), m.Decimals)
		if err != nil {
			return errors.Wrapf(err, "mint %v", name)
		}
		s.mints[name] = addr
		s.decimals[name] = m.Decimals
	}
	for _, a := range sc.Actors {
		act := &actor{name: a.Name, key: keypairOf(a.Name), holdings: map[string]core.Address{}}
		s.actors[a.Name] = act
		lamports := a.Lamports
		if lamports == 0 {
			lamports = defaultLamports
		}
		if err := s.runtime.Airdrop(ctx, act.key.Address(), lamports); err != nil {
			return errors.Wrapf(err, "fund %v", a.Name)
		}
		for mint, amount := range a.Tokens {
			holding, err := s.holding(ctx, a.Name, mint)
			if err != nil {
				return err
			}
			if err := s.client.MintTo(ctx, s.minter, s.mints[mint], holding, amount); err != nil {
				return errors.Wrapf(err, "mint %v to %v", mint, a.Name)
			}
		}
	}
	return nil
}

func (s *Simulator) actor(name string) (*actor, error) {
	a, ok := s.actors[name]
	if !ok {
		return nil, errors.Errorf("unknown actor %q", name)
	}
	return a, nil
}

func (s *Simulator) exhibit(name string) (*exhibit, error) {
	e, ok := s.exhibits[name]
	if !ok {
		return nil, errors.Errorf("unknown auction %q", name)
	}
	return e, nil
}

// holding returns the actor's holding of mint, creating an empty one on first use.
func (s *Simulator) holding(ctx context.Context, actorName, mint string) (core.Address, error) {
	a, err := s.actor(actorName)
	if err != nil {
		return core.Address{}, err
	}
	if h, ok := a.holdings[mint]; ok {
		return h, nil
	}
	h, err := s.client.CreateTokenAccount(ctx, a.key, s.mints[mint], a.key.Address())
	if err != nil {
		return core.Address{}, errors.Wrapf(err, "%v holding of %v", mint, actorName)
	}
	a.holdings[mint] = h
	return h, nil
}

// Run executes every step and stops at the first one whose outcome differs from its expectation.
func (s *Simulator) Run(ctx context.Context, sc *Scenario) error {
	if err := s.setup(ctx, sc); err != nil {
		return errors.Wrap(err, "setup")
	}
	for i, step := range sc.Steps {
		err := s.step(ctx, step)
		outcome := "ok"
		if err != nil {
			outcome = core.CodeOf(err).Name
		}
		fmt.Fprintf(s.out, "step %d: %v -> %v\n", i+1, step.kind(), outcome)
		if err := expectation(step, err); err != nil {
			return errors.Wrapf(err, "step %d", i+1)
		}
		if err := s.printAuctions(ctx); err != nil {
			return err
		}
		if err := checkInvariants(ctx, s.runtime, escrow.ProgramID); err != nil {
			return errors.Wrapf(err, "step %d", i+1)
		}
	}
	return nil
}

func expectation(step Step, err error) error {
	switch {
	case step.Expect == "" && err != nil:
		return errors.Wrap(err, step.kind())
	case step.Expect != "" && err == nil:
		return errors.Errorf("%v succeeded, expected %v", step.kind(), step.Expect)
	case step.Expect != "":
		if got := core.CodeOf(err).Name; got != step.Expect {
			return errors.Errorf("%v failed with %v, expected %v", step.kind(), got, step.Expect)
		}
	}
	return nil
}

func (s *Simulator) step(ctx context.Context, step Step) error {
	switch {
	case step.Open != nil:
		return s.open(ctx, step.Open)
	case step.Bid != nil:
		return s.bid(ctx, step.Bid)
	case step.Race != nil:
		return s.race(ctx, step.Race)
	case step.Cancel != nil:
		return s.cancel(ctx, step.Cancel)
	case step.Settle != nil:
		return s.settle(ctx, step.Settle)
	case step.Advance != 0:
		s.clock.Advance(step.Advance)
		return nil
	}
	return errors.New("empty step")
}

func (s *Simulator) open(ctx context.Context, o *OpenStep) error {
	if _, ok := s.exhibits[o.As]; ok {
		return errors.Errorf("auction %q already exists", o.As)
	}
	exhibitor, err := s.actor(o.Exhibitor)
	if err != nil {
		return err
	}
	asset, err := s.holding(ctx, o.Exhibitor, o.Asset)
	if err != nil {
		return err
	}
	dest, err := s.holding(ctx, o.Exhibitor, o.Payment)
	if err != nil {
		return err
	}
	ex, err := s.client.Open(ctx, exhibitor.key, client.OpenParams{
		Asset:              asset,
		PaymentDestination: dest,
		InitialPrice:       o.Price,
		Duration:           o.Duration,
	})
	if err != nil {
		return err
	}
	s.exhibits[o.As] = &exhibit{
		name:      o.As,
		address:   ex.Auction,
		exhibitor: o.Exhibitor,
		asset:     o.Asset,
		payment:   o.Payment,
	}
	s.order = append(s.order, o.As)
	return nil
}

func (s *Simulator) bid(ctx context.Context, b *BidStep) error {
	ex, err := s.exhibit(b.Auction)
	if err != nil {
		return err
	}
	bidder, err := s.actor(b.Bidder)
	if err != nil {
		return err
	}
	source, err := s.holding(ctx, b.Bidder, ex.payment)
	if err != nil {
		return err
	}
	_, err = s.client.Bid(ctx, bidder.key, ex.address, source, b.Price)
	return err
}

// race submits the bids concurrently. It fails only when no bid got through.
func (s *Simulator) race(ctx context.Context, r *RaceStep) error {
	ex, err := s.exhibit(r.Auction)
	if err != nil {
		return err
	}
	// holdings are created up front so the racing goroutines only touch the ledger.
	for _, b := range r.Bids {
		if _, err := s.holding(ctx, b.Bidder, ex.payment); err != nil {
			return err
		}
	}
	results := iter.Map(r.Bids, func(b *BidStep) error {
		bidder := s.actors[b.Bidder]
		_, err := s.client.Bid(ctx, bidder.key, ex.address, bidder.holdings[ex.payment], b.Price)
		return err
	})
	var last error
	won := 0
	for i, err := range results {
		outcome := "ok"
		if err != nil {
			outcome = core.CodeOf(err).Name
			last = err
		} else {
			won++
		}
		fmt.Fprintf(s.out, "  %v bids %v -> %v\n", r.Bids[i].Bidder, r.Bids[i].Price, outcome)
	}
	if won == 0 {
		return last
	}
	return nil
}

func (s *Simulator) cancel(ctx context.Context, c *CancelStep) error {
	ex, err := s.exhibit(c.Auction)
	if err != nil {
		return err
	}
	exhibitor, err := s.actor(c.Exhibitor)
	if err != nil {
		return err
	}
	assetReturn, err := s.holding(ctx, c.Exhibitor, ex.asset)
	if err != nil {
		return err
	}
	return s.client.Cancel(ctx, exhibitor.key, ex.address, assetReturn)
}

func (s *Simulator) settle(ctx context.Context, st *SettleStep) error {
	ex, err := s.exhibit(st.Auction)
	if err != nil {
		return err
	}
	bidder, err := s.actor(st.Bidder)
	if err != nil {
		return err
	}
	receiving, err := s.holding(ctx, st.Bidder, ex.asset)
	if err != nil {
		return err
	}
	return s.client.Settle(ctx, bidder.key, ex.address, receiving)
}

func (s *Simulator) actorName(addr core.Address) string {
	if core.IsDefault(addr) {
		return "-"
	}
	for name, a := range s.actors {
		if a.key.Address() == addr {
			return name
		}
	}
	return addr.Hex()
}

func (s *Simulator) printAuctions(ctx context.Context) error {
	if len(s.order) == 0 {
		return nil
	}
	now := s.clock.Now()
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  AUCTION\tSTATUS\tPRICE\tBIDDER\tENDS IN")
	for _, name := range s.order {
		ex := s.exhibits[name]
		a, err := s.client.FetchAuction(ctx, ex.address)
		if errors.Is(err, core.ErrEntityNotFound) {
			fmt.Fprintf(w, "  %v\tclosed\t-\t-\t-\n", name)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "auction %v", name)
		}
		status, endsIn := "active", "-"
		switch {
		case a.Active(now):
			endsIn = (time.Duration(a.EndAt-now) * time.Second).String()
		case a.HasBidder():
			status = "ended"
		default:
			status = "expired"
		}
		fmt.Fprintf(w, "  %v\t%v\t%v\t%v\t%v\n",
			name, status, i18n.FormatAmount(a.Price, s.decimals[ex.payment]), s.actorName(a.HighestBidder), endsIn)
	}
	return w.Flush()
}
