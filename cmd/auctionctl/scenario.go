package main

import (
	"io"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run of the auction engine.
type Scenario struct {
	Name string `yaml:"name"`
	// Start is the unix time of the simulated clock.
	Start  int64           `yaml:"start"`
	Mints  map[string]Mint `yaml:"mints"`
	Actors []Actor         `yaml:"actors"`
	Steps  []Step          `yaml:"steps"`
}

type Mint struct {
	Decimals uint8 `yaml:"decimals"`
}

type Actor struct {
	Name     string            `yaml:"name"`
	Lamports uint64            `yaml:"lamports"`
	Tokens   map[string]uint64 `yaml:"tokens"`
}

// Step holds exactly one action. Expect names the error the action must fail with.
type Step struct {
	Open    *OpenStep     `yaml:"open,omitempty"`
	Bid     *BidStep      `yaml:"bid,omitempty"`
	Race    *RaceStep     `yaml:"race,omitempty"`
	Advance time.Duration `yaml:"advance,omitempty"`
	Cancel  *CancelStep   `yaml:"cancel,omitempty"`
	Settle  *SettleStep   `yaml:"settle,omitempty"`
	Expect  string        `yaml:"expect,omitempty"`
}

type OpenStep struct {
	As        string        `yaml:"as"`
	Exhibitor string        `yaml:"exhibitor"`
	Asset     string        `yaml:"asset"`
	Payment   string        `yaml:"payment"`
	Price     uint64        `yaml:"price"`
	Duration  time.Duration `yaml:"duration"`
}

type BidStep struct {
	Auction string `yaml:"auction"`
	Bidder  string `yaml:"bidder"`
	Price   uint64 `yaml:"price"`
}

// RaceStep submits all bids at once.
type RaceStep struct {
	Auction string    `yaml:"auction"`
	Bids    []BidStep `yaml:"bids"`
}

type CancelStep struct {
	Auction   string `yaml:"auction"`
	Exhibitor string `yaml:"exhibitor"`
}

type SettleStep struct {
	Auction string `yaml:"auction"`
	Bidder  string `yaml:"bidder"`
}

func (s Step) kind() string {
	switch {
	case s.Open != nil:
		return "open"
	case s.Bid != nil:
		return "bid"
	case s.Race != nil:
		return "race"
	case s.Cancel != nil:
		return "cancel"
	case s.Settle != nil:
		return "settle"
	case s.Advance != 0:
		return "advance"
	}
	return ""
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Open != nil, s.Bid != nil, s.Race != nil, s.Cancel != nil, s.Settle != nil, s.Advance != 0} {
		if set {
			n++
		}
	}
	return n
}

func LoadScenario(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	actors := map[string]struct{}{}
	for _, a := range s.Actors {
		if a.Name == "" {
			return errors.New("actor without a name")
		}
		if _, ok := actors[a.Name]; ok {
			return errors.Errorf("actor %q is declared twice", a.Name)
		}
		actors[a.Name] = struct{}{}
		for mint := range a.Tokens {
			if _, ok := s.Mints[mint]; !ok {
				return errors.Errorf("actor %q holds unknown mint %q", a.Name, mint)
			}
		}
	}
	for i, step := range s.Steps {
		if step.actions() != 1 {
			return errors.Errorf("step %d: exactly one action expected", i+1)
		}
		if step.Advance < 0 {
			return errors.Errorf("step %d: the clock only moves forward", i+1)
		}
		if o := step.Open; o != nil {
			if _, ok := s.Mints[o.Asset]; !ok {
				return errors.Errorf("step %d: unknown mint %q", i+1, o.Asset)
			}
			if _, ok := s.Mints[o.Payment]; !ok {
				return errors.Errorf("step %d: unknown mint %q", i+1, o.Payment)
			}
			if o.As == "" {
				return errors.Errorf("step %d: open needs a name for the auction", i+1)
			}
		}
	}
	return nil
}
