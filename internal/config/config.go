package config

import (
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
)

type Config struct {
	API struct {
		Port            int               `env:"PORT" envDefault:"8081"`
		SubmitRateLimit uint64            `env:"SUBMIT_RATE_LIMIT" envDefault:"100"`
		BulkLimits      int               `env:"BULK_LIMITS" envDefault:"100"`
		APIKeys         map[string]string `env:"API_KEYS"`
	}
	App struct {
		LogLevel         string        `env:"LOG_LEVEL" envDefault:"INFO"`
		MetricsPort      int           `env:"METRICS_PORT" envDefault:"9010"`
		ReceiptTTL       time.Duration `env:"RECEIPT_TTL" envDefault:"1h"`
		AuctionCacheSize int           `env:"AUCTION_CACHE_SIZE" envDefault:"10000"`
		StreamQueueSize  int           `env:"STREAM_QUEUE_SIZE" envDefault:"1024"`
	}
	Ledger struct {
		// Store is either "memory" or "postgres".
		Store            string       `env:"LEDGER_STORE" envDefault:"memory"`
		PostgresDSN      string       `env:"POSTGRES_DSN"`
		PostgresMaxConns int32        `env:"POSTGRES_MAX_CONNS" envDefault:"8"`
		EscrowProgramID  core.Address `env:"ESCROW_PROGRAM_ID"`
		// Faucet accounts are funded with FaucetLamports on start.
		Faucet         addressList `env:"FAUCET_ACCOUNTS"`
		FaucetLamports uint64      `env:"FAUCET_LAMPORTS" envDefault:"100000000000"`
	}
}

type addressList []core.Address

func parseAddress(v string) (interface{}, error) {
	a, err := core.ParseAddress(strings.TrimSpace(v))
	if err != nil {
		return nil, errors.Wrapf(err, "address %q", v)
	}
	return a, nil
}

var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(core.Address{}): parseAddress,
	reflect.TypeOf(addressList{}): func(v string) (interface{}, error) {
		var list addressList
		for _, s := range strings.Split(v, ",") {
			a, err := parseAddress(s)
			if err != nil {
				return nil, err
			}
			list = append(list, a.(core.Address))
		}
		return list, nil
	},
}

// Parse reads the configuration from the environment.
func Parse() (Config, error) {
	var c Config
	if err := env.ParseWithFuncs(&c, parsers); err != nil {
		return Config{}, err
	}
	if core.IsDefault(c.Ledger.EscrowProgramID) {
		c.Ledger.EscrowProgramID = escrow.ProgramID
	}
	switch c.Ledger.Store {
	case "memory":
	case "postgres":
		if c.Ledger.PostgresDSN == "" {
			return Config{}, errors.New("POSTGRES_DSN is required for the postgres store")
		}
	default:
		return Config{}, errors.Errorf("unknown LEDGER_STORE %q", c.Ledger.Store)
	}
	return c, nil
}

// Load reads an optional .env file and then the environment. It panics on invalid configuration.
func Load(dotenv ...string) Config {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Panicf("[‼️  Config parsing failed] %+v\n", err)
	}
	c, err := Parse()
	if err != nil {
		log.Panicf("[‼️  Config parsing failed] %+v\n", err)
	}
	return c
}
