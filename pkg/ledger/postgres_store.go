package ledger

import (
	"context"
	"math"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

const accountsSchema = `
	CREATE TABLE IF NOT EXISTS ledger_accounts (
		address    BYTEA PRIMARY KEY,
		lamports   BIGINT NOT NULL,
		owner      BYTEA NOT NULL,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

// PostgresStore keeps accounts in a PostgreSQL table.
type PostgresStore struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

// NewPostgresStore connects to dsn and makes sure the accounts table exists.
func NewPostgresStore(ctx context.Context, logger *zap.Logger, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres config")
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect to postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	if _, err := pool.Exec(ctx, accountsSchema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "create accounts table")
	}
	return &PostgresStore{logger: logger, pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanAccount(row pgx.Row) (core.Account, error) {
	var (
		address, owner, data []byte
		lamports             int64
	)
	if err := row.Scan(&address, &lamports, &owner, &data); err != nil {
		return core.Account{}, err
	}
	acc := core.Account{Lamports: uint64(lamports), Data: data}
	copy(acc.Address[:], address)
	copy(acc.Owner[:], owner)
	return acc, nil
}

func (s *PostgresStore) Get(ctx context.Context, addr core.Address) (core.Account, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT address, lamports, owner, data FROM ledger_accounts WHERE address = $1", addr[:])
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Account{}, core.ErrEntityNotFound
	}
	if err != nil {
		return core.Account{}, errors.Wrapf(err, "get account %v", addr.Hex())
	}
	return acc, nil
}

func (s *PostgresStore) Apply(ctx context.Context, changes []core.Account) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Error("rollback failed", zap.Error(err))
		}
	}()
	const upsert = `
		INSERT INTO ledger_accounts (address, lamports, owner, data, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (address) DO UPDATE SET
			lamports   = EXCLUDED.lamports,
			owner      = EXCLUDED.owner,
			data       = EXCLUDED.data,
			updated_at = NOW()`
	for _, a := range changes {
		if a.Closed() {
			if _, err := tx.Exec(ctx, "DELETE FROM ledger_accounts WHERE address = $1", a.Address[:]); err != nil {
				return errors.Wrapf(err, "delete account %v", a.Address.Hex())
			}
			continue
		}
		if a.Lamports > math.MaxInt64 {
			return errors.Wrapf(core.ArithmeticOverflow, "lamports of %v", a.Address.Hex())
		}
		data := a.Data
		if data == nil {
			data = []byte{}
		}
		if _, err := tx.Exec(ctx, upsert, a.Address[:], int64(a.Lamports), a.Owner[:], data); err != nil {
			return errors.Wrapf(err, "upsert account %v", a.Address.Hex())
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func (s *PostgresStore) Accounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.pool.Query(ctx, "SELECT address, lamports, owner, data FROM ledger_accounts ORDER BY address")
	if err != nil {
		return nil, errors.Wrap(err, "query accounts")
	}
	defer rows.Close()
	var res []core.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan account")
		}
		res = append(res, acc)
	}
	return res, rows.Err()
}
