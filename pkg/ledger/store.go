package ledger

import (
	"bytes"
	"context"
	"hash/maphash"
	"sync"

	"github.com/puzpuzpuz/xsync/v2"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/auctionescrow/pkg/core"
)

// Store persists ledger accounts.
type Store interface {
	// Get returns core.ErrEntityNotFound for accounts that do not exist.
	Get(ctx context.Context, addr core.Address) (core.Account, error)
	// Apply writes all changes atomically. Accounts without lamports are deleted.
	Apply(ctx context.Context, changes []core.Account) error
	// Accounts returns every stored account ordered by address.
	Accounts(ctx context.Context) ([]core.Account, error)
}

func hashAddress(seed maphash.Seed, a core.Address) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.Write(a[:])
	return h.Sum64()
}

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	// mu makes Apply and Accounts see whole commits. Get is lock-free.
	mu       sync.RWMutex
	accounts *xsync.MapOf[core.Address, core.Account]
}

func NewMemoryStore(preload ...core.Account) *MemoryStore {
	s := &MemoryStore{
		accounts: xsync.NewTypedMapOf[core.Address, core.Account](hashAddress),
	}
	for _, a := range preload {
		s.accounts.Store(a.Address, a.Clone())
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, addr core.Address) (core.Account, error) {
	acc, ok := s.accounts.Load(addr)
	if !ok {
		return core.Account{}, core.ErrEntityNotFound
	}
	return acc.Clone(), nil
}

func (s *MemoryStore) Apply(ctx context.Context, changes []core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range changes {
		if a.Closed() {
			s.accounts.Delete(a.Address)
			continue
		}
		s.accounts.Store(a.Address, a.Clone())
	}
	return nil
}

func (s *MemoryStore) Accounts(ctx context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]core.Account, 0, s.accounts.Size())
	s.accounts.Range(func(_ core.Address, a core.Account) bool {
		res = append(res, a.Clone())
		return true
	})
	slices.SortFunc(res, func(a, b core.Account) int {
		return bytes.Compare(a.Address[:], b.Address[:])
	})
	return res, nil
}
