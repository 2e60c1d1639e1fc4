package escrow

import (
	"github.com/go-faster/errors"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
)

// OpenAccounts are the accounts of an Open instruction in wire order.
type OpenAccounts struct {
	Exhibitor core.Address
	// ExhibitorAsset holds the NFT before the auction starts.
	ExhibitorAsset core.Address
	// AssetHolding is an empty holding of the NFT mint owned by the exhibitor.
	// The escrow takes it over.
	AssetHolding       core.Address
	PaymentDestination core.Address
	Auction            core.Address
}

type BidAccounts struct {
	Bidder               core.Address
	HighestBidder        core.Address
	HighestBidderHolding core.Address
	HighestBidderRefund  core.Address
	// BidderHolding receives the bid and is handed over to the escrow.
	BidderHolding core.Address
	// BidderPaymentSource funds the bid and gets the refund when the bid is beaten.
	BidderPaymentSource core.Address
	Auction             core.Address
	// PaymentDestination must match the auction record.
	PaymentDestination core.Address
}

type CancelAccounts struct {
	Exhibitor    core.Address
	AssetHolding core.Address
	AssetReturn  core.Address
	Auction      core.Address
}

type SettleAccounts struct {
	Bidder               core.Address
	Exhibitor            core.Address
	AssetHolding         core.Address
	PaymentDestination   core.Address
	BidderHolding        core.Address
	BidderAssetReceiving core.Address
	Auction              core.Address
}

func addresses(metas []ledger.AccountMeta, n int) ([]core.Address, error) {
	if len(metas) < n {
		return nil, errors.Wrapf(core.NotEnoughAccountKeys, "need %d accounts, got %d", n, len(metas))
	}
	res := make([]core.Address, n)
	for i := range res {
		res[i] = metas[i].Address
	}
	return res, nil
}

func OpenAccountsFromMetas(metas []ledger.AccountMeta) (OpenAccounts, error) {
	a, err := addresses(metas, 5)
	if err != nil {
		return OpenAccounts{}, err
	}
	return OpenAccounts{
		Exhibitor:          a[0],
		ExhibitorAsset:     a[1],
		AssetHolding:       a[2],
		PaymentDestination: a[3],
		Auction:            a[4],
	}, nil
}

func (a OpenAccounts) Metas() []ledger.AccountMeta {
	return []ledger.AccountMeta{
		ledger.Writable(a.Exhibitor, true),
		ledger.Writable(a.ExhibitorAsset, false),
		ledger.Writable(a.AssetHolding, false),
		ledger.Readonly(a.PaymentDestination, false),
		ledger.Writable(a.Auction, false),
	}
}

// outbidMeta marks the previous bidder's accounts writable. On a first bid they are the
// default address, which nothing writes.
func outbidMeta(a core.Address) ledger.AccountMeta {
	if core.IsDefault(a) {
		return ledger.Readonly(a, false)
	}
	return ledger.Writable(a, false)
}

func BidAccountsFromMetas(metas []ledger.AccountMeta) (BidAccounts, error) {
	a, err := addresses(metas, 8)
	if err != nil {
		return BidAccounts{}, err
	}
	return BidAccounts{
		Bidder:               a[0],
		HighestBidder:        a[1],
		HighestBidderHolding: a[2],
		HighestBidderRefund:  a[3],
		BidderHolding:        a[4],
		BidderPaymentSource:  a[5],
		Auction:              a[6],
		PaymentDestination:   a[7],
	}, nil
}

func (a BidAccounts) Metas() []ledger.AccountMeta {
	return []ledger.AccountMeta{
		ledger.Writable(a.Bidder, true),
		outbidMeta(a.HighestBidder),
		outbidMeta(a.HighestBidderHolding),
		outbidMeta(a.HighestBidderRefund),
		ledger.Writable(a.BidderHolding, false),
		ledger.Writable(a.BidderPaymentSource, false),
		ledger.Writable(a.Auction, false),
		ledger.Readonly(a.PaymentDestination, false),
	}
}

func CancelAccountsFromMetas(metas []ledger.AccountMeta) (CancelAccounts, error) {
	a, err := addresses(metas, 4)
	if err != nil {
		return CancelAccounts{}, err
	}
	return CancelAccounts{
		Exhibitor:    a[0],
		AssetHolding: a[1],
		AssetReturn:  a[2],
		Auction:      a[3],
	}, nil
}

func (a CancelAccounts) Metas() []ledger.AccountMeta {
	return []ledger.AccountMeta{
		ledger.Writable(a.Exhibitor, true),
		ledger.Writable(a.AssetHolding, false),
		ledger.Writable(a.AssetReturn, false),
		ledger.Writable(a.Auction, false),
	}
}

func SettleAccountsFromMetas(metas []ledger.AccountMeta) (SettleAccounts, error) {
	a, err := addresses(metas, 7)
	if err != nil {
		return SettleAccounts{}, err
	}
	return SettleAccounts{
		Bidder:               a[0],
		Exhibitor:            a[1],
		AssetHolding:         a[2],
		PaymentDestination:   a[3],
		BidderHolding:        a[4],
		BidderAssetReceiving: a[5],
		Auction:              a[6],
	}, nil
}

func (a SettleAccounts) Metas() []ledger.AccountMeta {
	return []ledger.AccountMeta{
		ledger.Writable(a.Bidder, true),
		ledger.Writable(a.Exhibitor, false),
		ledger.Writable(a.AssetHolding, false),
		ledger.Writable(a.PaymentDestination, false),
		ledger.Writable(a.BidderHolding, false),
		ledger.Writable(a.BidderAssetReceiving, false),
		ledger.Writable(a.Auction, false),
	}
}

func OpenInstruction(programID core.Address, accounts OpenAccounts, cmd OpenCommand) ledger.Instruction {
	return ledger.Instruction{ProgramID: programID, Accounts: accounts.Metas(), Data: cmd.Encode()}
}

func BidInstruction(programID core.Address, accounts BidAccounts, price uint64) ledger.Instruction {
	return ledger.Instruction{ProgramID: programID, Accounts: accounts.Metas(), Data: BidCommand{Price: price}.Encode()}
}

func CancelInstruction(programID core.Address, accounts CancelAccounts) ledger.Instruction {
	return ledger.Instruction{ProgramID: programID, Accounts: accounts.Metas(), Data: CancelCommand{}.Encode()}
}

func SettleInstruction(programID core.Address, accounts SettleAccounts) ledger.Instruction {
	return ledger.Instruction{ProgramID: programID, Accounts: accounts.Metas(), Data: SettleCommand{}.Encode()}
}
