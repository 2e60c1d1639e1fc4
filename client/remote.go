package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/wire"
)

// Remote talks to the HTTP API of an auctiond instance.
type Remote struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

var _ Ledger = (*Remote)(nil)

func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	o := &RemoteOptions{httpClient: http.DefaultClient}
	for i := range opts {
		opts[i](o)
	}
	return &Remote{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: o.httpClient,
		apiKey:     o.apiKey,
	}
}

func (r *Remote) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.apiKey))
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

func errorMessage(raw []byte) string {
	var msg string
	_ = jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		s, err := d.Str()
		msg = s
		return err
	})
	if msg == "" {
		return string(raw)
	}
	return msg
}

// Submit sends a signed transaction. A rejected transaction returns its receipt and the typed error.
func (r *Remote) Submit(ctx context.Context, txn *ledger.Transaction) (*ledger.Receipt, error) {
	var e jx.Encoder
	wire.EncodeTransaction(&e, txn)
	status, raw, err := r.do(ctx, http.MethodPost, "/v2/transactions", e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "submit")
	}
	if status != http.StatusOK && status != http.StatusUnprocessableEntity {
		return nil, errors.Errorf("submit: status %d: %s", status, errorMessage(raw))
	}
	receipt, err := wire.DecodeReceipt(jx.DecodeBytes(raw))
	if err != nil {
		return nil, err
	}
	if err := wire.Err(receipt); err != nil {
		return &receipt, err
	}
	return &receipt, nil
}

func (r *Remote) Account(ctx context.Context, addr core.Address) (core.Account, error) {
	status, raw, err := r.do(ctx, http.MethodGet, "/v2/accounts/"+addr.Hex(), nil)
	if err != nil {
		return core.Account{}, errors.Wrap(err, "get account")
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return core.Account{}, core.ErrEntityNotFound
	default:
		return core.Account{}, errors.Errorf("get account: status %d: %s", status, errorMessage(raw))
	}
	var acc core.Account
	found := false
	err = jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		if key != "account" {
			return d.Skip()
		}
		found = true
		var err error
		acc, err = wire.DecodeAccount(d)
		return err
	})
	if err != nil {
		return core.Account{}, err
	}
	if !found {
		return core.Account{}, errors.New("get account: no account in response")
	}
	return acc, nil
}
