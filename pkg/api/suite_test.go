package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/client"
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/escrow"
	"github.com/arnac-io/auctionescrow/pkg/ledger"
	"github.com/arnac-io/auctionescrow/pkg/pusher/sources"
	"github.com/arnac-io/auctionescrow/pkg/token"
)

type testServer struct {
	t          *testing.T
	ctx        context.Context
	runtime    *ledger.Runtime
	clock      *ledger.ManualClock
	dispatcher *sources.ReceiptDispatcher
	server     *httptest.Server
	remote     *client.Client
	minter     client.Keypair
	nftMint    core.Address
	payMint    core.Address
}

func newTestServer(t *testing.T, opts ...ServerOption) *testServer {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := ledger.NewManualClock(1_700_000_000)
	r := ledger.NewRuntime(zap.NewNop(), ledger.NewMemoryStore(), ledger.WithClock(clock))
	r.RegisterProgram(token.ProgramID, token.NewProgram())
	r.RegisterProgram(escrow.ProgramID, escrow.NewProcessor(zap.NewNop(), token.Service{}))

	h, err := NewHandler(zap.NewNop(), r)
	require.Nil(t, err)
	r.Subscribe(h.Observe)

	dispatcher := sources.NewReceiptDispatcher(zap.NewNop(), 100)
	go dispatcher.Run(ctx)
	r.Subscribe(dispatcher.Observe)

	opts = append([]ServerOption{WithReceiptSource(dispatcher)}, opts...)
	s, err := NewServer(zap.NewNop(), h, "", opts...)
	require.Nil(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	env := &testServer{
		t:          t,
		ctx:        ctx,
		runtime:    r,
		clock:      clock,
		dispatcher: dispatcher,
		server:     ts,
		remote:     client.New(client.NewRemote(ts.URL)),
	}
	return env
}

// withTokens creates the two mints through the API.
func (env *testServer) withTokens() *testServer {
	env.minter = env.funded()
	var err error
	env.nftMint, err = env.remote.CreateMint(env.ctx, env.minter, env.minter.Address(), 0)
	require.Nil(env.t, err)
	env.payMint, err = env.remote.CreateMint(env.ctx, env.minter, env.minter.Address(), 6)
	require.Nil(env.t, err)
	return env
}

func (env *testServer) funded() client.Keypair {
	k, err := client.NewKeypair()
	require.Nil(env.t, err)
	require.Nil(env.t, env.runtime.Airdrop(env.ctx, k.Address(), 100_000_000_000))
	return k
}

func (env *testServer) tokens(mint, owner core.Address, amount uint64) core.Address {
	acc, err := env.remote.CreateTokenAccount(env.ctx, env.minter, mint, owner)
	require.Nil(env.t, err)
	if amount > 0 {
		require.Nil(env.t, env.remote.MintTo(env.ctx, env.minter, mint, acc, amount))
	}
	return acc
}

type exhibitor struct {
	key     client.Keypair
	nft     core.Address
	payment core.Address
	exhibit client.Exhibit
}

func (env *testServer) open(price uint64, duration time.Duration) exhibitor {
	x := exhibitor{key: env.funded()}
	x.nft = env.tokens(env.nftMint, x.key.Address(), 1)
	x.payment = env.tokens(env.payMint, x.key.Address(), 0)
	var err error
	x.exhibit, err = env.remote.Open(env.ctx, x.key, client.OpenParams{
		Asset:              x.nft,
		PaymentDestination: x.payment,
		InitialPrice:       price,
		Duration:           duration,
	})
	require.Nil(env.t, err)
	return x
}

type response struct {
	status int
	body   map[string]any
}

func (env *testServer) request(method, path string, body string, header map[string]string) response {
	req, err := http.NewRequest(method, env.server.URL+path, strings.NewReader(body))
	require.Nil(env.t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.Nil(env.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.Nil(env.t, err)
	var decoded map[string]any
	require.Nil(env.t, json.Unmarshal(raw, &decoded), string(raw))
	return response{status: resp.StatusCode, body: decoded}
}

func (env *testServer) get(path string) response {
	return env.request(http.MethodGet, path, "", nil)
}
