package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/app/services/node/handlers"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/genesis"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/peer"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/state"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/storage/memory"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/events"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

var (
	bob   = common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	miner = common.HexToAddress("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
)

type node struct {
	state   *state.State
	public  http.Handler
	private http.Handler
}

func newNode(t *testing.T) node {
	pk, err := crypto.HexToECDSA(pkHexKey)
	require.NoError(t, err)

	strg, err := memory.New()
	require.NoError(t, err)

	st, err := state.New(state.Config{
		Miner: miner,
		Genesis: genesis.Genesis{
			Date:          time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
			TransPerBlock: 10,
			Difficulty:    math.MaxUint64,
			MiningReward:  700,
			Balances:      map[string]uint64{database.PublicKeyToAddress(pk.PublicKey).Hex(): 1_000},
		},
		Storage: strg,
	})
	require.NoError(t, err)

	ns, err := nameservice.New(t.TempDir())
	require.NoError(t, err)

	cfg := handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		NS:       ns,
		Evts:     events.New(),
	}

	return node{
		state:   st,
		public:  handlers.PublicMux(cfg),
		private: handlers.PrivateMux(cfg),
	}
}

func call(t *testing.T, h http.Handler, method string, path string, body any, out any) int {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(w.Body).Decode(out))
	}

	return w.Code
}

func transfer(t *testing.T, nonce uint64) database.Tx {
	pk, err := crypto.HexToECDSA(pkHexKey)
	require.NoError(t, err)

	tx, err := database.NewTxBuilder().
		To(bob).
		Value(uint256.NewInt(10)).
		GasPrice(uint256.NewInt(1)).
		GasLimit(21).
		Nonce(nonce).
		Sign(pk)
	require.NoError(t, err)

	return tx
}

func TestSubmitAndQuery(t *testing.T) {
	n := newNode(t)
	tx := transfer(t, 0)

	var submitted struct {
		Hash common.Hash `json:"hash"`
	}
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodPost, "/v1/tx/submit", tx, &submitted))
	require.Equal(t, tx.Hash(), submitted.Hash)

	require.Equal(t, http.StatusBadRequest, call(t, n.public, http.MethodPost, "/v1/tx/submit", tx, nil))

	var pending []struct {
		Hash common.Hash `json:"hash"`
	}
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/tx/uncommitted/list", nil, &pending))
	require.Len(t, pending, 1)

	require.Equal(t, "pending", receiptStatus(t, n, tx.Hash()))

	_, err := n.state.MineNewBlock(context.Background())
	require.NoError(t, err)

	require.Equal(t, "confirmed", receiptStatus(t, n, tx.Hash()))

	var balance struct {
		Balance string `json:"balance"`
	}
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/balances/"+bob.Hex(), nil, &balance))
	require.Equal(t, "10", balance.Balance)

	var head struct {
		Height uint64      `json:"height"`
		Hash   common.Hash `json:"hash"`
	}
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/blocks/head", nil, &head))
	require.Equal(t, uint64(1), head.Height)
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/blocks/hash/"+head.Hash.Hex(), nil, nil))

	require.Equal(t, http.StatusNotFound, call(t, n.public, http.MethodGet, "/v1/accounts/"+common.Address{9}.Hex(), nil, nil))
	require.Equal(t, http.StatusBadRequest, call(t, n.public, http.MethodGet, "/v1/accounts/bob", nil, nil))
	require.Equal(t, http.StatusBadRequest, call(t, n.public, http.MethodGet, "/v1/blocks/list/5/1", nil, nil))
}

func TestProposeBlock(t *testing.T) {
	node1 := newNode(t)
	node2 := newNode(t)

	tx := transfer(t, 0)
	require.NoError(t, node1.state.SubmitTransaction(tx))

	block, err := node1.state.MineNewBlock(context.Background())
	require.NoError(t, err)

	var blocks []database.BlockData
	require.Equal(t, http.StatusOK, call(t, node1.private, http.MethodGet, "/v1/node/block/list/1/latest", nil, &blocks))
	require.Len(t, blocks, 1)
	require.Equal(t, block.Hash(), blocks[0].Hash)

	require.Equal(t, http.StatusOK, call(t, node2.private, http.MethodPost, "/v1/node/block/propose", blocks[0], nil))
	require.Equal(t, http.StatusNotAcceptable, call(t, node2.private, http.MethodPost, "/v1/node/block/propose", blocks[0], nil))

	root1, err := node1.state.QueryStateRoot()
	require.NoError(t, err)

	var status struct {
		LatestBlockNumber uint64      `json:"latest_block_number"`
		StateRoot         common.Hash `json:"state_root"`
	}
	require.Equal(t, http.StatusOK, call(t, node2.private, http.MethodGet, "/v1/node/status", nil, &status))
	require.Equal(t, uint64(1), status.LatestBlockNumber)
	require.Equal(t, root1, status.StateRoot)
}

func receiptStatus(t *testing.T, n node, hash common.Hash) string {
	var receipt struct {
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusOK, call(t, n.public, http.MethodGet, "/v1/tx/receipt/"+hash.Hex(), nil, &receipt))
	return receipt.Status
}

func TestPeerSync(t *testing.T) {
	node1 := newNode(t)
	node2 := newNode(t)

	srv := httptest.NewServer(node1.private)
	defer srv.Close()

	pr := peer.New(strings.TrimPrefix(srv.URL, "http://"))
	require.True(t, node2.state.AddKnownPeer(pr))

	require.NoError(t, node1.state.SubmitTransaction(transfer(t, 0)))
	_, err := node1.state.MineNewBlock(context.Background())
	require.NoError(t, err)

	pending := transfer(t, 1)
	require.NoError(t, node1.state.SubmitTransaction(pending))

	status, err := node2.state.NetRequestPeerStatus(pr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), status.LatestBlockNumber)
	require.Equal(t, 1, status.Mempool)

	require.NoError(t, node2.state.NetRequestPeerBlocks(pr))
	require.Equal(t, node1.state.QueryLatestBlock().Hash(), node2.state.QueryLatestBlock().Hash())

	pool, err := node2.state.NetRequestPeerMempool(pr)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	require.Equal(t, pending.Hash(), pool[0].Hash())

	// Sending a block the peer already has is reported back.
	require.Error(t, node2.state.NetSendBlockToPeers(node2.state.QueryLatestBlock()))
}
