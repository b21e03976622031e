// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/business/web/errs"
	"github.com/ArthurBonsu/tinc-blockchain/business/web/validate"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/mempool"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/state"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/events"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/nameservice"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new signed wallet transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitTx
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	tx, err := toTx(req)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "tx", tx, "to", tx.To(), "value", tx.Value(), "gas_price", tx.GasPrice())
	if err := h.State.SubmitTransaction(tx); err != nil {
		if errors.Is(err, mempool.ErrPoolFull) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string      `json:"status"`
		Hash   common.Hash `json:"hash"`
	}{
		Status: "transaction added to mempool",
		Hash:   tx.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions in the order they
// would be mined. An account parameter filters on sender or recipient.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var filter *common.Address
	if acct := web.Param(r, "account"); acct != "" {
		address, err := database.ToAddress(acct)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		filter = &address
	}

	pending := h.State.QueryMempool()

	trans := make([]tx, 0, len(pending))
	for _, t := range pending {
		if filter != nil && t.From() != *filter && (t.To() == nil || *t.To() != *filter) {
			continue
		}
		trans = append(trans, toTxView(h.NS, t))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Account returns the current ledger entry for the account.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := database.ToAddress(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	act, err := h.State.QueryAccount(address)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrusted(fmt.Errorf("account %s: %w", address, err), http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, toAccountView(h.NS, act), http.StatusOK)
}

// Balance returns the balance of the account. Unknown accounts hold zero.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := database.ToAddress(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Address common.Address `json:"address"`
		Name    string         `json:"name"`
		Balance string         `json:"balance"`
	}{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: h.State.QueryBalance(address).Dec(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Receipt returns the outcome of a transaction.
func (h Handlers) Receipt(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := toHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	receipt, err := h.State.QueryReceipt(hash)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrusted(fmt.Errorf("receipt %s: %w", hash, err), http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, receipt, http.StatusOK)
}

// Head returns the latest block in the chain with the state root it
// commits to.
func (h Handlers) Head(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	head := h.State.QueryLatestBlock()
	return web.Respond(ctx, w, toBlockView(h.NS, head), http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := toHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blk, err := h.State.QueryBlockByHash(hash)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("block %s: %w", hash, err), http.StatusNotFound)
	}

	return web.Respond(ctx, w, toBlockView(h.NS, blk), http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, to, err := Range(web.Param(r, "from"), web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	views := make([]block, len(blocks))
	for i, blk := range blocks {
		views[i] = toBlockView(h.NS, blk)
	}

	return web.Respond(ctx, w, views, http.StatusOK)
}

// =============================================================================

// Range parses a from/to pair of block heights where "latest" or an empty
// value selects the head of the chain.
func Range(fromStr string, toStr string) (uint64, uint64, error) {
	if fromStr == "latest" || fromStr == "" {
		fromStr = fmt.Sprintf("%d", state.QueryLatest)
	}
	if toStr == "latest" || toStr == "" {
		toStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return 0, 0, err
	}

	if from > to {
		return 0, 0, errors.New("from greater than to")
	}

	return from, to, nil
}

func toHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("hash %q: want %d bytes, got %d", s, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
