// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/chain"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/consensus"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/genesis"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/ledger"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/mempool"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/peer"
	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/transition"
	"github.com/ethereum/go-ethereum/common"
)

// Set of errors returned by the state.
var (
	ErrGenesisMismatch = errors.New("stored genesis block does not match the genesis file")
	ErrDifficulty      = errors.New("block difficulty is easier than the chain difficulty")
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(tx database.Tx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Miner      common.Address
	Host       string
	Genesis    genesis.Genesis
	Storage    database.Storage
	KnownPeers *peer.PeerSet
	MempoolTTL time.Duration
	EvHandler  EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.RWMutex

	miner      common.Address
	host       string
	genesis    genesis.Genesis
	mempoolTTL time.Duration
	evHandler  EventHandler

	storage    database.Storage
	knownPeers *peer.PeerSet
	chain      *chain.Chain
	ledger     *ledger.Ledger
	mempool    *mempool.Mempool
	consensus  *consensus.Engine
	receipts   map[common.Hash]database.Receipt

	Worker Worker
}

// New constructs a new blockchain for data management. Blocks already in
// storage are replayed from genesis and every one of them must validate.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	engine := consensus.New(consensus.Config{
		Transition: transition.New(transition.Config{
			BlockReward: cfg.Genesis.Reward(),
			EvHandler:   transition.EventHandler(ev),
		}),
		TransPerBlock: int(cfg.Genesis.TransPerBlock),
		EvHandler:     consensus.EventHandler(ev),
	})

	// Access the blocks already stored for this node.
	chn, err := chain.New(cfg.Storage)
	if err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		miner:      cfg.Miner,
		host:       cfg.Host,
		genesis:    cfg.Genesis,
		mempoolTTL: cfg.MempoolTTL,
		evHandler:  ev,

		storage:    cfg.Storage,
		knownPeers: knownPeers,
		chain:      chn,
		mempool: mempool.New(mempool.Config{
			Capacity: cfg.Genesis.MempoolCapacity,
			MinFee:   cfg.Genesis.Fee(),
		}),
		consensus: engine,
		receipts:  make(map[common.Hash]database.Receipt),
	}

	if err := state.replay(); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// replay rebuilds the ledger by applying the stored chain on top of the
// genesis ledger. An empty store is seeded with the genesis block.
func (s *State) replay() error {
	gen, l, err := consensus.Genesis(s.genesis)
	if err != nil {
		return err
	}

	if s.chain.Length() == 0 {
		s.evHandler("state: replay: write genesis block[%s]", gen.Hash())
		if err := s.chain.AddBlock(gen); err != nil {
			return err
		}
		s.ledger = l
		return nil
	}

	stored, err := s.chain.ByHeight(0)
	if err != nil {
		return err
	}
	if stored.Hash() != gen.Hash() {
		return fmt.Errorf("%w: got %s, exp %s", ErrGenesisMismatch, stored.Hash(), gen.Hash())
	}

	head := gen
	for _, block := range s.chain.Range(1, s.chain.Length()-1) {
		s.evHandler("state: replay: blk[%d]: %s", block.Header.Height, block.Hash())

		if block.Header.Difficulty > s.genesis.Difficulty {
			return fmt.Errorf("replay blk[%d]: %w", block.Header.Height, ErrDifficulty)
		}

		post, receipts, err := s.consensus.Verify(block, head, l)
		if err != nil {
			return fmt.Errorf("replay blk[%d]: %w", block.Header.Height, err)
		}

		for _, receipt := range receipts {
			s.receipts[receipt.TxHash] = receipt
		}

		head = block
		l = post
	}

	s.ledger = l

	return nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the database is properly closed.
	defer func() {
		s.storage.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Miner returns the address credited with rewards for blocks mined here.
func (s *State) Miner() common.Address {
	return s.miner
}

// Host returns the private host this node is reachable on by its peers.
func (s *State) Host() string {
	return s.host
}

// AddKnownPeer provides the ability to add a new peer to
// the known peer list.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	return s.knownPeers.Add(pr)
}

// RemoveKnownPeer provides the ability to remove a peer from
// the known peer list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}

// =============================================================================

// commit validates the block against the current head and, if it passes,
// appends it to the chain and moves the ledger forward. This is the single
// writer for the chain and the ledger.
func (s *State) commit(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, err := s.chain.Head()
	if err != nil {
		return err
	}

	s.evHandler("state: commit: validate blk[%d]", block.Header.Height)

	if block.Header.Difficulty > s.genesis.Difficulty {
		return fmt.Errorf("%w: got %d, exp %d", ErrDifficulty, block.Header.Difficulty, s.genesis.Difficulty)
	}

	post, receipts, err := s.consensus.Verify(block, head, s.ledger)
	if err != nil {
		return err
	}

	s.evHandler("state: commit: write blk[%d] to storage", block.Header.Height)

	if err := s.chain.AddBlock(block); err != nil {
		return err
	}
	s.ledger = post

	s.evHandler("state: commit: record receipts and prune mempool")

	included := make(map[common.Hash]bool, len(receipts))
	for _, receipt := range receipts {
		s.receipts[receipt.TxHash] = receipt
		included[receipt.TxHash] = true
	}

	removed := s.mempool.DeleteFunc(func(tx database.Tx) bool {
		return included[tx.Hash()] || tx.Nonce() < post.Nonce(tx.From())
	})
	s.evHandler("state: commit: mempool: removed[%d] remaining[%d]", removed, s.mempool.Size())

	s.expireMempool()

	return nil
}

// expireMempool drops transactions older than the configured TTL.
func (s *State) expireMempool() {
	if s.mempoolTTL <= 0 {
		return
	}

	if n := s.mempool.Expire(time.Now().Add(-s.mempoolTTL)); n > 0 {
		s.evHandler("state: expireMempool: expired[%d]", n)
	}
}

// ExpireMempool drops transactions that have waited longer than the TTL.
func (s *State) ExpireMempool() {
	s.expireMempool()
}
