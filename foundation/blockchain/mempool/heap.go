package mempool

import (
	"bytes"
	"time"

	"github.com/ArthurBonsu/tinc-blockchain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// entry is a pending transaction with its priority key. The same entry sits
// in both heaps and tracks its position in each.
type entry struct {
	tx     database.Tx
	hash   common.Hash
	fee    *uint256.Int
	nonce  uint64
	added  time.Time
	maxIdx int
	minIdx int
}

// higher reports whether a has priority over b: higher fee first, then the
// lower nonce, then the lower hash so the order is total.
func higher(a, b *entry) bool {
	if c := a.fee.Cmp(b.fee); c != 0 {
		return c > 0
	}
	if a.nonce != b.nonce {
		return a.nonce < b.nonce
	}
	return bytes.Compare(a.hash[:], b.hash[:]) < 0
}

// =============================================================================

// maxHeap keeps the highest priority entry on top.
type maxHeap []*entry

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return higher(h[i], h[j]) }

func (h maxHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].maxIdx = i
	h[j].maxIdx = j
}

func (h *maxHeap) Push(x any) {
	e := x.(*entry)
	e.maxIdx = len(*h)
	*h = append(*h, e)
}

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.maxIdx = -1
	*h = old[:n-1]
	return e
}

// minHeap keeps the lowest priority entry on top.
type minHeap []*entry

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return higher(h[j], h[i]) }

func (h minHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].minIdx = i
	h[j].minIdx = j
}

func (h *minHeap) Push(x any) {
	e := x.(*entry)
	e.minIdx = len(*h)
	*h = append(*h, e)
}

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.minIdx = -1
	*h = old[:n-1]
	return e
}
