package vm

import (
	"github.com/holiman/uint256"
)

// StackLimit is the maximum number of words the operand stack can hold.
const StackLimit = 1024

// MemoryLimit is the maximum size in bytes of the linear memory.
const MemoryLimit = 64 * 1024

type stack struct {
	data []uint256.Int
}

func newStack() *stack {
	return &stack{data: make([]uint256.Int, 0, 16)}
}

func (s *stack) len() int {
	return len(s.data)
}

func (s *stack) push(v *uint256.Int) error {
	if len(s.data) >= StackLimit {
		return ErrStackOverflow
	}
	s.data = append(s.data, *v)
	return nil
}

// pop must only be called once the stack depth has been checked.
func (s *stack) pop() uint256.Int {
	v := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return v
}

func (s *stack) peek() *uint256.Int {
	return &s.data[len(s.data)-1]
}

func (s *stack) swap() {
	n := len(s.data)
	s.data[n-1], s.data[n-2] = s.data[n-2], s.data[n-1]
}

// =============================================================================

type memory struct {
	store []byte
}

// word returns a 32 byte window over memory, growing it in 32 byte steps.
func (m *memory) word(offset *uint256.Int) ([]byte, error) {
	if !offset.IsUint64() || offset.Uint64() > MemoryLimit-32 {
		return nil, ErrMemoryOutOfBounds
	}

	end := int(offset.Uint64()) + 32
	if end > len(m.store) {
		size := (end + 31) / 32 * 32
		m.store = append(m.store, make([]byte, size-len(m.store))...)
	}

	start := int(offset.Uint64())
	return m.store[start:end], nil
}
