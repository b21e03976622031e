// Package vm implements the bytecode interpreter used to execute contract
// code against a single account's storage with metered gas.
package vm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Set of errors that halt execution. They are always scoped to the single
// call being executed.
var (
	ErrOutOfGas          = errors.New("out of gas")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrStackOverflow     = errors.New("stack overflow")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrInvalidJumpTarget = errors.New("invalid jump target")
	ErrMemoryOutOfBounds = errors.New("memory out of bounds")
)

// Storage represents the persistent key/value storage of the account whose
// code is being executed.
type Storage interface {
	Load(key common.Hash) common.Hash
	Store(key common.Hash, value common.Hash)
}

// Result represents the outcome of executing a piece of code.
type Result struct {
	GasUsed uint64
	Return  []byte
	Err     error
}

// Failed reports whether execution halted with an error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// =============================================================================

// Execute runs the code with the input and gas limit against the storage.
// Storage writes are buffered and only reach the storage when execution
// completes without error.
func Execute(code []byte, input []byte, gas uint64, storage Storage) Result {
	in := interpreter{
		code:    code,
		input:   input,
		gas:     gas,
		stack:   newStack(),
		storage: newBuffer(storage),
	}

	ret, err := in.run()
	result := Result{
		GasUsed: gas - in.gas,
		Return:  ret,
		Err:     err,
	}

	if err != nil {
		if errors.Is(err, ErrOutOfGas) {
			result.GasUsed = gas
		}
		return result
	}

	in.storage.commit()

	return result
}

// =============================================================================

type interpreter struct {
	code    []byte
	input   []byte
	pc      uint64
	gas     uint64
	stack   *stack
	memory  memory
	storage *buffer
}

func (in *interpreter) run() ([]byte, error) {
	for in.pc < uint64(len(in.code)) {
		op := OpCode(in.code[in.pc])

		o, exists := operations[op]
		if !exists {
			return nil, fmt.Errorf("%w: %s at pc %d", ErrUnknownOpcode, op, in.pc)
		}

		if in.gas < o.gas {
			in.gas = 0
			return nil, fmt.Errorf("%w: %s at pc %d", ErrOutOfGas, op, in.pc)
		}
		in.gas -= o.gas

		if in.stack.len() < o.minStack {
			return nil, fmt.Errorf("%w: %s at pc %d", ErrStackUnderflow, op, in.pc)
		}

		switch {
		case op == STOP:
			return nil, nil

		case op == RETURN:
			if in.stack.len() == 0 {
				return nil, nil
			}
			v := in.stack.pop()
			ret := v.Bytes32()
			return ret[:], nil

		case op.IsPush():
			if err := in.push(op); err != nil {
				return nil, err
			}
			continue

		case op == JUMP:
			target := in.stack.pop()
			if err := in.jump(&target); err != nil {
				return nil, err
			}
			continue

		case op == JUMPI:
			cond := in.stack.pop()
			target := in.stack.pop()
			if !cond.IsZero() {
				if err := in.jump(&target); err != nil {
					return nil, err
				}
				continue
			}

		default:
			if err := in.execute(op); err != nil {
				return nil, fmt.Errorf("%w: %s at pc %d", err, op, in.pc)
			}
		}

		in.pc++
	}

	return nil, nil
}

// execute handles every opcode that neither halts nor moves the instruction
// pointer on its own.
func (in *interpreter) execute(op OpCode) error {
	s := in.stack

	switch op {
	case ADD:
		x, y := s.pop(), s.peek()
		y.Add(&x, y)

	case MUL:
		x, y := s.pop(), s.peek()
		y.Mul(&x, y)

	case POP:
		s.pop()

	case DUP1:
		v := *s.peek()
		return s.push(&v)

	case SWAP1:
		s.swap()

	case CALLDATALOAD:
		offset := s.peek()
		offset.SetBytes32(in.callData(offset))

	case CALLDATASIZE:
		return s.push(uint256.NewInt(uint64(len(in.input))))

	case MLOAD:
		offset := s.peek()
		word, err := in.memory.word(offset)
		if err != nil {
			return err
		}
		offset.SetBytes32(word)

	case MSTORE:
		offset, value := s.pop(), s.pop()
		word, err := in.memory.word(&offset)
		if err != nil {
			return err
		}
		value.WriteToSlice(word)

	case SLOAD:
		key := s.peek()
		value := in.storage.Load(common.Hash(key.Bytes32()))
		key.SetBytes32(value[:])

	case SSTORE:
		value, key := s.pop(), s.pop()
		in.storage.Store(common.Hash(key.Bytes32()), common.Hash(value.Bytes32()))
	}

	return nil
}

// push reads the immediate operand. Bytes missing past the end of the code
// are treated as zero.
func (in *interpreter) push(op OpCode) error {
	size := uint64(op.pushSize())
	start := in.pc + 1

	var data [32]byte
	for i := uint64(0); i < size; i++ {
		if start+i < uint64(len(in.code)) {
			data[32-size+i] = in.code[start+i]
		}
	}

	if err := in.stack.push(new(uint256.Int).SetBytes32(data[:])); err != nil {
		return fmt.Errorf("%w: %s at pc %d", err, op, in.pc)
	}

	in.pc = start + size
	return nil
}

// jump moves the instruction pointer after checking the target is inside
// the code.
func (in *interpreter) jump(target *uint256.Int) error {
	if !target.IsUint64() || target.Uint64() >= uint64(len(in.code)) {
		return fmt.Errorf("%w: %s at pc %d", ErrInvalidJumpTarget, target.Hex(), in.pc)
	}

	in.pc = target.Uint64()
	return nil
}

// callData returns 32 bytes of input starting at the offset, padded with
// zeros past the end of the input.
func (in *interpreter) callData(offset *uint256.Int) []byte {
	var data [32]byte
	if !offset.IsUint64() || offset.Uint64() >= uint64(len(in.input)) {
		return data[:]
	}

	copy(data[:], in.input[offset.Uint64():])
	return data[:]
}

// =============================================================================

// buffer holds storage writes until execution completes.
type buffer struct {
	storage Storage
	writes  map[common.Hash]common.Hash
	order   []common.Hash
}

func newBuffer(storage Storage) *buffer {
	return &buffer{
		storage: storage,
		writes:  make(map[common.Hash]common.Hash),
	}
}

func (b *buffer) Load(key common.Hash) common.Hash {
	if v, exists := b.writes[key]; exists {
		return v
	}
	if b.storage == nil {
		return common.Hash{}
	}
	return b.storage.Load(key)
}

func (b *buffer) Store(key common.Hash, value common.Hash) {
	if _, exists := b.writes[key]; !exists {
		b.order = append(b.order, key)
	}
	b.writes[key] = value
}

func (b *buffer) commit() {
	if b.storage == nil {
		return
	}
	for _, key := range b.order {
		b.storage.Store(key, b.writes[key])
	}
}
