package vm

import "fmt"

// OpCode is a single interpreter instruction.
type OpCode byte

// Set of supported opcodes. The byte values follow the EVM numbering.
const (
	STOP         OpCode = 0x00
	ADD          OpCode = 0x01
	MUL          OpCode = 0x02
	CALLDATALOAD OpCode = 0x35
	CALLDATASIZE OpCode = 0x36
	POP          OpCode = 0x50
	MLOAD        OpCode = 0x51
	MSTORE       OpCode = 0x52
	SLOAD        OpCode = 0x54
	SSTORE       OpCode = 0x55
	JUMP         OpCode = 0x56
	JUMPI        OpCode = 0x57
	PUSH1        OpCode = 0x60
	PUSH32       OpCode = 0x7f
	DUP1         OpCode = 0x80
	SWAP1        OpCode = 0x90
	RETURN       OpCode = 0xf3
)

// Fixed gas cost per opcode.
const (
	GasStop         uint64 = 0
	GasAdd          uint64 = 3
	GasMul          uint64 = 5
	GasSLoad        uint64 = 2100
	GasSStore       uint64 = 20000
	GasReturn       uint64 = 0
	GasJump         uint64 = 8
	GasJumpI        uint64 = 10
	GasPush         uint64 = 3
	GasPop          uint64 = 2
	GasDup          uint64 = 3
	GasSwap         uint64 = 3
	GasCallDataLoad uint64 = 3
	GasCallDataSize uint64 = 2
	GasMLoad        uint64 = 3
	GasMStore       uint64 = 3
)

// operation describes how an opcode is charged and how many stack items it
// needs to be present.
type operation struct {
	name     string
	gas      uint64
	minStack int
}

var operations = func() map[OpCode]operation {
	ops := map[OpCode]operation{
		STOP:         {name: "STOP", gas: GasStop},
		ADD:          {name: "ADD", gas: GasAdd, minStack: 2},
		MUL:          {name: "MUL", gas: GasMul, minStack: 2},
		CALLDATALOAD: {name: "CALLDATALOAD", gas: GasCallDataLoad, minStack: 1},
		CALLDATASIZE: {name: "CALLDATASIZE", gas: GasCallDataSize},
		POP:          {name: "POP", gas: GasPop, minStack: 1},
		MLOAD:        {name: "MLOAD", gas: GasMLoad, minStack: 1},
		MSTORE:       {name: "MSTORE", gas: GasMStore, minStack: 2},
		SLOAD:        {name: "SLOAD", gas: GasSLoad, minStack: 1},
		SSTORE:       {name: "SSTORE", gas: GasSStore, minStack: 2},
		JUMP:         {name: "JUMP", gas: GasJump, minStack: 1},
		JUMPI:        {name: "JUMPI", gas: GasJumpI, minStack: 2},
		DUP1:         {name: "DUP1", gas: GasDup, minStack: 1},
		SWAP1:        {name: "SWAP1", gas: GasSwap, minStack: 2},
		RETURN:       {name: "RETURN", gas: GasReturn},
	}

	for op := PUSH1; op <= PUSH32; op++ {
		ops[op] = operation{name: fmt.Sprintf("PUSH%d", op.pushSize()), gas: GasPush}
	}

	return ops
}()

// IsPush reports whether the opcode carries an immediate operand.
func (op OpCode) IsPush() bool {
	return op >= PUSH1 && op <= PUSH32
}

// pushSize returns the number of immediate bytes that follow a push.
func (op OpCode) pushSize() int {
	return int(op-PUSH1) + 1
}

// String implements the fmt.Stringer interface.
func (op OpCode) String() string {
	if o, exists := operations[op]; exists {
		return o.name
	}
	return fmt.Sprintf("opcode 0x%02x", byte(op))
}

// Push returns the PUSHn opcode that carries n immediate bytes.
func Push(n int) OpCode {
	return PUSH1 + OpCode(n-1)
}
