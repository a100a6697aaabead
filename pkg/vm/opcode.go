package vm

import "fmt"

// Opcode is the operation selected by the two low decimal digits of an
// instruction cell.
type Opcode int64

const (
	OpAdd        Opcode = 1  // p3 = p1 + p2
	OpMul        Opcode = 2  // p3 = p1 * p2
	OpInput      Opcode = 3  // p1 = dequeue(input), suspends when input is empty
	OpOutput     Opcode = 4  // enqueue(output, p1)
	OpJumpTrue   Opcode = 5  // pointer = p2 if p1 != 0
	OpJumpFalse  Opcode = 6  // pointer = p2 if p1 == 0
	OpLessThan   Opcode = 7  // p3 = p1 < p2 ? 1 : 0
	OpEquals     Opcode = 8  // p3 = p1 == p2 ? 1 : 0
	OpAdjustBase Opcode = 9  // relative_base += p1
	OpHalt       Opcode = 99 // stop execution
)

// Arity returns the number of parameters the opcode takes, or -1 for an
// unsupported opcode.
func (o Opcode) Arity() int {
	switch o {
	case OpAdd, OpMul, OpLessThan, OpEquals:
		return 3
	case OpJumpTrue, OpJumpFalse:
		return 2
	case OpInput, OpOutput, OpAdjustBase:
		return 1
	case OpHalt:
		return 0
	default:
		return -1
	}
}

// Valid reports whether the opcode is part of the instruction set.
func (o Opcode) Valid() bool {
	return o.Arity() >= 0
}

// writes reports whether the last parameter of the opcode is a write target.
func (o Opcode) writes() bool {
	switch o {
	case OpAdd, OpMul, OpInput, OpLessThan, OpEquals:
		return true
	}
	return false
}

// String returns the assembler mnemonic of an opcode.
func (o Opcode) String() string {
	switch o {
	case OpAdd:
		return "ADD"
	case OpMul:
		return "MUL"
	case OpInput:
		return "IN"
	case OpOutput:
		return "OUT"
	case OpJumpTrue:
		return "JNZ"
	case OpJumpFalse:
		return "JZ"
	case OpLessThan:
		return "LT"
	case OpEquals:
		return "EQ"
	case OpAdjustBase:
		return "ARB"
	case OpHalt:
		return "HALT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int64(o))
	}
}

// opcodeNames maps mnemonics back to opcodes.
var opcodeNames = map[string]Opcode{
	"ADD":  OpAdd,
	"MUL":  OpMul,
	"IN":   OpInput,
	"OUT":  OpOutput,
	"JNZ":  OpJumpTrue,
	"JZ":   OpJumpFalse,
	"LT":   OpLessThan,
	"EQ":   OpEquals,
	"ARB":  OpAdjustBase,
	"HALT": OpHalt,
}

// OpcodeFromString returns the opcode for a mnemonic.
func OpcodeFromString(s string) (Opcode, bool) {
	op, ok := opcodeNames[s]
	return op, ok
}
