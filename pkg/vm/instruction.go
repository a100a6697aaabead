package vm

import "fmt"

// Mode selects how a parameter value becomes an operand.
type Mode uint8

const (
	ModePosition  Mode = 0 // parameter is an absolute address
	ModeImmediate Mode = 1 // parameter is the operand itself
	ModeRelative  Mode = 2 // parameter is an offset from the relative base
)

// MaxParams is the largest arity of any opcode.
const MaxParams = 3

// String returns the name of the mode.
func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Instruction is a decoded instruction cell.
//
// Layout of the cell in decimal digits, read right to left:
//
//	... C B A D E
//	        │ └─┴── opcode (two digits)
//	        └────── mode of parameter 1
//	      └──────── mode of parameter 2
//	    └────────── mode of parameter 3
//
// Absent digits are position mode.
type Instruction struct {
	Op    Opcode
	Modes [MaxParams]Mode
}

// Decode splits a cell into its opcode and parameter modes. Only the modes
// of parameters the opcode actually takes are validated.
func Decode(cell int64) (Instruction, error) {
	if cell < 0 {
		return Instruction{}, fmt.Errorf("%w: negative instruction %d", ErrInvalidOpcode, cell)
	}

	inst := Instruction{Op: Opcode(cell % 100)}
	arity := inst.Op.Arity()
	if arity < 0 {
		return Instruction{}, fmt.Errorf("%w: %d in cell %d", ErrInvalidOpcode, cell%100, cell)
	}

	digits := cell / 100
	for i := 0; i < arity; i++ {
		m := Mode(digits % 10)
		digits /= 10
		if m > ModeRelative {
			return Instruction{}, fmt.Errorf("%w: digit %d for parameter %d in cell %d", ErrInvalidMode, m, i+1, cell)
		}
		if m == ModeImmediate && inst.Op.writes() && i == arity-1 {
			return Instruction{}, fmt.Errorf("%w: immediate write target in cell %d", ErrInvalidMode, cell)
		}
		inst.Modes[i] = m
	}

	return inst, nil
}

// Size returns the number of cells the instruction occupies.
func (i Instruction) Size() int64 {
	return int64(i.Op.Arity()) + 1
}

// Mode returns the addressing mode of parameter n (1-based).
func (i Instruction) Mode(n int) Mode {
	return i.Modes[n-1]
}

// Encode packs the instruction back into a cell.
func (i Instruction) Encode() int64 {
	return EncodeInstruction(i.Op, i.Modes[:]...)
}

// EncodeInstruction creates an instruction cell from an opcode and the
// modes of its parameters in order.
func EncodeInstruction(op Opcode, modes ...Mode) int64 {
	cell := int64(op)
	scale := int64(100)
	for _, m := range modes {
		cell += int64(m) * scale
		scale *= 10
	}
	return cell
}

// String returns a human-readable representation of the instruction.
func (i Instruction) String() string {
	return i.Op.String()
}
