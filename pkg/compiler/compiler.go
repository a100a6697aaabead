// Package compiler assembles intcode assembly into program cells.
//
// Syntax, one statement per line:
//
//	; comment
//	start:  IN    @0          ; label definition, relative operand
//	        ADD   10, #5, 11  ; position and immediate operands
//	        JNZ   11, #start  ; labels resolve to their address
//	        OUT   11
//	        HALT
//	        DATA  0, 0, -7    ; raw cells
//
// Mnemonics are case-insensitive. Bare operands use position mode, '#'
// selects immediate mode and '@' relative mode.
package compiler

import (
	"fmt"
	"strings"

	"github.com/akhildatla/intcode/pkg/vm"
)

// directiveData emits its operands verbatim.
const directiveData = "DATA"

// Compile assembles source into cells ready for vm.FromCells.
func Compile(source string) ([]int64, error) {
	parser := NewParser(source)
	asmProgram, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	compiler := &Compiler{
		labels: make(map[string]int64),
	}

	return compiler.compile(asmProgram)
}

// Compiler compiles parsed assembly to cells.
type Compiler struct {
	cells  []int64
	labels map[string]int64 // label -> cell address
}

func (c *Compiler) compile(program *AsmProgram) ([]int64, error) {
	// First pass: lay out addresses so forward references resolve.
	addrs := make([]int64, len(program.Instructions)+1)
	var addr int64
	for i, inst := range program.Instructions {
		addrs[i] = addr
		size, err := instructionSize(inst)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", inst.Line, err)
		}
		addr += size
	}
	addrs[len(program.Instructions)] = addr

	for name, idx := range program.Labels {
		c.labels[name] = addrs[idx]
	}

	// Second pass: emit cells.
	for _, inst := range program.Instructions {
		if err := c.compileInstruction(inst); err != nil {
			return nil, fmt.Errorf("line %d: %w", inst.Line, err)
		}
	}

	return c.cells, nil
}

func instructionSize(inst AsmInstruction) (int64, error) {
	name := strings.ToUpper(inst.Opcode)
	if name == directiveData {
		if len(inst.Operands) == 0 {
			return 0, fmt.Errorf("DATA needs at least one value")
		}
		return int64(len(inst.Operands)), nil
	}

	opcode, ok := vm.OpcodeFromString(name)
	if !ok {
		return 0, fmt.Errorf("unknown opcode: %s", inst.Opcode)
	}
	if len(inst.Operands) != opcode.Arity() {
		return 0, fmt.Errorf("%s expects %d operands, got %d", opcode, opcode.Arity(), len(inst.Operands))
	}
	return int64(opcode.Arity()) + 1, nil
}

func (c *Compiler) compileInstruction(inst AsmInstruction) error {
	name := strings.ToUpper(inst.Opcode)

	if name == directiveData {
		for _, op := range inst.Operands {
			if op.Mode != vm.ModePosition {
				return fmt.Errorf("DATA values take no mode prefix")
			}
			v, err := c.resolve(op)
			if err != nil {
				return err
			}
			c.cells = append(c.cells, v)
		}
		return nil
	}

	opcode, _ := vm.OpcodeFromString(name)
	modes := make([]vm.Mode, len(inst.Operands))
	for i, op := range inst.Operands {
		modes[i] = op.Mode
	}

	// Validate by decoding what we are about to emit.
	cell := vm.EncodeInstruction(opcode, modes...)
	if _, err := vm.Decode(cell); err != nil {
		return err
	}
	c.cells = append(c.cells, cell)

	for _, op := range inst.Operands {
		v, err := c.resolve(op)
		if err != nil {
			return err
		}
		c.cells = append(c.cells, v)
	}
	return nil
}

func (c *Compiler) resolve(op Operand) (int64, error) {
	if op.Label == "" {
		return op.IntVal, nil
	}
	addr, ok := c.labels[op.Label]
	if !ok {
		return 0, fmt.Errorf("undefined label: %s", op.Label)
	}
	return addr, nil
}
