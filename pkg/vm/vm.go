// Package vm implements the intcode virtual machine.
//
// A machine executes a program encoded as a sequence of signed 64-bit
// cells. It has:
//   - a growable, zero-initialised memory
//   - an instruction pointer and a relative-base register
//   - a FIFO input queue fed by the caller and a FIFO output queue
//     drained by the caller
//
// Execution is cooperative. Run executes until the program halts or until
// an input instruction finds the input queue empty, in which case the
// machine suspends and hands control back. Supplying more input and
// calling Run again resumes at the same input instruction.
//
// Basic usage:
//
//	m, err := vm.FromText("3,9,1002,9,2,9,4,9,99,0")
//	state, err := m.Run()    // StateSuspended, waiting for input
//	state, err = m.Run(21)   // StateHalted
//	out := m.Drain()         // [42]
//
// Exploring several futures from one checkpoint:
//
//	left, right := m.Clone(), m.Clone()
//	left.Run(1)
//	right.Run(2)
package vm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error definitions
var (
	ErrParse          = errors.New("malformed program text")
	ErrInvalidOpcode  = errors.New("invalid opcode")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidMode    = errors.New("invalid addressing mode")
	ErrPokeOutOfRange = errors.New("poke address out of range")
	ErrMemoryLimit    = errors.New("memory limit exceeded")
)

// ExecError is a fatal execution error. It records where the machine was
// when the instruction failed.
type ExecError struct {
	Pointer int64 // address of the failing instruction
	Cell    int64 // raw instruction cell
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("at %d (cell %d): %v", e.Pointer, e.Cell, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// State is the execution state of a machine.
type State uint8

const (
	StateRunning   State = iota // can make progress
	StateSuspended              // blocked on an empty input queue
	StateHalted                 // executed HALT, terminal
	StateFaulted                // stopped by a fatal execution error, terminal
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateHalted:
		return "halted"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// ExecutionStats contains metrics about execution for observability.
type ExecutionStats struct {
	StepsExecuted  int64            // Total instructions executed
	Suspensions    int64            // Times execution blocked on empty input
	InputsRead     int64            // Values consumed from the input queue
	OutputsWritten int64            // Values appended to the output queue
	PeakMemory     int              // Largest memory length observed
	OpCounts       map[Opcode]int64 // Count of each opcode executed
}

// Machine is an intcode virtual machine.
//
// The zero value is not usable; construct machines with FromText or
// FromCells. A Machine is not safe for concurrent use, but distinct
// machines (including clones) share no state.
type Machine struct {
	mem    Memory
	regs   Registers
	input  []int64
	output []int64
	state  State
	err    error

	stats        ExecutionStats
	statsEnabled bool
}

// FromText parses a comma-separated list of signed decimal integers.
// Surrounding whitespace, including a trailing newline, is ignored.
func FromText(s string) (*Machine, error) {
	cells, err := ParseProgram(s)
	if err != nil {
		return nil, err
	}
	return newMachine(Memory{cells: cells}), nil
}

// ParseProgram parses program text into cells without building a machine.
func ParseProgram(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty program", ErrParse)
	}

	tokens := strings.Split(s, ",")
	cells := make([]int64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q: %v", ErrParse, i, tok, err)
		}
		cells[i] = v
	}
	return cells, nil
}

// FromCells creates a machine from a copy of cells.
func FromCells(cells []int64) *Machine {
	return newMachine(NewMemory(cells))
}

func newMachine(mem Memory) *Machine {
	return &Machine{mem: mem, state: StateRunning}
}

// SetMemoryLimit caps the number of cells memory may grow to. A write
// beyond the cap fails with ErrMemoryLimit. Zero, or a cap above 2^32
// cells, falls back to the 2^32 ceiling.
func (m *Machine) SetMemoryLimit(cells int64) {
	m.mem.limit = cells
}

// EnableStats enables execution statistics collection.
func (m *Machine) EnableStats() {
	m.statsEnabled = true
	m.stats = ExecutionStats{
		OpCounts:   make(map[Opcode]int64),
		PeakMemory: m.mem.Len(),
	}
}

// Stats returns the statistics collected since EnableStats.
// Returns nil if stats were not enabled.
func (m *Machine) Stats() *ExecutionStats {
	if !m.statsEnabled {
		return nil
	}
	return &m.stats
}

// Poke overwrites an existing cell. The address must already be part of
// memory.
func (m *Machine) Poke(addr uint64, value int64) error {
	if addr >= uint64(m.mem.Len()) {
		return fmt.Errorf("%w: %d (memory length %d)", ErrPokeOutOfRange, addr, m.mem.Len())
	}
	m.mem.cells[addr] = value
	return nil
}

// Peek returns the cell at addr. Unallocated cells read as zero.
func (m *Machine) Peek(addr uint64) int64 {
	if addr >= uint64(m.mem.Len()) {
		return 0
	}
	return m.mem.cells[addr]
}

// Memory returns a copy of the machine's cells.
func (m *Machine) Memory() []int64 {
	return m.mem.Cells()
}

// Registers returns the current control registers.
func (m *Machine) Registers() Registers {
	return m.regs
}

// Feed appends values to the input queue without executing anything.
func (m *Machine) Feed(inputs ...int64) {
	m.input = append(m.input, inputs...)
}

// Pending returns the number of queued input values.
func (m *Machine) Pending() int {
	return len(m.input)
}

// Buffered returns the number of output values awaiting collection.
func (m *Machine) Buffered() int {
	return len(m.output)
}

// Drain removes and returns all queued output in production order.
func (m *Machine) Drain() []int64 {
	out := m.output
	m.output = nil
	return out
}

// Next removes and returns the oldest queued output value.
func (m *Machine) Next() (int64, bool) {
	if len(m.output) == 0 {
		return 0, false
	}
	v := m.output[0]
	m.output = m.output[1:]
	return v, true
}

// Finished reports whether the machine has executed HALT.
func (m *Machine) Finished() bool {
	return m.state == StateHalted
}

// State returns the current execution state.
func (m *Machine) State() State {
	return m.state
}

// Err returns the fatal error that stopped the machine, if any.
func (m *Machine) Err() error {
	return m.err
}

// Clone returns an independent copy of the machine. Memory and both queues
// are duplicated, so the copies can be run separately.
func (m *Machine) Clone() *Machine {
	c := &Machine{
		mem:          m.mem.clone(),
		regs:         m.regs,
		input:        append([]int64(nil), m.input...),
		output:       append([]int64(nil), m.output...),
		state:        m.state,
		err:          m.err,
		statsEnabled: m.statsEnabled,
	}
	if m.statsEnabled {
		c.stats = m.stats
		c.stats.OpCounts = make(map[Opcode]int64, len(m.stats.OpCounts))
		for op, n := range m.stats.OpCounts {
			c.stats.OpCounts[op] = n
		}
	}
	return c
}

// Run appends inputs to the input queue and executes until the program
// halts or needs input that is not there. It returns StateHalted or
// StateSuspended. Calling Run on a halted machine does nothing.
//
// A fatal error is returned as *ExecError and sticks: every later call
// returns it again without executing.
func (m *Machine) Run(inputs ...int64) (State, error) {
	switch m.state {
	case StateHalted:
		return StateHalted, nil
	case StateFaulted:
		return StateFaulted, m.err
	}

	m.Feed(inputs...)

	for {
		state, err := m.Step()
		if err != nil {
			return state, err
		}
		if state == StateSuspended || state == StateHalted {
			return state, nil
		}
	}
}

// Step executes a single instruction. It returns StateRunning when the
// instruction completed, StateSuspended when it is an input instruction
// with no input queued (nothing is consumed and the pointer stays put),
// and StateHalted once HALT has executed.
func (m *Machine) Step() (State, error) {
	switch m.state {
	case StateHalted:
		return StateHalted, nil
	case StateFaulted:
		return StateFaulted, m.err
	}

	pointer := m.regs.Pointer
	cell, err := m.mem.Read(pointer)
	if err != nil {
		return m.fault(pointer, cell, err)
	}
	inst, err := Decode(cell)
	if err != nil {
		return m.fault(pointer, cell, err)
	}

	if inst.Op == OpInput && len(m.input) == 0 {
		if m.statsEnabled && m.state != StateSuspended {
			m.stats.Suspensions++
		}
		m.state = StateSuspended
		return StateSuspended, nil
	}

	if err := m.execute(inst); err != nil {
		return m.fault(pointer, cell, err)
	}

	if m.statsEnabled {
		m.stats.StepsExecuted++
		m.stats.OpCounts[inst.Op]++
		if n := m.mem.Len(); n > m.stats.PeakMemory {
			m.stats.PeakMemory = n
		}
	}

	if inst.Op == OpHalt {
		m.state = StateHalted
		return StateHalted, nil
	}
	m.state = StateRunning
	return StateRunning, nil
}

func (m *Machine) fault(pointer, cell int64, err error) (State, error) {
	m.state = StateFaulted
	m.err = &ExecError{Pointer: pointer, Cell: cell, Err: err}
	return StateFaulted, m.err
}

// execute runs one decoded instruction. Registers and queues are only
// updated once every operand has resolved.
func (m *Machine) execute(inst Instruction) error {
	switch inst.Op {
	case OpAdd, OpMul, OpLessThan, OpEquals:
		a, err := m.param(inst, 1)
		if err != nil {
			return err
		}
		b, err := m.param(inst, 2)
		if err != nil {
			return err
		}
		var result int64
		switch inst.Op {
		case OpAdd:
			result = a + b
		case OpMul:
			result = a * b
		case OpLessThan:
			result = boolCell(a < b)
		case OpEquals:
			result = boolCell(a == b)
		}
		if err := m.store(inst, 3, result); err != nil {
			return err
		}

	case OpInput:
		if err := m.store(inst, 1, m.input[0]); err != nil {
			return err
		}
		m.input = m.input[1:]
		if m.statsEnabled {
			m.stats.InputsRead++
		}

	case OpOutput:
		v, err := m.param(inst, 1)
		if err != nil {
			return err
		}
		m.output = append(m.output, v)
		if m.statsEnabled {
			m.stats.OutputsWritten++
		}

	case OpJumpTrue, OpJumpFalse:
		cond, err := m.param(inst, 1)
		if err != nil {
			return err
		}
		target, err := m.param(inst, 2)
		if err != nil {
			return err
		}
		if (cond != 0) == (inst.Op == OpJumpTrue) {
			if target < 0 {
				return fmt.Errorf("%w: jump to %d", ErrInvalidAddress, target)
			}
			m.regs.Pointer = target
			return nil
		}

	case OpAdjustBase:
		delta, err := m.param(inst, 1)
		if err != nil {
			return err
		}
		m.regs.RelativeBase += delta

	case OpHalt:
		return nil

	default:
		return fmt.Errorf("%w: %d", ErrInvalidOpcode, int64(inst.Op))
	}

	m.regs.Pointer += inst.Size()
	return nil
}

// param resolves the operand of parameter n (1-based) for reading.
func (m *Machine) param(inst Instruction, n int) (int64, error) {
	raw, err := m.mem.Read(m.regs.Pointer + int64(n))
	if err != nil {
		return 0, err
	}
	switch inst.Mode(n) {
	case ModeImmediate:
		return raw, nil
	case ModePosition:
		return m.mem.Read(raw)
	case ModeRelative:
		return m.mem.Read(m.regs.RelativeBase + raw)
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, inst.Mode(n))
	}
}

// store writes value to the address given by parameter n (1-based).
func (m *Machine) store(inst Instruction, n int, value int64) error {
	raw, err := m.mem.Read(m.regs.Pointer + int64(n))
	if err != nil {
		return err
	}
	switch inst.Mode(n) {
	case ModePosition:
		return m.mem.Write(raw, value)
	case ModeRelative:
		return m.mem.Write(m.regs.RelativeBase+raw, value)
	default:
		return fmt.Errorf("%w: %s write target", ErrInvalidMode, inst.Mode(n))
	}
}

func boolCell(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
