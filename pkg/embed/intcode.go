// Package embed provides the Go embedding API for intcode programs.
//
// Pass a program, get its output.
//
// Basic usage:
//
//	result, err := embed.Execute("3,9,1002,9,2,9,4,9,99,0", 21)
//	// result.Output == []int64{42}
//
// With limits and patched cells:
//
//	result, err := embed.ExecuteWithOptions(program,
//	    embed.WithPokes(embed.Poke{Address: 1, Value: 12}, embed.Poke{Address: 2, Value: 2}),
//	    embed.WithMaxInstructions(1_000_000),
//	    embed.WithTimeout(time.Second),
//	)
//	answer := result.Machine.Peek(0)
package embed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/akhildatla/intcode/pkg/compiler"
	"github.com/akhildatla/intcode/pkg/loader"
	"github.com/akhildatla/intcode/pkg/vm"
)

// Common errors
var (
	ErrTimeout          = errors.New("execution timeout exceeded")
	ErrInstructionLimit = errors.New("instruction limit exceeded")
	ErrMemoryLimit      = errors.New("memory limit exceeded")
	ErrNeedsInput       = errors.New("program is waiting for input")
)

// cancelCheckInterval is how many instructions run between context checks.
const cancelCheckInterval = 4096

var log = commonlog.GetLogger("intcode.embed")

// Result is the outcome of one execution.
type Result struct {
	// Output holds every value the program produced, in order.
	Output []int64

	// State is StateHalted, or StateSuspended when WithSuspendOK is set
	// and the program ran out of input.
	State vm.State

	// Steps is the number of instructions executed.
	Steps int64

	// Machine is the machine after execution. A suspended machine can be
	// resumed with Run.
	Machine *vm.Machine
}

// Poke overwrites one program cell before execution starts.
type Poke struct {
	Address uint64
	Value   int64
}

// Options configures execution behavior for ExecuteWithOptions.
type Options struct {
	// Inputs are queued before the first instruction runs.
	Inputs []int64

	// Pokes are applied in order after loading.
	Pokes []Poke

	// Timeout sets maximum execution time. Zero means no timeout.
	Timeout time.Duration

	// MaxInstructions limits the number of instructions executed.
	// Zero means unlimited.
	MaxInstructions int64

	// MaxMemoryCells limits how far memory may grow.
	// Zero means unlimited.
	MaxMemoryCells int64

	// SuspendOK returns a suspended result instead of ErrNeedsInput.
	SuspendOK bool

	// Stats enables per-opcode counters on the machine.
	Stats bool

	// Context for cancellation. If nil, context.Background() is used.
	Context context.Context
}

// Option is a functional option for configuring execution.
type Option func(*Options)

// WithInputs queues input values.
func WithInputs(inputs ...int64) Option {
	return func(o *Options) {
		o.Inputs = append(o.Inputs, inputs...)
	}
}

// WithPokes patches cells before execution.
func WithPokes(pokes ...Poke) Option {
	return func(o *Options) {
		o.Pokes = append(o.Pokes, pokes...)
	}
}

// WithTimeout sets execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxInstructions sets instruction limit.
func WithMaxInstructions(n int64) Option {
	return func(o *Options) {
		o.MaxInstructions = n
	}
}

// WithMaxMemory sets the memory limit in cells.
func WithMaxMemory(cells int64) Option {
	return func(o *Options) {
		o.MaxMemoryCells = cells
	}
}

// WithSuspendOK allows a result that is still waiting for input.
func WithSuspendOK() Option {
	return func(o *Options) {
		o.SuspendOK = true
	}
}

// WithStats enables execution statistics on the result's machine.
func WithStats() Option {
	return func(o *Options) {
		o.Stats = true
	}
}

// WithContext sets the context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// Execute parses a comma-separated program, feeds it inputs and runs it
// to completion.
func Execute(code string, inputs ...int64) (*Result, error) {
	return ExecuteWithOptions(code, WithInputs(inputs...))
}

// ExecuteFile loads a program with loader.Load and executes it.
func ExecuteFile(path string, opts ...Option) (*Result, error) {
	cells, err := loader.Load(path, "")
	if err != nil {
		return nil, err
	}
	return ExecuteProgram(cells, opts...)
}

// ExecuteAssembly assembles source and executes the result.
func ExecuteAssembly(source string, opts ...Option) (*Result, error) {
	cells, err := compiler.Compile(source)
	if err != nil {
		return nil, err
	}
	return ExecuteProgram(cells, opts...)
}

// ExecuteWithOptions executes program text with advanced configuration.
//
// Example:
//
//	result, err := embed.ExecuteWithOptions(code,
//	    embed.WithInputs(1),
//	    embed.WithTimeout(5*time.Second),
//	    embed.WithMaxInstructions(10000),
//	)
func ExecuteWithOptions(code string, opts ...Option) (*Result, error) {
	cells, err := vm.ParseProgram(code)
	if err != nil {
		return nil, err
	}
	return ExecuteProgram(cells, opts...)
}

// ExecuteProgram executes already-parsed cells.
func ExecuteProgram(cells []int64, opts ...Option) (*Result, error) {
	options := &Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(options)
	}

	machine := vm.FromCells(cells)
	machine.SetMemoryLimit(options.MaxMemoryCells)
	if options.Stats {
		machine.EnableStats()
	}
	for _, p := range options.Pokes {
		if err := machine.Poke(p.Address, p.Value); err != nil {
			return nil, err
		}
	}
	machine.Feed(options.Inputs...)

	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	log.Debugf("executing %d cells with %d inputs", len(cells), len(options.Inputs))

	result, err := drive(ctx, machine, options.MaxInstructions)
	if err != nil {
		// Map VM errors to embed package errors
		switch {
		case errors.Is(err, vm.ErrMemoryLimit):
			err = fmt.Errorf("%w: %w", ErrMemoryLimit, err)
		case errors.Is(err, context.DeadlineExceeded):
			err = ErrTimeout
		}
		log.Errorf("execution stopped after %d steps: %s", result.Steps, err)
		return result, err
	}

	if result.State == vm.StateSuspended && !options.SuspendOK {
		return result, ErrNeedsInput
	}

	log.Debugf("execution %s after %d steps, %d outputs", result.State, result.Steps, len(result.Output))
	return result, nil
}

// drive steps the machine until it halts, suspends, fails or exhausts its
// budget. The returned result is never nil.
func drive(ctx context.Context, machine *vm.Machine, maxInstructions int64) (*Result, error) {
	result := &Result{Machine: machine}
	defer func() {
		result.Output = machine.Drain()
		result.State = machine.State()
	}()

	for {
		if maxInstructions > 0 && result.Steps >= maxInstructions {
			return result, ErrInstructionLimit
		}
		if result.Steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		state, err := machine.Step()
		if err != nil {
			return result, err
		}
		if state == vm.StateSuspended {
			return result, nil
		}
		result.Steps++
		if state == vm.StateHalted {
			return result, nil
		}
	}
}
