// Package repl implements an interactive console for intcode machines.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/kr/pretty"
	"github.com/tliron/commonlog"

	"github.com/akhildatla/intcode/pkg/compiler"
	"github.com/akhildatla/intcode/pkg/loader"
	"github.com/akhildatla/intcode/pkg/vm"
)

const (
	promptText = "intcode> "
	promptASM  = "asm> "
	promptCont = "...> "
)

var log = commonlog.GetLogger("intcode.repl")

// Mode represents the REPL input mode.
type Mode int

const (
	ModeText Mode = iota // Comma-separated program cells
	ModeASM              // Assembly mode
)

// REPL provides an interactive Read-Eval-Print Loop around one machine.
type REPL struct {
	mode        Mode
	program     []int64
	machine     *vm.Machine
	forks       map[string]*vm.Machine
	history     []string
	multiline   strings.Builder
	inMultiline bool
	done        bool
}

// New creates a new REPL instance with no program loaded.
func New() *REPL {
	return &REPL{
		mode:    ModeText,
		forks:   make(map[string]*vm.Machine),
		history: []string{},
	}
}

// SetMode sets the REPL input mode.
func (r *REPL) SetMode(mode Mode) {
	r.mode = mode
}

// SetProgram loads cells as the current program.
func (r *REPL) SetProgram(cells []int64) {
	r.program = append([]int64(nil), cells...)
	r.reset()
}

// Start starts the REPL loop. It returns when in is exhausted or on quit.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	fmt.Fprintln(out, "intcode REPL")
	fmt.Fprintln(out, "Type 'help' for available commands, 'quit' to exit")
	fmt.Fprintln(out)

	for !r.done {
		if r.inMultiline {
			fmt.Fprint(out, promptCont)
		} else if r.mode == ModeText {
			fmt.Fprint(out, promptText)
		} else {
			fmt.Fprint(out, promptASM)
		}

		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		// Handle multiline input
		if r.inMultiline {
			if line == "" {
				r.inMultiline = false
				input := r.multiline.String()
				r.multiline.Reset()
				r.eval(input, out)
			} else {
				r.multiline.WriteString(line)
				r.multiline.WriteString("\n")
			}
			continue
		}

		if handled := r.handleCommand(line, out); handled {
			continue
		}

		// Check for multiline start (ends with \)
		if strings.HasSuffix(line, "\\") {
			r.inMultiline = true
			r.multiline.WriteString(strings.TrimSuffix(line, "\\"))
			r.multiline.WriteString("\n")
			continue
		}

		r.eval(line, out)
	}
}

func (r *REPL) handleCommand(line string, out io.Writer) bool {
	parts := strings.Fields(strings.TrimSpace(line))

	if len(parts) == 0 {
		return true
	}

	switch parts[0] {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Goodbye!")
		r.done = true
		return true

	case "help", "h", "?":
		r.printHelp(out)
		return true

	case "mode":
		if len(parts) > 1 {
			switch parts[1] {
			case "text":
				r.mode = ModeText
				fmt.Fprintln(out, "Switched to text mode")
			case "asm":
				r.mode = ModeASM
				fmt.Fprintln(out, "Switched to assembly mode")
			default:
				fmt.Fprintln(out, "Unknown mode. Use 'text' or 'asm'")
			}
		} else if r.mode == ModeText {
			fmt.Fprintln(out, "Current mode: text")
		} else {
			fmt.Fprintln(out, "Current mode: asm")
		}
		return true

	case "load":
		switch len(parts) {
		case 2:
			r.loadFile(parts[1], "", out)
		case 3:
			r.loadFile(parts[1], parts[2], out)
		default:
			fmt.Fprintln(out, "Usage: load <path> [column]")
		}
		return true

	case "history":
		for i, cmd := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, cmd)
		}
		return true
	}

	// In asm mode a mnemonic with operands is assembly, even when it
	// shares a name with a command.
	if r.mode == ModeASM && len(parts) > 1 {
		if _, ok := vm.OpcodeFromString(strings.ToUpper(parts[0])); ok {
			return false
		}
	}

	// Everything below needs a program.
	switch parts[0] {
	case "poke", "peek", "run", "step", "ascii", "out", "state", "fork", "restore", "forks", "disasm", "reset":
	default:
		return false
	}
	if r.machine == nil {
		fmt.Fprintln(out, "No program loaded")
		return true
	}

	switch parts[0] {
	case "poke":
		r.poke(parts[1:], out)
	case "peek":
		r.peek(parts[1:], out)
	case "run":
		r.run(parts[1:], out)
	case "step":
		r.step(out)
	case "ascii":
		r.ascii(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "ascii")), out)
	case "out":
		r.printOutput(out)
	case "state":
		r.printState(out)
	case "fork":
		r.fork(parts[1:], out)
	case "restore":
		r.restore(parts[1:], out)
	case "forks":
		r.listForks(out)
	case "disasm":
		fmt.Fprint(out, vm.Disassemble(r.machine.Memory()))
	case "reset":
		r.reset()
		fmt.Fprintln(out, "Machine reset")
	}
	return true
}

// eval treats input as a new program in the current mode.
func (r *REPL) eval(input string, out io.Writer) {
	if strings.TrimSpace(input) == "" {
		return
	}

	r.history = append(r.history, input)

	var cells []int64
	var err error
	if r.mode == ModeText {
		cells, err = vm.ParseProgram(input)
	} else {
		cells, err = compiler.Compile(input)
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	r.SetProgram(cells)
	fmt.Fprintf(out, "=> loaded %d cells\n", len(cells))
}

func (r *REPL) loadFile(path, column string, out io.Writer) {
	cells, err := loader.Load(path, column)
	if err != nil {
		log.Errorf("load %s: %s", path, err)
		fmt.Fprintf(out, "Error loading %s: %v\n", path, err)
		return
	}

	r.SetProgram(cells)
	fmt.Fprintf(out, "Loaded %s (%d cells)\n", path, len(cells))
}

func (r *REPL) reset() {
	r.machine = vm.FromCells(r.program)
	r.machine.EnableStats()
}

func (r *REPL) poke(args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: poke <addr> <value>")
		return
	}
	addr, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(out, "Error: invalid address %q\n", args[0])
		return
	}
	value, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(out, "Error: invalid value %q\n", args[1])
		return
	}
	if err := r.machine.Poke(addr, value); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "[%d] = %d\n", addr, value)
}

func (r *REPL) peek(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: peek <addr>")
		return
	}
	addr, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(out, "Error: invalid address %q\n", args[0])
		return
	}
	fmt.Fprintf(out, "[%d] = %d\n", addr, r.machine.Peek(addr))
}

func (r *REPL) run(args []string, out io.Writer) {
	inputs := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, tok := range strings.Split(arg, ",") {
			if tok == "" {
				continue
			}
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				fmt.Fprintf(out, "Error: invalid input %q\n", tok)
				return
			}
			inputs = append(inputs, v)
		}
	}

	state, err := r.machine.Run(inputs...)
	r.printOutput(out)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "=> %s\n", state)
}

func (r *REPL) step(out io.Writer) {
	pointer := r.machine.Registers().Pointer
	inst, err := vm.Decode(r.machine.Peek(uint64(pointer)))
	if err == nil {
		fmt.Fprintf(out, "%04d: %s\n", pointer, inst.Op)
	}

	state, err := r.machine.Step()
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "=> %s\n", state)
}

func (r *REPL) ascii(text string, out io.Writer) {
	state, err := r.machine.RunASCII(text)
	s, rest := vm.DecodeASCII(r.machine.Drain())
	fmt.Fprint(out, s)
	for _, v := range rest {
		fmt.Fprintf(out, "%d\n", v)
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "=> %s\n", state)
}

func (r *REPL) printOutput(out io.Writer) {
	values := r.machine.Drain()
	if len(values) == 0 {
		return
	}
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = strconv.FormatInt(v, 10)
	}
	fmt.Fprintln(out, strings.Join(strs, ","))
}

// snapshot is the view printed by the state command.
type snapshot struct {
	State        string
	Pointer      int64
	RelativeBase int64
	Cells        int
	Pending      int
	Buffered     int
	Forks        []string
	Stats        *vm.ExecutionStats
}

func (r *REPL) printState(out io.Writer) {
	regs := r.machine.Registers()
	snap := snapshot{
		State:        r.machine.State().String(),
		Pointer:      regs.Pointer,
		RelativeBase: regs.RelativeBase,
		Cells:        len(r.machine.Memory()),
		Pending:      r.machine.Pending(),
		Buffered:     r.machine.Buffered(),
		Forks:        r.forkNames(),
		Stats:        r.machine.Stats(),
	}
	fmt.Fprintln(out, pretty.Sprint(snap))
	if err := r.machine.Err(); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

func (r *REPL) fork(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: fork <name>")
		return
	}
	r.forks[args[0]] = r.machine.Clone()
	fmt.Fprintf(out, "Saved checkpoint '%s'\n", args[0])
}

func (r *REPL) restore(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: restore <name>")
		return
	}
	saved, ok := r.forks[args[0]]
	if !ok {
		fmt.Fprintf(out, "No checkpoint named '%s'\n", args[0])
		return
	}
	// Keep the checkpoint reusable.
	r.machine = saved.Clone()
	fmt.Fprintf(out, "Restored checkpoint '%s'\n", args[0])
}

func (r *REPL) listForks(out io.Writer) {
	names := r.forkNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "No checkpoints saved")
		return
	}

	fmt.Fprintln(out, "Checkpoints:")
	for _, name := range names {
		m := r.forks[name]
		fmt.Fprintf(out, "  %s: %s at %d\n", name, m.State(), m.Registers().Pointer)
	}
}

func (r *REPL) forkNames() []string {
	names := make([]string, 0, len(r.forks))
	for name := range r.forks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *REPL) printHelp(out io.Writer) {
	help := `
intcode REPL Commands:
  help, h, ?          Show this help message
  quit, exit, q       Exit the REPL
  mode [text|asm]     Show or set input mode
  load <path> [col]   Load a program file (.txt, .csv, .json, .parquet, .icbc)
  poke <addr> <val>   Overwrite an existing cell
  peek <addr>         Show a cell
  run [ints]          Run with optional inputs until halt or input is needed
  step                Execute one instruction
  ascii <text>        Send a line of text and print the ASCII reply
  out                 Print buffered output (in asm mode "out <operand>"
                      is assembled as an OUT instruction)
  state               Show registers, queues and counters
  fork <name>         Save a checkpoint of the machine
  restore <name>      Continue from a checkpoint
  forks               List checkpoints
  disasm              Disassemble current memory
  reset               Reload the program from scratch
  history             Show program history

Any other input is loaded as a program:
  text mode: 3,9,1002,9,2,9,4,9,99,0
  asm mode:  OUT #42 \
             HALT

Tips:
  - End a line with \ for multiline input
  - Press Enter twice to finish multiline input
`
	fmt.Fprint(out, help)
}
