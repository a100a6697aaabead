// Package main provides the CLI entry point for intcode.
//
// Usage:
//
//	intcode run day09.txt -i 1        # Run a program with inputs
//	intcode run -ascii droid.txt      # Talk to a program in ASCII over stdin
//	intcode compile prog.ica          # Assemble to a program image (.icbc)
//	intcode exec prog.icbc            # Execute a program image
//	intcode disasm day05.txt          # Disassemble any program file
//	intcode repl                      # Interactive console
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/tliron/commonlog"

	"github.com/akhildatla/intcode/pkg/compiler"
	"github.com/akhildatla/intcode/pkg/config"
	"github.com/akhildatla/intcode/pkg/embed"
	"github.com/akhildatla/intcode/pkg/loader"
	"github.com/akhildatla/intcode/pkg/repl"
	"github.com/akhildatla/intcode/pkg/vm"

	_ "github.com/tliron/commonlog/simple"
)

// Version info set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var log = commonlog.GetLogger("intcode")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		return runCommand(os.Args[2:])
	case "compile":
		return compileCommand(os.Args[2:])
	case "exec":
		return execCommand(os.Args[2:])
	case "disasm":
		return disasmCommand(os.Args[2:])
	case "repl":
		return replCommand(os.Args[2:])
	case "version":
		fmt.Printf("intcode version %s\n", version)
		if commit != "none" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if date != "unknown" {
			fmt.Printf("  built:  %s\n", date)
		}
		return nil
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// configureLogging sets up commonlog. -v wins over the config file.
func configureLogging(verbose bool, cfg *config.Config) {
	verbosity := cfg.Log.Verbosity
	if verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}

// parseInputs parses "1,2,3" into values.
func parseInputs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var values []int64
	for _, tok := range strings.Split(s, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input %q", tok)
		}
		values = append(values, v)
	}
	return values, nil
}

// parsePoke parses "addr=value".
func parsePoke(s string) (config.Poke, error) {
	addr, value, ok := strings.Cut(s, "=")
	if !ok {
		return config.Poke{}, fmt.Errorf("poke must be addr=value, got %q", s)
	}
	a, err := strconv.ParseUint(strings.TrimSpace(addr), 10, 64)
	if err != nil {
		return config.Poke{}, fmt.Errorf("invalid poke address %q", addr)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return config.Poke{}, fmt.Errorf("invalid poke value %q", value)
	}
	return config.Poke{Address: a, Value: v}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose output")
	inputs := fs.String("i", "", "comma-separated input values")
	ascii := fs.Bool("ascii", false, "send stdin as ASCII input and decode ASCII output")
	maxSteps := fs.Int64("max-steps", 0, "instruction limit (0 = unlimited)")
	timeout := fs.Duration("timeout", 0, "execution timeout (0 = none)")
	configPath := fs.String("config", "", "config file (default: nearest "+config.FileName+")")
	column := fs.String("column", "", "table column holding the cells")
	stats := fs.Bool("stats", false, "print per-opcode execution counts")
	var pokes []config.Poke
	fs.Func("poke", "patch a cell before running, addr=value (repeatable)", func(s string) error {
		p, err := parsePoke(s)
		if err != nil {
			return err
		}
		pokes = append(pokes, p)
		return nil
	})

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	configureLogging(*verbose, cfg)

	// Flags override the config file.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	path := cfg.ProgramPath()
	if len(positional) > 0 {
		path = positional[0]
	}
	if path == "" {
		return fmt.Errorf("usage: intcode run <program> [-i 1,2,3] [-poke addr=value]")
	}
	col := cfg.Program.Column
	if set["column"] {
		col = *column
	}
	values := cfg.Run.Inputs
	if set["i"] {
		values, err = parseInputs(*inputs)
		if err != nil {
			return err
		}
	}
	if set["poke"] {
		cfg.Pokes = pokes
	}
	if set["ascii"] {
		cfg.Run.ASCII = *ascii
	}
	if set["max-steps"] {
		cfg.Run.MaxSteps = *maxSteps
	}
	if set["timeout"] {
		cfg.SetTimeout(*timeout)
	}
	if set["stats"] {
		cfg.Run.Stats = *stats
	}

	cells, err := loader.Load(path, col)
	if err != nil {
		return err
	}
	log.Infof("loaded %s: %d cells", path, len(cells))

	opts := []embed.Option{
		embed.WithInputs(values...),
		embed.WithMaxInstructions(cfg.Run.MaxSteps),
		embed.WithTimeout(cfg.Timeout()),
	}
	for _, p := range cfg.Pokes {
		opts = append(opts, embed.WithPokes(embed.Poke{Address: p.Address, Value: p.Value}))
	}
	if cfg.Run.ASCII {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		opts = append(opts, embed.WithInputs(vm.EncodeASCII(string(text))...))
	}
	if cfg.Run.Stats {
		opts = append(opts, embed.WithStats())
	}

	start := time.Now()
	result, runErr := embed.ExecuteProgram(cells, opts...)
	if result != nil {
		printOutput(os.Stdout, result.Output, cfg.Run.ASCII)
		log.Infof("%s after %d steps in %s", result.State, result.Steps, time.Since(start))
		if cfg.Run.Stats {
			if s := result.Machine.Stats(); s != nil {
				fmt.Print(statsTable(s))
			}
		}
	}
	return runErr
}

func printOutput(w io.Writer, values []int64, ascii bool) {
	if ascii {
		text, rest := vm.DecodeASCII(values)
		fmt.Fprint(w, text)
		values = rest
	}
	for _, v := range values {
		fmt.Fprintf(w, "%d\n", v)
	}
}

// statsTable renders per-opcode counts, most frequent first.
func statsTable(stats *vm.ExecutionStats) string {
	ops := make([]vm.Opcode, 0, len(stats.OpCounts))
	for op := range stats.OpCounts {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		ci, cj := stats.OpCounts[ops[i]], stats.OpCounts[ops[j]]
		if ci != cj {
			return ci > cj
		}
		return ops[i] < ops[j]
	})

	names := make([]interface{}, len(ops))
	counts := make([]interface{}, len(ops))
	for i, op := range ops {
		names[i] = op.String()
		counts[i] = stats.OpCounts[op]
	}

	df := dataframe.NewDataFrame(
		dataframe.NewSeriesString("opcode", nil, names...),
		dataframe.NewSeriesInt64("count", nil, counts...),
	)
	return df.Table() + fmt.Sprintf("steps: %d  suspensions: %d  peak memory: %d cells\n",
		stats.StepsExecuted, stats.Suspensions, stats.PeakMemory)
}

func compileCommand(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	output := fs.String("o", "", "output file (default: input with .icbc extension)")
	verbose := fs.Bool("v", false, "verbose output")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	if len(positional) < 1 {
		return fmt.Errorf("usage: intcode compile <file.ica> [-o output.icbc]")
	}

	inputPath := positional[0]
	outputPath := *output

	if outputPath == "" {
		// Replace extension with .icbc
		ext := filepath.Ext(inputPath)
		outputPath = strings.TrimSuffix(inputPath, ext) + ".icbc"
	}

	if *verbose {
		fmt.Printf("Compiling: %s -> %s\n", inputPath, outputPath)
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	cells, err := compiler.Compile(string(source))
	if err != nil {
		return fmt.Errorf("compiling: %w", err)
	}

	image, err := vm.SerializeProgram(cells)
	if err != nil {
		return fmt.Errorf("serializing: %w", err)
	}

	if err := os.WriteFile(outputPath, image, 0644); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	if *verbose {
		fmt.Printf("Compiled %d cells\n", len(cells))
		fmt.Printf("Output: %s (%d bytes)\n", outputPath, len(image))
	} else {
		fmt.Printf("Compiled: %s\n", outputPath)
	}

	return nil
}

func execCommand(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose output")
	inputs := fs.String("i", "", "comma-separated input values")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	if len(positional) < 1 {
		return fmt.Errorf("usage: intcode exec <file.icbc>")
	}

	path := positional[0]

	values, err := parseInputs(*inputs)
	if err != nil {
		return err
	}

	if *verbose {
		fmt.Printf("Executing image: %s\n", path)
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	cells, err := vm.DeserializeProgram(image)
	if err != nil {
		return fmt.Errorf("deserializing: %w", err)
	}

	if *verbose {
		fmt.Printf("Loaded %d cells\n", len(cells))
	}

	m := vm.FromCells(cells)
	state, err := m.Run(values...)
	printOutput(os.Stdout, m.Drain(), false)
	if err != nil {
		return fmt.Errorf("executing: %w", err)
	}
	if state == vm.StateSuspended {
		return embed.ErrNeedsInput
	}

	return nil
}

func disasmCommand(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	output := fs.String("o", "", "output file (default: stdout)")
	column := fs.String("column", "", "table column holding the cells")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	if len(positional) < 1 {
		return fmt.Errorf("usage: intcode disasm <program> [-o output.txt]")
	}

	cells, err := loader.Load(positional[0], *column)
	if err != nil {
		return err
	}

	listing := vm.Disassemble(cells)

	if *output != "" {
		if err := os.WriteFile(*output, []byte(listing), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Printf("Disassembled to: %s\n", *output)
	} else {
		fmt.Print(listing)
	}

	return nil
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	asmMode := fs.Bool("asm", false, "start in assembly mode (default: text mode)")
	column := fs.String("column", "", "table column holding the cells")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	r := repl.New()

	if len(positional) > 0 {
		cells, err := loader.Load(positional[0], *column)
		if err != nil {
			return err
		}
		r.SetProgram(cells)
	}

	if *asmMode {
		r.SetMode(repl.ModeASM)
	}

	r.Start(os.Stdin, os.Stdout)
	return nil
}

func printUsage() error {
	fmt.Println(`intcode - a resumable intcode virtual machine

Usage:
  intcode <command> [arguments]

Commands:
  run <program>         Run a program (.txt, .csv, .json, .parquet, .icbc)
  compile <file.ica>    Assemble source to a program image (.icbc)
  exec <file.icbc>      Execute a program image
  disasm <program>      Disassemble a program
  repl [program]        Start interactive REPL
  version               Print version information
  help                  Show this help message

Run Options:
  -i <1,2,3>            Input values
  -ascii                Send stdin as ASCII input and decode ASCII output
  -poke <addr=value>    Patch a cell before running (repeatable)
  -max-steps <n>        Instruction limit
  -timeout <duration>   Execution timeout
  -column <name>        Table column holding the cells (default: cell)
  -config <file>        Config file (default: nearest intcode.toml)
  -stats                Print per-opcode execution counts
  -v                    Verbose logging

Compile Options:
  -o <file>             Output file (default: input with .icbc extension)
  -v                    Verbose output

Exec Options:
  -i <1,2,3>            Input values
  -v                    Verbose output

Disasm Options:
  -o <file>             Output file (default: stdout)

REPL Options:
  -asm                  Start in assembly mode (default: text mode)

Examples:
  intcode run day09.txt -i 1
  intcode run day02.txt -poke 1=12 -poke 2=2
  intcode compile countdown.ica -o countdown.icbc
  intcode exec countdown.icbc
  intcode disasm day05.txt
  intcode repl -asm`)
	return nil
}
