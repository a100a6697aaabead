package main

import (
	"flag"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akhildatla/intcode/internal/testutil"
	"github.com/akhildatla/intcode/pkg/vm"
)

// buildIntcode builds the intcode binary for testing
func buildIntcode(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	binary := filepath.Join(tmpDir, "intcode")
	cmd := exec.Command("go", "build", "-o", binary, ".")
	cmd.Dir = "."
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build intcode: %v\n%s", err, output)
	}
	return binary
}

func TestCLI_Help(t *testing.T) {
	binary := buildIntcode(t)

	output, err := exec.Command(binary, "help").CombinedOutput()
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	out := string(output)
	for _, want := range []string{"intcode", "run", "compile", "disasm"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestCLI_Version(t *testing.T) {
	binary := buildIntcode(t)

	output, err := exec.Command(binary, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	if !strings.Contains(string(output), "intcode version") {
		t.Errorf("expected version output, got: %s", output)
	}
}

func TestCLI_Run(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "double.txt", testutil.Doubler+"\n")

	output, err := exec.Command(binary, "run", path, "-i", "21").Output()
	if err != nil {
		t.Fatalf("run command failed: %v\n%s", err, output)
	}

	if out := strings.TrimSpace(string(output)); out != "42" {
		t.Errorf("expected 42, got: %s", out)
	}
}

func TestCLI_RunPokes(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "add.txt", "1,0,0,0,4,0,99")

	output, err := exec.Command(binary, "run", "-poke", "1=6", "-poke", "2=6", path).Output()
	if err != nil {
		t.Fatalf("run command failed: %v\n%s", err, output)
	}

	if out := strings.TrimSpace(string(output)); out != "198" {
		t.Errorf("expected 198, got: %s", out)
	}
}

func TestCLI_RunASCII(t *testing.T) {
	binary := buildIntcode(t)
	// Reads one character, echoes it, then reports 1000.
	path := testutil.TempFile(t, "echo.txt", "3,7,4,7,104,1000,99,0")

	cmd := exec.Command(binary, "run", "-ascii", path)
	cmd.Stdin = strings.NewReader("Z")
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("run command failed: %v\n%s", err, output)
	}

	if out := string(output); out != "Z1000\n" {
		t.Errorf("expected %q, got: %q", "Z1000\n", out)
	}
}

func TestCLI_RunCSV(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "prog.csv", testutil.CellsCSV("op", 104, 1125899906842624, 99))

	output, err := exec.Command(binary, "run", "-column", "op", path).Output()
	if err != nil {
		t.Fatalf("run command failed: %v\n%s", err, output)
	}

	if out := strings.TrimSpace(string(output)); out != "1125899906842624" {
		t.Errorf("expected 1125899906842624, got: %s", out)
	}
}

func TestCLI_RunConfig(t *testing.T) {
	binary := buildIntcode(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "double.txt"), []byte(testutil.Doubler), 0644); err != nil {
		t.Fatalf("failed to write program: %v", err)
	}
	configPath := filepath.Join(dir, "intcode.toml")
	if err := os.WriteFile(configPath, []byte(`
[program]
path = "double.txt"

[run]
inputs = [8]
`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output, err := exec.Command(binary, "run", "-config", configPath).Output()
	if err != nil {
		t.Fatalf("run command failed: %v\n%s", err, output)
	}
	if out := strings.TrimSpace(string(output)); out != "16" {
		t.Errorf("expected 16, got: %s", out)
	}

	// Flags override the file.
	output, err = exec.Command(binary, "run", "-config", configPath, "-i", "50").Output()
	if err != nil {
		t.Fatalf("run command failed: %v\n%s", err, output)
	}
	if out := strings.TrimSpace(string(output)); out != "100" {
		t.Errorf("expected 100, got: %s", out)
	}
}

func TestCLI_RunNeedsInput(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "double.txt", testutil.Doubler)

	output, err := exec.Command(binary, "run", path).CombinedOutput()
	if err == nil {
		t.Fatal("expected error when input runs out")
	}
	if !strings.Contains(string(output), "waiting for input") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestCLI_RunMaxSteps(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "loop.txt", "1105,1,0")

	output, err := exec.Command(binary, "run", "-max-steps", "1000", path).CombinedOutput()
	if err == nil {
		t.Fatal("expected error for instruction limit")
	}
	if !strings.Contains(string(output), "instruction limit") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestCLI_RunStats(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "double.txt", testutil.Doubler)

	output, err := exec.Command(binary, "run", "-stats", "-i", "1", path).Output()
	if err != nil {
		t.Fatalf("run command failed: %v\n%s", err, output)
	}
	if !strings.Contains(string(output), "steps: 4") {
		t.Errorf("expected stats summary, got: %s", output)
	}
}

func TestCLI_CompileAndExec(t *testing.T) {
	binary := buildIntcode(t)
	tmpDir := t.TempDir()

	source := filepath.Join(tmpDir, "triple.ica")
	err := os.WriteFile(source, []byte(`
	IN    value
	MUL   value, #3, value
	OUT   value
	HALT
value:
	DATA  0
`), 0644)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	image := filepath.Join(tmpDir, "triple.icbc")
	if output, err := exec.Command(binary, "compile", source, "-o", image).CombinedOutput(); err != nil {
		t.Fatalf("compile failed: %v\n%s", err, output)
	}

	if _, err := os.Stat(image); os.IsNotExist(err) {
		t.Fatal("image file was not created")
	}

	output, err := exec.Command(binary, "exec", image, "-i", "33").Output()
	if err != nil {
		t.Fatalf("exec failed: %v\n%s", err, output)
	}

	if out := strings.TrimSpace(string(output)); out != "99" {
		t.Errorf("expected 99, got: %s", out)
	}

	// run accepts images too.
	output, err = exec.Command(binary, "run", "-i", "2", image).Output()
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, output)
	}
	if out := strings.TrimSpace(string(output)); out != "6" {
		t.Errorf("expected 6, got: %s", out)
	}
}

func TestCLI_CompileVerbose(t *testing.T) {
	binary := buildIntcode(t)
	source := testutil.TempFile(t, "out.ica", "OUT #1\nHALT")

	output, err := exec.Command(binary, "compile", "-v", source).CombinedOutput()
	if err != nil {
		t.Fatalf("compile failed: %v\n%s", err, output)
	}

	if !strings.Contains(string(output), "Compiled 3 cells") {
		t.Errorf("verbose output should mention cells, got: %s", output)
	}
}

func TestCLI_CompileError(t *testing.T) {
	binary := buildIntcode(t)
	source := testutil.TempFile(t, "bad.ica", "ADD 1, 2")

	output, err := exec.Command(binary, "compile", source).CombinedOutput()
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !strings.Contains(string(output), "line 1") {
		t.Errorf("expected line number, got: %s", output)
	}
}

func TestCLI_Disasm(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "quine.txt", testutil.Quine)

	output, err := exec.Command(binary, "disasm", path).CombinedOutput()
	if err != nil {
		t.Fatalf("disasm failed: %v\n%s", err, output)
	}

	out := string(output)
	for _, want := range []string{"ARB   #1", "OUT   @-1", "HALT"} {
		if !strings.Contains(out, want) {
			t.Errorf("disasm output should contain %q, got: %s", want, out)
		}
	}
}

func TestCLI_Repl(t *testing.T) {
	binary := buildIntcode(t)
	path := testutil.TempFile(t, "double.txt", testutil.Doubler)

	cmd := exec.Command(binary, "repl", path)
	cmd.Stdin = strings.NewReader("run 4\nquit\n")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("repl failed: %v\n%s", err, output)
	}
	if !strings.Contains(string(output), "8\n=> halted") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestCLI_UnknownCommand(t *testing.T) {
	binary := buildIntcode(t)

	output, err := exec.Command(binary, "unknown").CombinedOutput()
	if err == nil {
		t.Error("expected error for unknown command")
	}

	if !strings.Contains(string(output), "unknown command") {
		t.Errorf("expected 'unknown command' error, got: %s", output)
	}
}

func TestCLI_MissingFile(t *testing.T) {
	binary := buildIntcode(t)

	_, err := exec.Command(binary, "run", "nonexistent.txt").CombinedOutput()
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseInputs(t *testing.T) {
	values, err := parseInputs("1, -2,3")
	if err != nil {
		t.Fatalf("parseInputs failed: %v", err)
	}
	testutil.AssertCells(t, []int64{1, -2, 3}, values)

	if values, err := parseInputs(""); err != nil || values != nil {
		t.Errorf("expected no inputs, got %v, %v", values, err)
	}
	if _, err := parseInputs("1,x"); err == nil {
		t.Error("expected error for bad input")
	}
}

func TestParsePoke(t *testing.T) {
	p, err := parsePoke("1=12")
	if err != nil {
		t.Fatalf("parsePoke failed: %v", err)
	}
	if p.Address != 1 || p.Value != 12 {
		t.Errorf("unexpected poke %+v", p)
	}

	for _, bad := range []string{"1", "-1=2", "a=2", "1=b"} {
		if _, err := parsePoke(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseArgs_Interleaved(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	out := fs.String("o", "", "")
	verbose := fs.Bool("v", false, "")

	positional, err := parseArgs(fs, []string{"a.ica", "-o", "b.icbc", "-v", "c"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if len(positional) != 2 || positional[0] != "a.ica" || positional[1] != "c" {
		t.Errorf("unexpected positionals %v", positional)
	}
	if *out != "b.icbc" || !*verbose {
		t.Errorf("flags not parsed: o=%q v=%v", *out, *verbose)
	}
}

func TestStatsTable(t *testing.T) {
	m := vm.FromCells([]int64{3, 9, 1002, 9, 2, 9, 4, 9, 99, 0})
	m.EnableStats()
	if _, err := m.Run(1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	table := statsTable(m.Stats())
	for _, want := range []string{"IN", "MUL", "OUT", "HALT", "steps: 4"} {
		if !strings.Contains(table, want) {
			t.Errorf("expected table to contain %q, got:\n%s", want, table)
		}
	}
}
