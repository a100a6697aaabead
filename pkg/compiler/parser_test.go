package compiler

import (
	"strings"
	"testing"

	"github.com/akhildatla/intcode/pkg/vm"
)

func TestParser_Instruction(t *testing.T) {
	program, err := NewParser("MUL 4, #3, @2").Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(program.Instructions) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(program.Instructions))
	}

	inst := program.Instructions[0]
	if inst.Opcode != "MUL" {
		t.Errorf("expected MUL, got %s", inst.Opcode)
	}
	want := []Operand{
		{Mode: vm.ModePosition, IntVal: 4},
		{Mode: vm.ModeImmediate, IntVal: 3},
		{Mode: vm.ModeRelative, IntVal: 2},
	}
	if len(inst.Operands) != len(want) {
		t.Fatalf("expected %d operands, got %d", len(want), len(inst.Operands))
	}
	for i := range want {
		if inst.Operands[i] != want[i] {
			t.Errorf("operand %d: expected %+v, got %+v", i, want[i], inst.Operands[i])
		}
	}
}

func TestParser_Labels(t *testing.T) {
	input := `start:
	IN 20
end: HALT`

	program, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if program.Labels["start"] != 0 {
		t.Errorf("expected start at instruction 0, got %d", program.Labels["start"])
	}
	if program.Labels["end"] != 1 {
		t.Errorf("expected end at instruction 1, got %d", program.Labels["end"])
	}
}

func TestParser_LabelOperand(t *testing.T) {
	program, err := NewParser("JZ #0, #done").Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	op := program.Instructions[0].Operands[1]
	if op.Label != "done" || op.Mode != vm.ModeImmediate {
		t.Errorf("unexpected operand %+v", op)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"duplicate label", "a: HALT\na: HALT", "duplicate label"},
		{"missing operand", "ADD 1,,2, 3", "missing operand"},
		{"missing comma", "ADD 1 2, 3", "expected ','"},
		{"trailing comma", "OUT 1,", "trailing ','"},
		{"stray token", "42", "unexpected token"},
		{"bad operand", "OUT #,", "unexpected token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(tt.input).Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
