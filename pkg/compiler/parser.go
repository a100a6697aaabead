package compiler

import (
	"fmt"
	"strconv"

	"github.com/akhildatla/intcode/pkg/vm"
)

// Operand represents an instruction operand: a literal or a label
// reference, in one of the three addressing modes.
type Operand struct {
	Mode   vm.Mode
	IntVal int64  // For integer literals
	Label  string // For label references, resolved by the compiler
}

// AsmInstruction represents a parsed instruction or DATA directive.
type AsmInstruction struct {
	Opcode   string
	Operands []Operand
	Line     int
}

// AsmProgram represents a parsed assembly program.
type AsmProgram struct {
	Instructions []AsmInstruction
	Labels       map[string]int // label -> instruction index it precedes
}

// Parser parses intcode assembly source.
type Parser struct {
	tokens  []Token
	pos     int
	program *AsmProgram
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	lexer := NewLexer(input)
	tokens := lexer.Tokenize()
	return &Parser{
		tokens: tokens,
		pos:    0,
		program: &AsmProgram{
			Instructions: []AsmInstruction{},
			Labels:       make(map[string]int),
		},
	}
}

// Parse parses the entire input and returns the program.
func (p *Parser) Parse() (*AsmProgram, error) {
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]

		switch tok.Type {
		case TokenEOF:
			return p.program, nil

		case TokenNewline:
			p.pos++

		case TokenIdent:
			if p.peek(1).Type == TokenColon {
				if err := p.parseLabel(); err != nil {
					return nil, err
				}
				continue
			}
			inst, err := p.parseInstruction()
			if err != nil {
				return nil, err
			}
			p.program.Instructions = append(p.program.Instructions, inst)

		default:
			return nil, fmt.Errorf("line %d: unexpected token: %s %q", tok.Line, tok.Type, tok.Value)
		}
	}

	return p.program, nil
}

func (p *Parser) peek(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) parseLabel() error {
	tok := p.tokens[p.pos]
	if _, exists := p.program.Labels[tok.Value]; exists {
		return fmt.Errorf("line %d: duplicate label: %s", tok.Line, tok.Value)
	}
	p.program.Labels[tok.Value] = len(p.program.Instructions)
	p.pos += 2 // label and colon
	return nil
}

func (p *Parser) parseInstruction() (AsmInstruction, error) {
	inst := AsmInstruction{
		Opcode:   p.tokens[p.pos].Value,
		Line:     p.tokens[p.pos].Line,
		Operands: []Operand{},
	}
	p.pos++ // Consume opcode

	expectOperand := true
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]

		if tok.Type == TokenNewline || tok.Type == TokenEOF {
			break
		}

		if tok.Type == TokenComma {
			if expectOperand {
				return inst, fmt.Errorf("line %d: missing operand before ','", tok.Line)
			}
			expectOperand = true
			p.pos++
			continue
		}

		if !expectOperand {
			return inst, fmt.Errorf("line %d: expected ',' before %q", tok.Line, tok.Value)
		}

		operand, err := p.parseOperand()
		if err != nil {
			return inst, err
		}
		inst.Operands = append(inst.Operands, operand)
		expectOperand = false
	}

	if expectOperand && len(inst.Operands) > 0 {
		return inst, fmt.Errorf("line %d: trailing ','", inst.Line)
	}

	return inst, nil
}

func (p *Parser) parseOperand() (Operand, error) {
	operand := Operand{Mode: vm.ModePosition}

	switch p.tokens[p.pos].Type {
	case TokenHash:
		operand.Mode = vm.ModeImmediate
		p.pos++
	case TokenAt:
		operand.Mode = vm.ModeRelative
		p.pos++
	}

	tok := p.peek(0)
	switch tok.Type {
	case TokenInt:
		intVal, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("line %d: invalid integer: %s", tok.Line, tok.Value)
		}
		operand.IntVal = intVal
		p.pos++
		return operand, nil

	case TokenIdent:
		operand.Label = tok.Value
		p.pos++
		return operand, nil

	default:
		return Operand{}, fmt.Errorf("line %d: unexpected token: %q", tok.Line, tok.Value)
	}
}
