package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Program image format:
// - Magic: "ICBC" (4 bytes)
// - Version: uint16
// - NumCells: uint32
// - Cells: []int64, little endian

const (
	BytecodeMagic   = "ICBC"
	BytecodeVersion = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid program image magic")
	ErrInvalidVersion = errors.New("unsupported program image version")
	ErrImageTooLarge  = errors.New("program too large for image")
)

// SerializeProgram encodes cells as a program image.
func SerializeProgram(cells []int64) ([]byte, error) {
	n, err := imageCellCount(int64(len(cells)))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)

	buf.WriteString(BytecodeMagic)

	if err := binary.Write(buf, binary.LittleEndian, uint16(BytecodeVersion)); err != nil {
		return nil, fmt.Errorf("writing version: %w", err)
	}

	if err := binary.Write(buf, binary.LittleEndian, n); err != nil {
		return nil, fmt.Errorf("writing cell count: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, cells); err != nil {
		return nil, fmt.Errorf("writing cells: %w", err)
	}

	return buf.Bytes(), nil
}

// imageCellCount checks that n fits the image's 32-bit cell count.
func imageCellCount(n int64) (uint32, error) {
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d cells", ErrImageTooLarge, n)
	}
	return uint32(n), nil
}

// DeserializeProgram decodes a program image back into cells.
func DeserializeProgram(data []byte) ([]int64, error) {
	buf := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(buf, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != BytecodeMagic {
		return nil, ErrInvalidMagic
	}

	var version uint16
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != BytecodeVersion {
		return nil, ErrInvalidVersion
	}

	var n uint32
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("reading cell count: %w", err)
	}
	if int64(n)*8 > int64(buf.Len()) {
		return nil, fmt.Errorf("reading cells: %w", io.ErrUnexpectedEOF)
	}
	cells := make([]int64, n)
	if err := binary.Read(buf, binary.LittleEndian, cells); err != nil {
		return nil, fmt.Errorf("reading cells: %w", err)
	}

	return cells, nil
}

// Disassemble renders cells as an assembly listing. Decoding starts at
// address 0 and proceeds instruction by instruction. Cells that do not
// decode, or whose parameters run past the end, are listed as DATA.
func Disassemble(cells []int64) string {
	var buf strings.Builder

	buf.WriteString("; Disassembled intcode program\n")
	buf.WriteString(fmt.Sprintf("; %d cells\n\n", len(cells)))

	for addr := 0; addr < len(cells); {
		inst, err := Decode(cells[addr])
		size := int(inst.Size())
		if err != nil || addr+size > len(cells) {
			buf.WriteString(fmt.Sprintf("%04d: %-5s %d\n", addr, "DATA", cells[addr]))
			addr++
			continue
		}
		buf.WriteString(fmt.Sprintf("%04d: %s\n", addr, disassembleInstruction(inst, cells[addr+1:addr+size])))
		addr += size
	}

	return buf.String()
}

func disassembleInstruction(inst Instruction, params []int64) string {
	if len(params) == 0 {
		return inst.Op.String()
	}
	operands := make([]string, len(params))
	for i, p := range params {
		operands[i] = FormatOperand(inst.Modes[i], p)
	}
	return fmt.Sprintf("%-5s %s", inst.Op.String(), strings.Join(operands, ", "))
}

// FormatOperand renders a parameter in assembler syntax: position operands
// are bare, immediate operands are prefixed with '#' and relative operands
// with '@'.
func FormatOperand(m Mode, v int64) string {
	switch m {
	case ModeImmediate:
		return fmt.Sprintf("#%d", v)
	case ModeRelative:
		return fmt.Sprintf("@%d", v)
	default:
		return fmt.Sprintf("%d", v)
	}
}
