package vm

// Registers holds the executor's control registers.
type Registers struct {
	Pointer      int64 // Address of the next instruction
	RelativeBase int64 // Offset added to relative-mode parameters
}

// Reset clears all registers.
func (r *Registers) Reset() {
	r.Pointer = 0
	r.RelativeBase = 0
}
