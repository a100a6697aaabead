package vm

import "fmt"

// maxCells bounds memory growth, with or without an explicit limit.
const maxCells = 1 << 32

// Memory is a linear, zero-initialised store of cells that grows on write.
// It never shrinks.
type Memory struct {
	cells []int64
	limit int64 // maximum number of cells, zero means maxCells
}

// NewMemory creates memory holding a copy of cells.
func NewMemory(cells []int64) Memory {
	c := make([]int64, len(cells))
	copy(c, cells)
	return Memory{cells: c}
}

// Len returns the number of addressable cells currently allocated.
func (m *Memory) Len() int {
	return len(m.cells)
}

// Read returns the cell at addr. Cells past the end read as zero.
func (m *Memory) Read(addr int64) (int64, error) {
	if addr < 0 {
		return 0, fmt.Errorf("%w: read at %d", ErrInvalidAddress, addr)
	}
	if addr >= int64(len(m.cells)) {
		return 0, nil
	}
	return m.cells[addr], nil
}

// Write stores value at addr, zero-extending memory up to and including
// addr when needed.
func (m *Memory) Write(addr, value int64) error {
	if addr < 0 {
		return fmt.Errorf("%w: write at %d", ErrInvalidAddress, addr)
	}
	if addr >= int64(len(m.cells)) {
		if err := m.grow(addr + 1); err != nil {
			return err
		}
	}
	m.cells[addr] = value
	return nil
}

func (m *Memory) grow(n int64) error {
	limit := m.limit
	if limit <= 0 || limit > maxCells {
		limit = maxCells
	}
	// n wraps negative for a write at math.MaxInt64.
	if n > limit || n < 0 {
		return fmt.Errorf("%w: %d cells requested, limit %d", ErrMemoryLimit, n, limit)
	}
	if n <= int64(cap(m.cells)) {
		old := len(m.cells)
		m.cells = m.cells[:n]
		clear(m.cells[old:])
		return nil
	}
	m.cells = append(m.cells, make([]int64, n-int64(len(m.cells)))...)
	return nil
}

// Cells returns a copy of the allocated cells.
func (m *Memory) Cells() []int64 {
	c := make([]int64, len(m.cells))
	copy(c, m.cells)
	return c
}

// clone returns an independent copy that shares no backing array.
func (m *Memory) clone() Memory {
	c := NewMemory(m.cells)
	c.limit = m.limit
	return c
}
