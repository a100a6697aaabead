package loader

import (
	"os"

	"github.com/akhildatla/intcode/pkg/vm"
)

// LoadText reads a comma-separated program file.
func LoadText(path string) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vm.ParseProgram(string(data))
}
