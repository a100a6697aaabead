package loader

import (
	"os"

	"github.com/akhildatla/intcode/pkg/vm"
)

// LoadImage reads a program compiled to the .icbc image format.
func LoadImage(path string) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vm.DeserializeProgram(data)
}
