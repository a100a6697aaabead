package vm

import "strings"

// maxASCII is the largest output value treated as a character.
const maxASCII = 127

// EncodeASCII converts text to one input value per byte.
func EncodeASCII(s string) []int64 {
	values := make([]int64, len(s))
	for i := 0; i < len(s); i++ {
		values[i] = int64(s[i])
	}
	return values
}

// DecodeASCII renders output values as text. Values outside the ASCII
// range are returned separately, in order; programs use them to report
// numeric answers after a textual transcript.
func DecodeASCII(values []int64) (string, []int64) {
	var b strings.Builder
	var rest []int64
	for _, v := range values {
		if v >= 0 && v <= maxASCII {
			b.WriteByte(byte(v))
		} else {
			rest = append(rest, v)
		}
	}
	return b.String(), rest
}

// RunASCII feeds line as ASCII input followed by a newline and runs the
// machine. An empty line sends only the newline.
func (m *Machine) RunASCII(line string) (State, error) {
	return m.Run(EncodeASCII(line + "\n")...)
}
