package filters

import "fmt"

// RunLengthDecode decodes the PackBits-style run-length encoding. A length
// byte 0-127 copies the next n+1 bytes literally, 129-255 repeats the next
// byte 257-n times, and 128 marks end of data.
func RunLengthDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	i := 0
	for i < len(data) {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("literal run of %d bytes at offset %d exceeds data", n+1, i)
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("repeat run at offset %d has no byte", i)
			}
			for j := 0; j < 257-n; j++ {
				out = append(out, data[i])
			}
			i++
		}
	}
	return out, nil
}
