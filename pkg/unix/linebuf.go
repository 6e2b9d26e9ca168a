package unix

import "bytes"

// lineBuffer assembles complete lines from arbitrarily chunked data.
// Connections deliver whatever the transport read, which may split or merge
// lines; parsers only ever see whole ones.
type lineBuffer struct {
	pending []byte
}

// feed appends data and returns the complete lines now available, without
// their trailing newline. Carriage returns are stripped.
func (b *lineBuffer) feed(data []byte) []string {
	b.pending = append(b.pending, data...)

	var lines []string
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			return lines
		}
		line := bytes.TrimRight(b.pending[:i], "\r")
		lines = append(lines, string(line))
		b.pending = b.pending[i+1:]
	}
}
