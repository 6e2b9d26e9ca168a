package unix

import (
	"regexp"
	"strconv"

	"github.com/termprobe/termprobe-go/pkg/observer"
)

// Usage is the parsed result of a du summary line.
type Usage struct {
	// Size is in the units du printed, blocks by default.
	Size int64
	Path string
}

var duSummaryRe = regexp.MustCompile(`^(\d+)\s+(\S+)$`)

// DiskUsage runs "du -s <path>" and completes with the summary line.
type DiskUsage struct {
	observer.Command
	lines lineBuffer
}

// NewDiskUsage creates a du command for path.
func NewDiskUsage(conn observer.Connection, path string) *DiskUsage {
	return &DiskUsage{
		Command: observer.NewCommand("DiskUsage", "du -s "+path, conn),
	}
}

func (c *DiskUsage) DataReceived(data []byte) error {
	if c.Done() {
		return nil
	}
	for _, line := range c.lines.feed(data) {
		m := duSummaryRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		size, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		return c.SetResult(Usage{Size: size, Path: m[2]})
	}
	return nil
}

var _ observer.Observer = (*DiskUsage)(nil)
