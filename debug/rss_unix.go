//go:build unix

package debug

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var statmPath = "/proc/self/statm"

// residentSet reads the resident page count from procfs, falling back to
// the peak RSS from getrusage where procfs is missing (reported in
// bytes on darwin, kilobytes elsewhere).
func residentSet() (uint64, error) {
	if data, err := os.ReadFile(statmPath); err == nil {
		var size, resident uint64
		if _, err := fmt.Sscan(string(data), &size, &resident); err != nil {
			return 0, fmt.Errorf("parse %s: %w", statmPath, err)
		}
		return resident * uint64(os.Getpagesize()), nil
	}
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, err
	}
	if runtime.GOOS == "darwin" {
		return uint64(ru.Maxrss), nil
	}
	return uint64(ru.Maxrss) * 1024, nil
}
