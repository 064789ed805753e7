package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// sysfsRoot lists V4L2 devices on Linux; tests point it elsewhere.
var sysfsRoot = "/sys/class/video4linux"

// ErrUnknownCamera is returned when a camera name matches no device.
var ErrUnknownCamera = errors.New("capture: unknown camera")

// CameraInfo is one enumerated video device.
type CameraInfo struct {
	Index int
	Name  string
}

// ListCameras enumerates video devices by index. On systems without V4L2
// sysfs entries it returns nil.
func ListCameras() []CameraInfo {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil
	}
	var out []CameraInfo
	for _, e := range entries {
		idx, ok := strings.CutPrefix(e.Name(), "video")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		name := e.Name()
		if b, err := os.ReadFile(filepath.Join(sysfsRoot, e.Name(), "name")); err == nil {
			if s := strings.TrimSpace(string(b)); s != "" {
				name = s
			}
		}
		out = append(out, CameraInfo{Index: n, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// CameraNames returns the display names of ListCameras.
func CameraNames() []string {
	cams := ListCameras()
	out := make([]string, len(cams))
	for i, c := range cams {
		out[i] = c.Name
	}
	return out
}

// ResolveCamera maps a configured camera name to a device index. Accepted
// forms are a bare index ("0"), a device path ("/dev/video2") or a device
// name as listed by ListCameras. An empty name selects device 0.
func ResolveCamera(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 {
		return n, nil
	}
	if rest, ok := strings.CutPrefix(name, "/dev/video"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
			return n, nil
		}
	}
	for _, c := range ListCameras() {
		if c.Name == name {
			return c.Index, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownCamera, name)
}
