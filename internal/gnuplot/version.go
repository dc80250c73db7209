package gnuplot

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/google/shlex"
	"golang.org/x/sync/singleflight"
)

// Oldest gnuplot with inline datablock support.
const (
	minMajor = 4
	minMinor = 7
)

// Version identifies an installed gnuplot build.
type Version struct {
	Major      int
	Minor      int
	Patchlevel string
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d", v.Major, v.Minor)
	if v.Patchlevel != "" {
		s += " patchlevel " + v.Patchlevel
	}
	return s
}

// AtLeast reports whether v is major.minor or newer.
func (v Version) AtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

var (
	versionGroup singleflight.Group
	versionMu    sync.Mutex
	versionCache = map[string]Version{}
)

// QueryVersion runs `<command> --version` and checks the result against the
// minimum supported release. Results are cached per command line and
// concurrent probes for the same command line are deduplicated.
func QueryVersion(commandLine string) (Version, error) {
	versionMu.Lock()
	if v, ok := versionCache[commandLine]; ok {
		versionMu.Unlock()
		return v, nil
	}
	versionMu.Unlock()

	v, err, _ := versionGroup.Do(commandLine, func() (any, error) {
		args, err := shlex.Split(commandLine)
		if err != nil || len(args) == 0 {
			return Version{}, fmt.Errorf("parse command %q: %w", commandLine, ErrSpawn)
		}

		out, err := exec.Command(args[0], append(args[1:], "--version")...).Output()
		if err != nil {
			return Version{}, fmt.Errorf("run %s --version: %v: %w", args[0], err, ErrSpawn)
		}

		ver, err := ParseVersion(string(out))
		if err != nil {
			return Version{}, err
		}
		if !ver.AtLeast(minMajor, minMinor) {
			return Version{}, fmt.Errorf("gnuplot %s is older than required %d.%d: %w",
				ver, minMajor, minMinor, ErrSpawn)
		}

		versionMu.Lock()
		versionCache[commandLine] = ver
		versionMu.Unlock()
		return ver, nil
	})
	if err != nil {
		return Version{}, err
	}
	return v.(Version), nil
}

// ParseVersion parses a banner like "gnuplot 5.4 patchlevel 8".
func ParseVersion(banner string) (Version, error) {
	fields := strings.Fields(banner)
	for i, f := range fields {
		if f != "gnuplot" || i+1 >= len(fields) {
			continue
		}
		maj, min, ok := splitRelease(fields[i+1])
		if !ok {
			break
		}
		v := Version{Major: maj, Minor: min}
		if i+3 < len(fields) && fields[i+2] == "patchlevel" {
			v.Patchlevel = fields[i+3]
		}
		return v, nil
	}
	return Version{}, fmt.Errorf("unrecognized version banner %q: %w", strings.TrimSpace(banner), ErrSpawn)
}

func splitRelease(s string) (major, minor int, ok bool) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
