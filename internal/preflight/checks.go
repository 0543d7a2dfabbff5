package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"stereocap/internal/control"
	"stereocap/internal/geometry"
)

// minFreeBytes is the smallest acceptable free space on the session database
// filesystem. Session rows are tiny; running this low means the disk has
// bigger problems.
const minFreeBytes = 16 << 20

// CheckResolution verifies the configured label resolves to known geometry.
func CheckResolution(label string) Result {
	const name = "Resolution"
	entry, err := geometry.Lookup(label)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q (known: %s)", label, strings.Join(geometry.Labels(), ", "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s", strings.ToUpper(label), entry.String())}
}

// CheckAddress verifies an endpoint parses as tcp://host:port.
func CheckAddress(name, address string) Result {
	hostPort, err := control.ParseAddress(address)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", address, err)}
	}
	return Result{Name: name, Passed: true, Detail: hostPort}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has headroom for the
// session database.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d MiB free, need %d MiB)", path, free>>20, minFreeBytes>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}
