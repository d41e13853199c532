package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// LowDiskThreshold is the free space below which a run gets a warning
const LowDiskThreshold uint64 = 1 << 30

// CheckDestination returns human readable warnings about where files will be
// written. It never fails the run; a path it cannot inspect yields no warning.
func CheckDestination(dir string) []string {
	var warnings []string

	if IsNetworkDrive(dir) {
		warnings = append(warnings, fmt.Sprintf("%s looks like a network drive, resumed downloads may be slow", dir))
	}

	if free, err := FreeSpace(dir); err == nil && free < LowDiskThreshold {
		warnings = append(warnings, fmt.Sprintf("only %d MiB free on %s", free/(1024*1024), dir))
	}

	return warnings
}

// FreeSpace reports the bytes available to the current user on the volume holding dir
func FreeSpace(dir string) (uint64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage for %s: %w", dir, err)
	}
	return usage.Free, nil
}

// IsNetworkDrive detects if a path is on a network-mounted drive
func IsNetworkDrive(path string) bool {
	// Windows UNC paths, before converting to absolute path
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "\\\\") {
		return true
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	networkPrefixes := []string{
		"/mnt/",     // Linux NFS/SMB mounts
		"/media/",   // Linux removable/network media
		"/Volumes/", // macOS network volumes
	}
	for _, prefix := range networkPrefixes {
		if strings.HasPrefix(absPath, prefix) {
			return true
		}
	}

	lowerPath := strings.ToLower(absPath)
	for _, indicator := range []string{"nfs", "cifs", "smb", "webdav", "sftp"} {
		if strings.Contains(lowerPath, indicator) {
			return true
		}
	}

	return false
}
