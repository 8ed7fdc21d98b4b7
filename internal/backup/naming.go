package backup

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	snapshotPrefix = "pre_migration_"
	snapshotExt    = ".db"
	restorePrefix  = "pre_restore_"
)

var snapshotPattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`^pre_migration_v(\d+)_(\d+)\.db$`,
)

// SnapshotName returns the file name for a snapshot taken before migrating to
// targetVersion at the given unix time.
func SnapshotName(targetVersion uint32, unix int64) string {
	return fmt.Sprintf("%sv%d_%d%s", snapshotPrefix, targetVersion, unix, snapshotExt)
}

// ParseSnapshotName extracts the target version and unix timestamp from a
// snapshot file name.
func ParseSnapshotName(name string) (targetVersion uint32, unix int64, ok bool) {
	m := snapshotPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}

	v, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, 0, false
	}

	ts, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	return uint32(v), ts, true
}
