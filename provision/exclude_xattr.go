//go:build linux || darwin

package provision

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// XattrExcluder sets the platform's backup exclusion extended attribute.
type XattrExcluder struct{}

func (XattrExcluder) Exclude(path string) error {
	if err := unix.Setxattr(path, backupExcludeAttr, backupExcludeValue, 0); err != nil {
		return fmt.Errorf("set %s on %s: %w", backupExcludeAttr, path, err)
	}
	return nil
}
