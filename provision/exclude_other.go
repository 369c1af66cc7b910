//go:build !linux && !darwin

package provision

import "errors"

var ErrExcludeUnsupported = errors.New("provision: backup exclusion is not supported on this platform")

type XattrExcluder struct{}

func (XattrExcluder) Exclude(path string) error { return ErrExcludeUnsupported }
