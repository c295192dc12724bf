package apt

import (
	"errors"
	"fmt"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// NotInstalledError reports a package with no installed version.
type NotInstalledError struct {
	Package string
}

// NewNotInstalledError returns a NotInstalledError for pkg.
func NewNotInstalledError(pkg string) *NotInstalledError {
	return &NotInstalledError{Package: pkg}
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf(messages.AptNotInstalledFmt, e.Package)
}

// IsNotInstalledError reports whether err wraps a NotInstalledError.
func IsNotInstalledError(err error) bool {
	var e *NotInstalledError
	return errors.As(err, &e)
}
