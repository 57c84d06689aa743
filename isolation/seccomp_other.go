//go:build !linux

package isolation

import (
	"os"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

func seccompFile() (*os.File, error) {
	return nil, platformerrors.New(platformerrors.CodeUnavailable, "seccomp requires linux")
}
