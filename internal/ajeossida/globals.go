package ajeossida

import (
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/gookit/color"
)

// We use a value of 1 while the workspace is being wiped or artifacts are
// being moved, 0 otherwise.
var isCriticalAtomic atomic.Int32

var (
	ConfigFile = "/etc/ajeossida.conf"
	Debug      bool
	version    = "dev" // overridden at build time
	arch       = runtime.GOARCH
	buildDate  = "unknown" // overridden at build time

	ErrNDKNotFound = errors.New("no matching Android NDK found")
	ErrPatchLength = errors.New("byte patch search and replace differ in length")
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
