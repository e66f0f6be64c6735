package subaru

import (
	"errors"
	"runtime"

	"github.com/gookit/color"
)

// Global variables
var (
	rootDir      string
	CacheDir     string
	BinDir       string
	Installed    string
	IndexCache   string
	Debug        bool
	Verbose      bool
	ConfigFile   = "/etc/subaru.conf"
	BinaryMirror string
	LockFile     = "/etc/subaru.lock"
	version      = "dev" // default version; overridden at build time
	arch         = runtime.GOARCH
	buildDate    = "unknown" // overridden at build time

	errPackageNotFound = errors.New("package not found")
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
