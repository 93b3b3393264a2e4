package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:	Diagnostic output for the decoder and dissectors.
 *
 * Description:	Everything goes through one charmbracelet/log logger.
 *		Level 0 shows only errors, 1 adds progress information,
 *		2 and above adds the reasons frames were dropped along
 *		with hex dumps of what was dropped.
 *
 *------------------------------------------------------------------*/

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ //nolint:gochecknoglobals,exhaustruct
	ReportTimestamp: true,
	Prefix:          "husky",
})

var debug_level int

func log_init(level int) {
	debug_level = level

	switch {
	case level <= 0:
		logger.SetLevel(log.ErrorLevel)
	case level == 1:
		logger.SetLevel(log.InfoLevel)
	default:
		logger.SetLevel(log.DebugLevel)
	}
}

// Redirect diagnostics, mostly for tests.
func log_set_output(w io.Writer) {
	logger.SetOutput(w)
}

// LogInit is the exported form of log_init for the command line programs.
func LogInit(level int) {
	log_init(level)
}

func init() {
	log_init(1)
}
