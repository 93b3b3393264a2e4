package vdl2

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/husky/src.HUSKY_VERSION=X'"`
var HUSKY_VERSION string

type build_details struct {
	version  string
	revision string
	time     string
	info     *debug.BuildInfo
}

func read_build_details() build_details {
	var d = build_details{version: HUSKY_VERSION, revision: "UNKNOWN", time: "UNKNOWN", info: nil}

	var bi, ok = debug.ReadBuildInfo()
	if !ok {
		return d
	}
	d.info = bi

	// `go install module@version` fills this in when ldflags didn't.
	if d.version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		d.version = bi.Main.Version
	}

	var settings = map[string]string{}
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}

	if t, found := settings["vcs.time"]; found {
		d.time = t
	}
	if rev, found := settings["vcs.revision"]; found {
		d.revision = rev
		if dirty, err := strconv.ParseBool(settings["vcs.modified"]); err != nil {
			d.revision += "-UNKNOWNDIRTY"
		} else if dirty {
			d.revision += "-DIRTY"
		}
	}

	return d
}

var build = sync.OnceValue(read_build_details)

func version_string() string {
	var v = build().version
	if v == "" {
		return "!UNKNOWN!"
	}
	return v
}

func printVersion(verbose bool) {
	var d = build()

	fmt.Printf("Husky - Version %s (revision %s, built at %s)\n", version_string(), d.revision, d.time)

	if verbose && d.info != nil {
		fmt.Printf("\n%s", d.info)
	}
}
