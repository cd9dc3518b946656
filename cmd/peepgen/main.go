// Command peepgen compiles peephole rewrite rules into Go lookup tables.
package main

import (
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const appName = "peepgen"

var flagVerbose int

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}

// configureLogging maps the -v count onto commonlog verbosity.
func configureLogging() {
	commonlog.Configure(flagVerbose, nil)
}
