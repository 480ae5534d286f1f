package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/zeu5/avgrl-bench/benchmarks"
)

// main entry point to all the benchmarks
func main() {
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	// rootCommand defines a command line argument parser (some arguments and a subcommand to run)
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		glog.Flush()
		os.Exit(1)
	}
}
