package benchmarks

import (
	"os"
	"path"
	"runtime"
	"runtime/pprof"

	"github.com/golang/glog"
)

// startProfiling starts the CPU profile and returns the function that
// stops it and writes the memory profile
func startProfiling(saveFile, cpuprofile, memprofile string) (func(), error) {
	var cpuFile *os.File
	if cpuprofile != "" {
		if err := os.MkdirAll(saveFile, os.ModePerm); err != nil {
			return nil, err
		}
		cpuProfPath := path.Join(saveFile, cpuprofile)
		glog.Infof("profiling CPU to %s", cpuProfPath)
		f, err := os.Create(cpuProfPath)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, err
		}
		cpuFile = f
	}

	return func() {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}
		if memprofile == "" {
			return
		}
		memProfPath := path.Join(saveFile, memprofile)
		glog.Infof("profiling memory to %s", memProfPath)
		f, err := os.Create(memProfPath)
		if err != nil {
			glog.Errorf("could not create memory profile: %s", err)
			return
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			glog.Errorf("could not write memory profile: %s", err)
		}
	}, nil
}
