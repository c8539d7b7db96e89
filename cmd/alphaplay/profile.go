package main

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
)

// cpuProfile writes a CPU profile to a file between start and stop.
type cpuProfile struct {
	path string
	file *os.File
}

func startCPUProfile(path string) (*cpuProfile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "startCPUProfile",
		"path":     path,
	}).Info("CPU profiling started")
	return &cpuProfile{path: path, file: f}, nil
}

func (p *cpuProfile) stop() {
	if p == nil {
		return
	}
	pprof.StopCPUProfile()
	if err := p.file.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "cpuProfile.stop",
			"path":     p.path,
			"error":    err.Error(),
		}).Warn("Failed to close CPU profile")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "cpuProfile.stop",
		"path":     p.path,
	}).Info("CPU profiling stopped")
}

// withRenderLabels runs fn with pprof labels naming the source, so samples
// from concurrent renders can be told apart.
func withRenderLabels(ctx context.Context, source string, fn func(ctx context.Context)) {
	pprof.Do(ctx, pprof.Labels("component", "render", "source", shortIdentity(source)), fn)
}
