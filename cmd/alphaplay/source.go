package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/alphavideo/asset"
)

const (
	syntheticPrefix = "synthetic:"
	syntheticFrames = 90
)

// openSource resolves a command-line source argument. A directory path opens
// a frame sequence; "synthetic:WxH" or "synthetic:WxHxN" builds a generated
// source of N frames (90 when omitted) rendering at W×H.
func openSource(arg string, frameRate float64) (asset.Source, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, errors.New("source argument is empty")
	}

	if spec, ok := strings.CutPrefix(arg, syntheticPrefix); ok {
		w, h, n, err := parseSyntheticSpec(spec)
		if err != nil {
			return nil, err
		}
		return asset.NewSynthetic(arg, w, h, n, frameRate)
	}

	return asset.OpenSequence(arg, asset.SequenceOptions{FrameRate: frameRate})
}

func parseSyntheticSpec(spec string) (width, height, frames int, err error) {
	parts := strings.Split(strings.ToLower(spec), "x")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("synthetic source %q: want WxH or WxHxN", spec)
	}

	values := []int{0, 0, syntheticFrames}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 1 {
			return 0, 0, 0, fmt.Errorf("synthetic source %q: invalid dimension %q", spec, p)
		}
		values[i] = v
	}
	return values[0], values[1], values[2], nil
}
