package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/alphavideo/video"
)

type frameJob struct {
	seq uint64
	img image.Image
	ts  time.Duration
}

// frameWriter encodes presented frames to numbered PNG files with a pool of
// workers. Present blocks while every worker is busy.
type frameWriter struct {
	dir     string
	jobs    chan frameJob
	encoder png.Encoder

	mu     sync.Mutex
	closed bool
	seq    uint64

	wg      sync.WaitGroup
	written atomic.Uint64

	errOnce sync.Once
	err     error
}

func newFrameWriter(dir string, workers int) *frameWriter {
	workers = max(workers, 1)
	w := &frameWriter{
		dir:     dir,
		jobs:    make(chan frameJob, workers),
		encoder: png.Encoder{CompressionLevel: png.BestSpeed},
	}
	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go w.work()
	}
	return w
}

// Present implements video.Sink. Frames presented after Close are dropped.
func (w *frameWriter) Present(img image.Image, ts time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.seq++
	w.jobs <- frameJob{seq: w.seq, img: img, ts: ts}
}

// forward copies frames from q until it is closed and drained.
func (w *frameWriter) forward(q *video.FrameQueue) {
	for {
		f, ok := q.Next()
		if !ok {
			return
		}
		w.Present(f.Image, f.Timestamp)
	}
}

func (w *frameWriter) work() {
	defer w.wg.Done()
	for job := range w.jobs {
		if err := w.write(job); err != nil {
			w.errOnce.Do(func() { w.err = err })
			logrus.WithFields(logrus.Fields{
				"function": "frameWriter.write",
				"seq":      job.seq,
				"error":    err.Error(),
			}).Error("Failed to write frame")
			continue
		}
		w.written.Add(1)
	}
}

func (w *frameWriter) write(job frameJob) error {
	path := filepath.Join(w.dir, frameFileName(job.seq))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := w.encoder.Encode(f, job.img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.WithFields(logrus.Fields{
			"function":  "frameWriter.write",
			"path":      path,
			"timestamp": job.ts,
		}).Trace("Frame written")
	}
	return nil
}

// Close waits for pending frames and returns the number written along with
// the first write error.
func (w *frameWriter) Close() (uint64, error) {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.written.Load(), w.err
}

func frameFileName(seq uint64) string {
	return fmt.Sprintf("frame_%06d.png", seq)
}
