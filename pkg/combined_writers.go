package pkg

import (
	"io"
	"sync"

	"go.uber.org/multierr"
)

// CombinedWriter copies every write to all of its writers, e.g. stdout and a log file.
// A failing writer does not stop the others: the write counts as done when at least
// one writer took all of p, and the failures are returned combined.
type CombinedWriter struct {
	writers []io.Writer

	mutex    sync.Mutex
	failures int
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		writers: writers,
	}
}

func (cw *CombinedWriter) Write(p []byte) (int, error) {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	var (
		combinedErr error
		delivered   bool
	)
	for _, w := range cw.writers {
		n, err := w.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		if err != nil {
			cw.failures++
			combinedErr = multierr.Append(combinedErr, err)
			continue
		}
		delivered = true
	}

	if !delivered && len(cw.writers) > 0 {
		return 0, combinedErr
	}
	return len(p), combinedErr
}

// Failures returns how many single writer writes failed so far.
func (cw *CombinedWriter) Failures() int {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	return cw.failures
}
