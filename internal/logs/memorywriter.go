package logs

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryWriter keeps the first startCount lines of a run forever and rotates
// the rest, so the status page can show both how the tool was configured and
// what the adapter did last.

// long lines are cut, a single line never grows the buffer unbounded
const maxLineLength = 500

type MemoryWriter struct {
	maxLineCount int
	startCount   int
	lines        [][]byte // lines include newlines
	startLines   [][]byte
	startTime    time.Time
	outWriter    io.Writer
	printTime    bool
	now          func() time.Time
	mutex        sync.Mutex
}

func NewMemoryWriter(size int, startSize int, printTime bool, out io.Writer) (*MemoryWriter, error) {
	if size < 1 {
		return nil, errors.New("size cannot be <1")
	}
	if startSize < 1 {
		return nil, errors.New("start size cannot be <1")
	}
	return &MemoryWriter{
		maxLineCount: size,
		startCount:   startSize,
		lines:        make([][]byte, 0, size),
		startLines:   make([][]byte, 0, startSize),
		startTime:    time.Now(),
		printTime:    printTime,
		outWriter:    out,
		now:          time.Now,
	}, nil
}

func (m *MemoryWriter) Write(p []byte) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	n := len(p)
	if len(p) > maxLineLength {
		p = p[:maxLineLength]
	}

	var line []byte
	if m.printTime {
		now := m.now()
		line = []byte(fmt.Sprintf("[%.6f : %s] %s",
			now.Sub(m.startTime).Seconds(), now.Format("15:04:05"), p))
	} else {
		line = make([]byte, len(p))
		copy(line, p)
	}

	if len(m.startLines) < m.startCount {
		m.startLines = append(m.startLines, line)
	} else {
		for len(m.lines) >= m.maxLineCount {
			m.lines = m.lines[1:]
		}
		m.lines = append(m.lines, line)
	}

	if m.outWriter != nil {
		if _, err := m.outWriter.Write(line); err != nil {
			// give up, just print on stdout
			fmt.Println(err)
		}
	}
	return n, nil
}

// writeTo exports header, then the rotated lines newest first, then the
// start lines newest first.
func (m *MemoryWriter) writeTo(header string, w io.Writer) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	for i := len(m.lines) - 1; i >= 0; i-- {
		if _, err := w.Write(m.lines[i]); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "...\n"); err != nil {
		return err
	}
	for i := len(m.startLines) - 1; i >= 0; i-- {
		if _, err := w.Write(m.startLines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryWriter) String(header string) (string, error) {
	var b bytes.Buffer
	if err := m.writeTo(header, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Gzip exports the same text as String, compressed as log.txt.
func (m *MemoryWriter) Gzip(header string) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	gw.Name = "log.txt"
	if err = m.writeTo(header, gw); err != nil {
		return nil, err
	}
	if err = gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
