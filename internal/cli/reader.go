package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because its context
// ended.
var ErrInputCancelled = errors.New("input canceled")

type line struct {
	err  error
	text string
}

// LineReader reads terminal input line by line without blocking past a
// context. One goroutine pumps lines from the source, so a read abandoned by
// its context does not swallow the next line.
type LineReader struct {
	err   error
	src   *bufio.Reader
	lines chan line
	start sync.Once
	mu    sync.Mutex
}

// NewLineReader creates a reader over src. The pump starts on the first read.
func NewLineReader(src io.Reader) *LineReader {
	return &LineReader{
		src:   bufio.NewReader(src),
		lines: make(chan line),
	}
}

func (r *LineReader) pump() {
	for {
		text, err := r.src.ReadString('\n')
		if text != "" {
			r.lines <- line{text: text}
		}
		if err != nil {
			r.lines <- line{err: err}
			return
		}
	}
}

// next returns the raw next line, including its newline. Once the source
// fails every later call returns the same error.
func (r *LineReader) next(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.start.Do(func() { go r.pump() })

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case l := <-r.lines:
		if l.err != nil {
			r.err = l.err
		}
		return l.text, l.err
	}
}

// ReadLine returns the next line with surrounding whitespace removed.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	text, err := r.next(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ReadBlock reads lines until an empty line or EOF and joins them. Pasted
// conversations are read this way.
func (r *LineReader) ReadBlock(ctx context.Context) (string, error) {
	var lines []string
	for {
		text, err := r.next(ctx)
		if errors.Is(err, io.EOF) && len(lines) > 0 {
			break
		}
		if err != nil {
			return "", err
		}

		text = strings.TrimRight(text, "\r\n")
		if strings.TrimSpace(text) == "" {
			break
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n"), nil
}
