package cryptochat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// SpeechIO is an optional voice channel. Speak is fire and forget.
type SpeechIO interface {
	Speak(text string)
	Supported() bool
	// Listen returns one transcript. It fails with ErrSpeechUnsupported or ErrNoSpeech.
	Listen(ctx context.Context) (string, error)
}

// NoSpeech is the SpeechIO used when no voice channel is configured.
type NoSpeech struct{}

func (NoSpeech) Speak(string) {}

func (NoSpeech) Supported() bool { return false }

func (NoSpeech) Listen(context.Context) (string, error) {
	return "", ErrSpeechUnsupported
}

// TranscriptSpeech treats each input line as a recognized utterance and
// prints spoken replies to out. The CLI uses it for its voice mode.
// Close it when done listening so the reader goroutine can exit.
type TranscriptSpeech struct {
	mu      sync.Mutex
	out     io.Writer
	lines   chan lineResult
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type lineResult struct {
	text string
	err  error
}

// NewTranscriptSpeech starts reading lines from in.
func NewTranscriptSpeech(in io.Reader, out io.Writer) *TranscriptSpeech {
	s := &TranscriptSpeech{
		out:     out,
		lines:   make(chan lineResult),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.read(in)
	return s
}

// read stops at the end of input or at the first line offered after Close.
func (s *TranscriptSpeech) read(in io.Reader) {
	defer close(s.stopped)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !s.deliver(lineResult{text: scanner.Text()}) {
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	if s.deliver(lineResult{err: err}) {
		close(s.lines)
	}
}

func (s *TranscriptSpeech) deliver(res lineResult) bool {
	select {
	case s.lines <- res:
		return true
	case <-s.done:
		return false
	}
}

// Close stops listening. A reader blocked inside in.Read exits after its
// next line. Close is safe to call more than once.
func (s *TranscriptSpeech) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *TranscriptSpeech) Speak(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "🔊 %s\n", text)
}

func (s *TranscriptSpeech) Supported() bool { return true }

// Listen waits for the next line. A blank line is ErrNoSpeech; a closed input
// or a closed TranscriptSpeech returns io.EOF.
func (s *TranscriptSpeech) Listen(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", io.EOF
	case res, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			return "", ErrNoSpeech
		}
		return text, nil
	}
}
