package llm

import (
	"context"
	"io"
)

const fragmentBuffer = 64

// Stream is a lazy sequence of text fragments fed by a producer goroutine.
//
// Recv returns io.EOF once the provider finished successfully. Any other
// error is the terminal failure of the call.
type Stream struct {
	fragments chan string
	err       error
	cancel    context.CancelFunc
}

// Producer pushes fragments through emit and returns the terminal error.
type Producer func(ctx context.Context, emit func(string) error) error

// NewStream runs produce in a goroutine and exposes its fragments. The
// producer context is cancelled by Close.
func NewStream(ctx context.Context, produce Producer) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		fragments: make(chan string, fragmentBuffer),
		cancel:    cancel,
	}

	go func() {
		defer close(s.fragments)

		emit := func(text string) error {
			if text == "" {
				return nil
			}
			select {
			case s.fragments <- text:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		// err is published by close(s.fragments).
		s.err = produce(ctx, emit)
	}()

	return s
}

// Recv returns the next fragment.
func (s *Stream) Recv() (string, error) {
	text, ok := <-s.fragments
	if ok {
		return text, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

// Close cancels the producer and waits for it to exit.
func (s *Stream) Close() error {
	s.cancel()
	for range s.fragments {
	}
	return nil
}

// Collect drains the stream into one string.
func Collect(s *Stream) (string, error) {
	defer s.Close()

	var text string
	for {
		frag, err := s.Recv()
		if err == io.EOF {
			return text, nil
		}
		if err != nil {
			return text, err
		}
		text += frag
	}
}
