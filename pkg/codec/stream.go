package codec

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

type streamState int

const (
	stateInitial streamState = iota
	stateRunning
	stateFailing
	stateDone
)

// Option configures a Stream.
type Option func(*Stream)

// WithRegistry tracks the stream's scope id in r.
func WithRegistry(r *Registry) Option {
	return func(s *Stream) { s.reg = r }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) {
		if l != nil {
			s.logger = l
		}
	}
}

// Stream produces the frames for one value. The first frame binds the value
// to its scope, later frames settle promises, and exactly one terminal frame
// (close or error) ends it.
//
// Next must be called from a single goroutine. Close may be called from any.
type Stream struct {
	ctx    context.Context
	id     string
	root   any
	enc    *encoder
	reg    *Registry
	logger *slog.Logger

	state   streamState
	failErr error
	waiting map[int]*Promise
	claimed bool
	opened  bool
	openErr error

	settled chan int
	quit    chan struct{}
	once    sync.Once

	buf []byte
}

// EncodeStream returns a stream that serializes value under scopeID.
// Frames are produced lazily by Next, Read or WriteTo.
func EncodeStream(ctx context.Context, scopeID string, value any, opts ...Option) *Stream {
	s := &Stream{
		ctx:     ctx,
		id:      scopeID,
		root:    value,
		enc:     newEncoder(scopeID),
		logger:  slog.Default().With("component", "codec"),
		waiting: make(map[int]*Promise),
		settled: make(chan int),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the scope id.
func (s *Stream) ID() string {
	return s.id
}

// Open claims the scope id in the registry. Next calls it for the first
// frame; callers that must pick a status before streaming call it earlier.
// When the id is already in use the stream yields a single error frame.
func (s *Stream) Open() error {
	if s.claimed {
		return s.openErr
	}
	s.claimed = true
	if err := s.reg.Open(s.id); err != nil {
		s.openErr = err
		return err
	}
	s.opened = true
	return nil
}

// Next returns the next frame. It blocks while promises are pending and
// returns io.EOF after the terminal frame or once the stream is closed.
func (s *Stream) Next() ([]byte, error) {
	switch s.state {
	case stateDone:
		return nil, io.EOF

	case stateInitial:
		if err := s.Open(); err != nil {
			// The scope belongs to another stream, so it is not deleted.
			s.state = stateDone
			s.finish(false)
			return []byte("$R.e(" + quote(s.id) + "," + errorExpr(err) + ");\n"), nil
		}
		expr, err := s.enc.expression(s.root)
		if err != nil {
			s.state = stateFailing
			s.failErr = err
			return []byte(s.enc.scope + "=[];\n"), nil
		}
		s.state = stateRunning
		s.watch()
		return []byte("(" + s.enc.scope + "=[]," + expr + ");\n"), nil

	case stateFailing:
		return s.terminate(s.failErr), nil
	}

	if len(s.waiting) == 0 {
		s.state = stateDone
		s.finish(false)
		return []byte("delete " + s.enc.scope + ";\n"), nil
	}

	select {
	case slot := <-s.settled:
		p := s.waiting[slot]
		delete(s.waiting, slot)
		v, perr := p.result()
		ref := s.enc.slotRef(slot)
		if perr != nil {
			return []byte("$R.j(" + ref + "," + errorExpr(perr) + ");\n"), nil
		}
		expr, err := s.enc.expression(v)
		if err != nil {
			return s.terminate(err), nil
		}
		s.watch()
		return []byte("$R.r(" + ref + "," + expr + ");\n"), nil

	case <-s.ctx.Done():
		return s.terminate(s.ctx.Err()), nil

	case <-s.quit:
		s.state = stateDone
		return nil, io.EOF
	}
}

// terminate produces the error frame and ends the stream.
func (s *Stream) terminate(err error) []byte {
	s.state = stateDone
	s.finish(false)
	return []byte("$R.e(" + quote(s.id) + "," + errorExpr(err) + ");delete " + s.enc.scope + ";\n")
}

// watch starts a goroutine for every promise discovered by the encoder.
func (s *Stream) watch() {
	for _, p := range s.enc.takePending() {
		s.waiting[p.slot] = p.promise
		go func(slot int, p *Promise) {
			select {
			case <-p.Done():
				select {
				case s.settled <- slot:
				case <-s.quit:
				}
			case <-s.quit:
			}
		}(p.slot, p.promise)
	}
}

func (s *Stream) finish(abandoned bool) {
	s.once.Do(func() {
		if s.opened {
			s.reg.release(s.id, abandoned)
			if abandoned && s.reg == nil {
				s.logger.Error("stream closed before terminal frame", "scope", s.id)
			}
		}
		close(s.quit)
	})
}

// Close releases the stream. Closing before the terminal frame was produced
// abandons the scope and is reported as a violation.
func (s *Stream) Close() error {
	s.finish(true)
	return nil
}

// Abort releases the stream without reporting a violation. It is used when
// the transport fails and no further frame can be delivered.
func (s *Stream) Abort() {
	s.finish(false)
}

// Read implements io.Reader over the frame sequence.
func (s *Stream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		frame, err := s.Next()
		if err != nil {
			return 0, err
		}
		s.buf = frame
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// WriteTo writes every frame to w, flushing after each one when w supports
// it. A write error aborts the stream.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	flusher, _ := w.(http.Flusher)
	var total int64
	for {
		frame, err := s.Next()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(frame)
		total += int64(n)
		if err != nil {
			s.Abort()
			return total, err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Encode serializes a value with no pending promises into one complete
// payload: the initial frame followed by the close frame. A value that
// cannot be encoded yields the marker frame and an error frame.
func Encode(ctx context.Context, scopeID string, value any, opts ...Option) ([]byte, error) {
	s := EncodeStream(ctx, scopeID, value, opts...)
	defer s.Close()
	var out []byte
	for {
		frame, err := s.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, frame...)
	}
}
