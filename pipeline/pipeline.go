/*
Package pipeline owns the wire codec and framing for one TCP socket: it
turns outgoing wire.PackageOut values into frame.Frame bytes and
incoming frame.Frame bytes back into wire.PackageIn values, handing
them to the ConnectionManager through a sink callback. Its death — a
read error, a write error, a closed socket — is a fatal session event
the manager must observe and react to by reconnecting.

The read/write split and the buffered write channel are taken from the
teacher's Connection: a dedicated writeLoop so a slow socket write
never blocks whatever goroutine is submitting commands, and a
closeChan/closeOnce pair so every exit path — read failure, write
failure, explicit Close — tears the pipeline down exactly once.
*/
package pipeline

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vectorlog/client-go/codec"
	"github.com/vectorlog/client-go/corrid"
	"github.com/vectorlog/client-go/frame"
	"github.com/vectorlog/client-go/wire"
)

// ErrClosed is returned by Command once the pipeline has been closed
// or has died.
var ErrClosed = errors.New("pipeline: closed")

// Codec encodes and decodes application message bodies. codec.JSON
// satisfies it; callers may supply their own.
type Codec interface {
	Encode(wire.Message) ([]byte, error)
	Decode([]byte) (wire.Message, error)
}

// writeBufferSize is enough to absorb a burst of outgoing commands
// without blocking the caller while writeLoop catches up.
const writeBufferSize = 256

// WriteTimeout bounds a single frame write, preventing a stalled
// socket from wedging writeLoop forever.
const WriteTimeout = 10 * time.Second

// Pipeline is a single TCP connection's codec and framing adapter. It
// is not reconnect-aware; one Pipeline corresponds to exactly one live
// socket, and the ConnectionManager constructs a fresh one per
// connection attempt.
type Pipeline struct {
	conn   net.Conn
	reader *bufio.Reader
	codec  Codec
	sink   func(wire.PackageIn)
	log    *logrus.Entry

	writeChan chan wire.PackageOut
	closeChan chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// New wraps conn. sink is invoked from the internal read goroutine for
// every decoded inbound package; it must not block for long.
func New(conn net.Conn, c Codec, sink func(wire.PackageIn), log *logrus.Entry) *Pipeline {
	if c == nil {
		c = codec.NewJSON()
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		conn:      conn,
		reader:    bufio.NewReader(conn),
		codec:     c,
		sink:      sink,
		log:       log,
		writeChan: make(chan wire.PackageOut, writeBufferSize),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the read and write goroutines. Called at most once.
func (p *Pipeline) Start() {
	go p.readLoop()
	go p.writeLoop()
}

// Done is closed once the pipeline has stopped, whether by explicit
// Close or by a fatal read/write error. Err reports the cause.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Err returns the error that killed the pipeline, or nil if it was
// closed cleanly or is still running.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Command enqueues pkg for transmission. It does not block on the
// network; it only blocks if the write buffer is full, exerting
// backpressure on the caller rather than silently dropping commands:
// a dropped request would strand an Operation waiting for a reply that
// will never come.
func (p *Pipeline) Command(pkg wire.PackageOut) error {
	select {
	case <-p.closeChan:
		return ErrClosed
	default:
	}
	select {
	case p.writeChan <- pkg:
		return nil
	case <-p.closeChan:
		return ErrClosed
	}
}

// Close tears the pipeline down exactly once, closing the underlying
// socket and unblocking both loops.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.closeChan)
		p.conn.Close()
		close(p.done)
	})
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.Close()
}

func (p *Pipeline) readLoop() {
	for {
		select {
		case <-p.closeChan:
			return
		default:
		}

		f, err := frame.Read(p.reader)
		if err != nil {
			p.log.WithError(err).Debug("pipeline read failed")
			p.fail(err)
			return
		}

		pkg, err := p.decode(f)
		if err != nil {
			p.log.WithError(err).Warn("pipeline dropping undecodable frame")
			continue
		}
		if p.sink != nil {
			p.sink(pkg)
		}
	}
}

func (p *Pipeline) decode(f frame.Frame) (wire.PackageIn, error) {
	id, err := corrid.FromBytes(f.CorrelationID[:])
	if err != nil {
		return wire.PackageIn{}, err
	}
	msg, err := p.codec.Decode(f.Payload)
	if err != nil {
		return wire.PackageIn{CorrelationID: id, Failure: err}, nil
	}
	return wire.PackageIn{CorrelationID: id, Message: msg}, nil
}

func (p *Pipeline) writeLoop() {
	for {
		select {
		case <-p.closeChan:
			return
		case pkg := <-p.writeChan:
			if err := p.write(pkg); err != nil {
				p.log.WithError(err).Debug("pipeline write failed")
				p.fail(err)
				return
			}
		}
	}
}

func (p *Pipeline) write(pkg wire.PackageOut) error {
	body, err := p.codec.Encode(pkg.Message)
	if err != nil {
		return err
	}
	credKind, credBody := codec.EncodeCredentials(pkg.Credentials)

	f := frame.Frame{
		CredKind: credKind,
		CredBody: credBody,
		Payload:  body,
	}
	copy(f.CorrelationID[:], pkg.CorrelationID.Bytes())

	encoded, err := frame.Encode(f)
	if err != nil {
		return err
	}

	p.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	_, err = p.conn.Write(encoded)
	return err
}
