//go:build !tinygo

package bridge

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"megatwi/core"
	"megatwi/protocol"
)

// DefaultTimeout bounds one request/response round trip.
const DefaultTimeout = 500 * time.Millisecond

// ErrClosed is returned once the link has been closed.
var ErrClosed = errors.New("bridge: link closed")

// ClientConfig configures a Client.
type ClientConfig struct {
	// Timeout bounds each request. Zero selects DefaultTimeout.
	Timeout time.Duration

	// Logger receives link diagnostics. Nil selects the logrus standard
	// logger.
	Logger logrus.FieldLogger
}

func (c *ClientConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
}

// Identity is the firmware's identify response.
type Identity struct {
	Version    string
	Base       uint16
	BufferSize int
}

// Client drives a remote register file. Register accessors cannot return
// errors, so the first failure is kept and reported by Err; after it every
// access fails fast until ClearErr.
type Client struct {
	cfg  ClientConfig
	port io.ReadWriteCloser
	log  logrus.FieldLogger

	mu      sync.Mutex // serializes requests
	seq     uint8
	scratch [protocol.PayloadMax]byte

	errMu sync.Mutex
	err   error

	frames chan protocol.Frame
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

var (
	_ core.Registers = (*Client)(nil)
	_ core.PinRouter = (*Client)(nil)
)

// NewClient starts a client on port. The client owns reading from port
// until Close, which closes port to unblock the reader.
func NewClient(port io.ReadWriteCloser, cfg ClientConfig) *Client {
	cfg.applyDefaults()
	c := &Client{
		cfg:    cfg,
		port:   port,
		log:    cfg.Logger.WithField("component", "bridge"),
		seq:    protocol.SeqDest,
		frames: make(chan protocol.Frame, 4),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close stops the client, closes port and waits for the reader to exit.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		err = c.port.Close()
		<-c.done
		c.fail(ErrClosed)
	})
	return err
}

// Err returns the first error seen since creation or the last ClearErr.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// ClearErr re-enables a client after a failure. It has no effect once the
// link is closed.
func (c *Client) ClearErr() {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err != ErrClosed {
		c.err = nil
	}
}

// Identify queries the firmware version and register layout.
func (c *Client) Identify() (Identity, error) {
	r, err := c.request(CmdIdentify, RespIdentify)
	if err != nil {
		return Identity{}, err
	}
	version, err := r.Bytes()
	if err != nil {
		return Identity{}, c.fail(errors.Wrap(err, "bridge: identify"))
	}
	base, err := r.Uint()
	if err != nil {
		return Identity{}, c.fail(errors.Wrap(err, "bridge: identify"))
	}
	size, err := r.Uint()
	if err != nil {
		return Identity{}, c.fail(errors.Wrap(err, "bridge: identify"))
	}
	return Identity{Version: string(version), Base: uint16(base), BufferSize: int(size)}, nil
}

// Get implements core.Registers. It returns 0 on failure.
func (c *Client) Get(reg core.Register) uint8 {
	r, err := c.request(CmdRegRead, RespRegValue, uint32(reg))
	if err != nil {
		return 0
	}
	echo, _ := r.Uint()
	v, err := r.Uint()
	if err != nil || echo != uint32(reg) {
		c.fail(errors.Errorf("bridge: bad reg_read response for %v", reg))
		return 0
	}
	return uint8(v)
}

// Set implements core.Registers.
func (c *Client) Set(reg core.Register, value uint8) {
	c.request(CmdRegWrite, RespAck, uint32(reg), uint32(value))
}

// RouteTWI implements core.PinRouter.
func (c *Client) RouteTWI(enable bool) {
	var v uint32
	if enable {
		v = 1
	}
	c.request(CmdRoutePins, RespAck, v)
}

func (c *Client) request(cmd, want uint32, args ...uint32) (protocol.Reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.stop:
		return protocol.Reader{}, ErrClosed
	default:
	}
	if err := c.Err(); err != nil {
		return protocol.Reader{}, err
	}

	payload := protocol.AppendUint(c.scratch[:0], cmd)
	for _, a := range args {
		payload = protocol.AppendUint(payload, a)
	}
	seq := c.seq
	c.seq = protocol.NextSeq(seq)

	frame, err := protocol.AppendFrame(nil, seq, payload)
	if err != nil {
		return protocol.Reader{}, c.fail(errors.Wrap(err, "bridge: encode"))
	}
	c.log.WithFields(logrus.Fields{
		"cmd":  CommandName(cmd),
		"seq":  seq,
		"args": args,
	}).Trace("request")
	if _, err := c.port.Write(frame); err != nil {
		return protocol.Reader{}, c.fail(errors.Wrapf(err, "bridge: write %s", CommandName(cmd)))
	}

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()
	for {
		select {
		case f := <-c.frames:
			if f.Seq != seq {
				c.log.WithField("seq", f.Seq).Debug("dropping stale response")
				continue
			}
			return c.decode(cmd, want, f.Payload)
		case <-timer.C:
			return protocol.Reader{}, c.fail(errors.Errorf("bridge: %s timed out after %v", CommandName(cmd), c.cfg.Timeout))
		case <-c.done:
			return protocol.Reader{}, c.fail(ErrClosed)
		}
	}
}

func (c *Client) decode(cmd, want uint32, payload []byte) (protocol.Reader, error) {
	r := protocol.NewReader(payload)
	id, err := r.Uint()
	if err != nil {
		return r, c.fail(errors.Wrapf(err, "bridge: %s response", CommandName(cmd)))
	}
	switch id {
	case want:
		return r, nil
	case RespError:
		code, _ := r.Uint()
		return r, c.fail(errors.Wrap(&RemoteError{Code: uint8(code)}, CommandName(cmd)))
	default:
		return r, c.fail(errors.Errorf("bridge: %s got response 0x%02x", CommandName(cmd), id))
	}
}

// fail records err as the sticky error if none is set and returns it.
func (c *Client) fail(err error) error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
		if err != ErrClosed {
			c.log.WithError(err).Warn("bridge request failed")
		}
	}
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)

	dec := protocol.NewDecoder()
	buf := make([]byte, 256)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
			for {
				f, ok := dec.Next()
				if !ok {
					break
				}
				f.Payload = append([]byte(nil), f.Payload...)
				select {
				case c.frames <- f:
				case <-c.stop:
					return
				}
			}
		}
		if err != nil {
			select {
			case <-c.stop:
			default:
				c.fail(errors.Wrap(err, "bridge: read"))
			}
			return
		}
	}
}
