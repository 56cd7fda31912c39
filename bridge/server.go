package bridge

import (
	"io"
	"sync/atomic"

	"megatwi/core"
	"megatwi/protocol"
)

// Server answers bridge requests against a register file. It does not
// allocate per request and is safe to run on the microcontroller.
type Server struct {
	regs     core.Registers
	router   core.PinRouter
	registry *Registry
	dec      *protocol.Decoder

	rx    [protocol.FrameMax]byte
	resp  [protocol.PayloadMax]byte
	frame [protocol.FrameMax]byte

	served uint32
	failed uint32
}

// NewServer creates a server for regs. router may be nil when pin routing
// is fixed in hardware.
func NewServer(regs core.Registers, router core.PinRouter) *Server {
	s := &Server{
		regs:     regs,
		router:   router,
		registry: NewRegistry(),
		dec:      protocol.NewDecoder(),
	}
	s.registry.Register(CmdIdentify, "identify", "", s.identify)
	s.registry.Register(CmdRegRead, "reg_read", "reg=%c", s.regRead)
	s.registry.Register(CmdRegWrite, "reg_write", "reg=%c value=%c", s.regWrite)
	s.registry.Register(CmdRoutePins, "route_pins", "enable=%c", s.routePins)
	return s
}

// Registry returns the command table.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Stats returns the number of requests answered and the number answered
// with an error.
func (s *Server) Stats() (served, failed uint32) {
	return atomic.LoadUint32(&s.served), atomic.LoadUint32(&s.failed)
}

// Serve answers requests read from rw until the link fails. It returns nil
// when rw reports io.EOF.
func (s *Server) Serve(rw io.ReadWriter) error {
	for {
		n, err := rw.Read(s.rx[:])
		if n > 0 {
			s.dec.Write(s.rx[:n])
			if werr := s.drain(rw); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Server) drain(w io.Writer) error {
	for {
		f, ok := s.dec.Next()
		if !ok {
			return nil
		}
		out, err := protocol.AppendFrame(s.frame[:0], f.Seq, s.Handle(f.Payload))
		if err != nil {
			return err
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
}

// Handle runs one request payload and returns the response payload. The
// result is only valid until the next call.
func (s *Server) Handle(payload []byte) []byte {
	atomic.AddUint32(&s.served, 1)
	resp, err := s.registry.Dispatch(payload, s.resp[:0])
	if err == nil {
		return resp
	}

	atomic.AddUint32(&s.failed, 1)
	code := CodeMalformed
	if re, ok := err.(*RemoteError); ok {
		code = re.Code
	}
	if core.IsDebugEnabled() {
		core.DebugPrintln("[BRIDGE] " + err.Error())
	}
	resp = protocol.AppendUint(s.resp[:0], RespError)
	return protocol.AppendUint(resp, uint32(code))
}

func (s *Server) identify(args *protocol.Reader, resp []byte) ([]byte, error) {
	resp = protocol.AppendUint(resp, RespIdentify)
	resp = protocol.AppendBytes(resp, []byte(Version))
	resp = protocol.AppendUint(resp, core.TWI0Base)
	return protocol.AppendUint(resp, core.BufferSize), nil
}

func (s *Server) regRead(args *protocol.Reader, resp []byte) ([]byte, error) {
	reg, err := args.Uint()
	if err != nil {
		return resp, errMalformed
	}
	if !validRegister(reg) {
		return resp, errBadRegister
	}
	v := s.regs.Get(core.Register(reg))
	resp = protocol.AppendUint(resp, RespRegValue)
	resp = protocol.AppendUint(resp, reg)
	return protocol.AppendUint(resp, uint32(v)), nil
}

func (s *Server) regWrite(args *protocol.Reader, resp []byte) ([]byte, error) {
	reg, err := args.Uint()
	if err != nil {
		return resp, errMalformed
	}
	v, err := args.Uint()
	if err != nil || v > 0xFF {
		return resp, errMalformed
	}
	if !validRegister(reg) {
		return resp, errBadRegister
	}
	s.regs.Set(core.Register(reg), uint8(v))
	return protocol.AppendUint(resp, RespAck), nil
}

func (s *Server) routePins(args *protocol.Reader, resp []byte) ([]byte, error) {
	enable, err := args.Uint()
	if err != nil {
		return resp, errMalformed
	}
	if s.router != nil {
		s.router.RouteTWI(enable != 0)
	}
	return protocol.AppendUint(resp, RespAck), nil
}
