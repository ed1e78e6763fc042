package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/panel"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
	"github.com/WirelessLan/AAFDynamicPositioner/internal/protocol"
)

// Server serves the operator panel on one endpoint and the host on another. At most one
// connection of each kind is live; a new one replaces the old.
type Server struct {
	cmd   positioner.Commander
	panel *panel.Panel
	host  *HostLink
	log   *log.Logger

	panelV *protocol.Validator
	hostV  *protocol.Validator

	upgrader websocket.Upgrader
}

func NewServer(cmd positioner.Commander, p *panel.Panel, h *HostLink, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	pv, err := protocol.NewValidator(protocol.PanelInbound)
	if err != nil {
		return nil, fmt.Errorf("panel schemas: %w", err)
	}
	hv, err := protocol.NewValidator(protocol.HostInbound)
	if err != nil {
		return nil, fmt.Errorf("host schemas: %w", err)
	}
	return &Server{
		cmd:    cmd,
		panel:  p,
		host:   h,
		log:    logger,
		panelV: pv,
		hostV:  hv,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local tool
		},
	}, nil
}

// Routes registers /v1/panel and /v1/host on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/panel", s.PanelHandler())
	mux.HandleFunc("/v1/host", s.HostHandler())
}

func (s *Server) PanelHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := newOutbox(64)
		defer out.close()
		go pump(ctx, cancel, conn, out)

		s.panel.Attach(out)
		defer s.panel.Detach(out)
		s.log.Printf("panel connected from %s", r.RemoteAddr)

		s.readLoop(ctx, cancel, conn, out, s.panelV, func(typ string, msg []byte) *protocol.ErrorMsg {
			return s.panel.Dispatch(ctx, s.cmd, typ, msg)
		})
		s.log.Printf("panel disconnected")
	}
}

func (s *Server) HostHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.hostHandshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := newOutbox(256)
		defer out.close()
		go pump(ctx, cancel, conn, out)

		s.host.attach(out)
		defer s.host.detach(out)
		s.host.hello(hello)
		s.log.Printf("host connected from %s (protagonist %08X)", r.RemoteAddr, hello.Protagonist)

		s.readLoop(ctx, cancel, conn, out, s.hostV, func(typ string, msg []byte) *protocol.ErrorMsg {
			return s.host.Handle(ctx, typ, msg)
		})
		s.log.Printf("host disconnected")
	}
}

// hostHandshake reads the first message, which must be a valid HOST_HELLO for this protocol
// version.
func (s *Server) hostHandshake(conn *websocket.Conn) (protocol.HostHelloMsg, bool) {
	var hello protocol.HostHelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(writeWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, false
	}
	base, e := s.hostV.Validate(msg)
	if e != nil || base.Type != protocol.TypeHostHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HOST_HELLO")
		return hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return hello, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return hello, false
	}
	return hello, true
}

func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out *outbox, v *protocol.Validator, handle func(typ string, msg []byte) *protocol.ErrorMsg) {
	for {
		if ctx.Err() != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			cancel()
			return
		}
		base, e := v.Validate(msg)
		if e == nil {
			e = handle(base.Type, msg)
		}
		if e != nil {
			s.log.Printf("rejected %s: %s %s", base.Type, e.Code, e.Message)
			out.Send(e)
		}
	}
}
