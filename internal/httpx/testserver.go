package httpx

import (
	"net"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// TestServer is an in-memory fasthttp server for client tests in other packages.
type TestServer struct {
	ln *fasthttputil.InmemoryListener
}

func NewTestServer(handler fasthttp.RequestHandler) *TestServer {
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, handler) }()
	return &TestServer{ln: ln}
}

func (s *TestServer) Dial(string) (net.Conn, error) { return s.ln.Dial() }

// Option returns the client option routing every request to this server.
func (s *TestServer) Option() Option { return WithDial(s.Dial) }

func (s *TestServer) Close() { _ = s.ln.Close() }
