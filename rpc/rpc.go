package rpc

import (
	"context"
	"io"
	"net"

	"github.com/sourcegraph/jsonrpc2"
)

type HandlerFunc func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request)

func (h HandlerFunc) Handle(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) {
	h(ctx, c, r)
}

type CustomStream struct {
	io.ReadCloser
	io.WriteCloser
}

func (conn *CustomStream) Read(p []byte) (n int, err error) {
	return conn.ReadCloser.Read(p)
}

func (conn *CustomStream) Write(p []byte) (n int, err error) {
	return conn.WriteCloser.Write(p)
}

func (conn *CustomStream) Close() error {
	if err := conn.ReadCloser.Close(); err != nil {
		return err
	} else if err := conn.WriteCloser.Close(); err != nil {
		return err
	}
	return nil
}

// ConnectFunc takes ownership of an accepted stream and returns the
// connection serving it.
type ConnectFunc func(ctx context.Context, stream jsonrpc2.ObjectStream) *jsonrpc2.Conn

func StartServer(ctx context.Context, addr string, codec jsonrpc2.ObjectCodec, connect ConnectFunc) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, l, codec, connect)
}

// Serve accepts connections until ctx is done or the listener fails. Each
// connection gets its own handler state through connect.
func Serve(ctx context.Context, l net.Listener, codec jsonrpc2.ObjectCodec, connect ConnectFunc) error {
	defer l.Close()

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		go func() {
			cn := connect(ctx, jsonrpc2.NewBufferedStream(conn, codec))
			defer cn.Close()
			<-cn.DisconnectNotify()
		}()
	}
}
