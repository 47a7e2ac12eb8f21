package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoConnect(ctx context.Context, stream jsonrpc2.ObjectStream) *jsonrpc2.Conn {
	return jsonrpc2.NewConn(ctx, stream, HandlerFunc(func(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) {
		if r.Notif {
			c.Notify(ctx, "echo/notified", r.Params)
			return
		}
		c.Reply(ctx, r.ID, r.Params)
	}))
}

func dial(t *testing.T, addr string, onRequest HandlerFunc) *Client {
	t.Helper()
	netConn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	client := &Client{OnRequest: onRequest}
	client.Conn = jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{}),
		client,
	)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestServe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, l, jsonrpc2.VSCodeObjectCodec{}, echoConnect)
	}()

	notified := make(chan string, 1)
	client := dial(t, l.Addr().String(), func(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) {
		notified <- r.Method
	})

	var result map[string]string
	require.NoError(t, client.Call("echo", map[string]string{"hello": "world"}, &result))
	assert.Equal(t, map[string]string{"hello": "world"}, result)

	require.NoError(t, client.Notify("ping", nil))
	select {
	case method := <-notified:
		assert.Equal(t, "echo/notified", method)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}

	// a second connection gets its own handler
	other := dial(t, l.Addr().String(), nil)
	require.NoError(t, other.Call("echo", 1, new(int)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClientRejectsUnhandledRequests(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	client := &Client{}
	client.Conn = jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(clientConn, jsonrpc2.VSCodeObjectCodec{}),
		client,
	)
	defer client.Close()

	server := jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(serverConn, jsonrpc2.VSCodeObjectCodec{}),
		HandlerFunc(func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}),
	)
	defer server.Close()

	err := server.Call(context.Background(), "workspace/configuration", nil, nil)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}
