package rpc

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
)

// Client is the editor side of a connection. Requests and notifications
// sent by the server are passed to OnRequest when it is set.
type Client struct {
	*jsonrpc2.Conn
	OnRequest HandlerFunc
}

func (c *Client) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if c.OnRequest != nil {
		c.OnRequest(ctx, conn, req)
		return
	}
	if !req.Notif {
		conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "client does not handle " + req.Method,
		})
	}
}

func (c *Client) Call(method string, payload any, result any) error {
	return c.Conn.Call(context.Background(), method, payload, result)
}

func (c *Client) Notify(method string, payload any) error {
	return c.Conn.Notify(context.Background(), method, payload)
}
