package rpc

import (
	"context"
	"fmt"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	sessiondto "deepwork/internal/modules/session/dto"
	sessionin "deepwork/internal/modules/session/port/in"
)

// Client talks to a running daemon and satisfies the session usecase port.
type Client struct {
	conn *grpc.ClientConn
}

var _ sessionin.Usecase = (*Client)(nil)

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Dial connects to the daemon socket. No I/O happens until the first call.
func Dial(socketPath string, opts ...grpc.DialOption) (*Client, error) {
	abs, err := filepath.Abs(socketPath)
	if err != nil {
		return nil, fmt.Errorf("resolve socket path: %w", err)
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient("unix://"+abs, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return NewClient(conn), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return FromStatus(err)
	}
	return nil
}

func (c *Client) session(ctx context.Context, method string, in any) (sessiondto.SessionOutput, error) {
	out := sessiondto.SessionOutput{}
	if err := c.invoke(ctx, method, in, &out); err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, input sessiondto.CreateInput) (sessiondto.SessionOutput, error) {
	return c.session(ctx, methodCreate, &input)
}

func (c *Client) Start(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return c.session(ctx, methodStart, &SessionRequest{SessionID: sessionID})
}

func (c *Client) Pause(ctx context.Context, input sessiondto.PauseInput) (sessiondto.SessionOutput, error) {
	return c.session(ctx, methodPause, &input)
}

func (c *Client) Resume(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return c.session(ctx, methodResume, &SessionRequest{SessionID: sessionID})
}

func (c *Client) Complete(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return c.session(ctx, methodComplete, &SessionRequest{SessionID: sessionID})
}

func (c *Client) Get(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return c.session(ctx, methodGet, &SessionRequest{SessionID: sessionID})
}

func (c *Client) GetActive(ctx context.Context) (sessiondto.SessionOutput, error) {
	return c.session(ctx, methodGetActive, &Empty{})
}

func (c *Client) History(ctx context.Context) ([]sessiondto.SessionOutput, error) {
	out := HistoryResponse{}
	if err := c.invoke(ctx, methodHistory, &Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) Sweep(ctx context.Context) (sessiondto.SweepOutput, error) {
	out := sessiondto.SweepOutput{}
	if err := c.invoke(ctx, methodSweep, &Empty{}, &out); err != nil {
		return sessiondto.SweepOutput{}, err
	}
	return out, nil
}
