package in

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"goa.design/clue/log"
	"google.golang.org/grpc"

	"deepwork/internal/modules/session/adapter/in/rpc"
	sessiondto "deepwork/internal/modules/session/dto"
	sessionin "deepwork/internal/modules/session/port/in"
)

// GRPCHandler exposes the session usecase as the Sessions gRPC service.
type GRPCHandler struct {
	usecase sessionin.Usecase
}

var _ rpc.SessionsServer = GRPCHandler{}

func NewGRPCHandler(usecase sessionin.Usecase) GRPCHandler {
	return GRPCHandler{usecase: usecase}
}

func (h GRPCHandler) Create(ctx context.Context, in *sessiondto.CreateInput) (*sessiondto.SessionOutput, error) {
	return reply(h.usecase.Create(ctx, *in))
}

func (h GRPCHandler) Start(ctx context.Context, in *rpc.SessionRequest) (*sessiondto.SessionOutput, error) {
	return reply(h.usecase.Start(ctx, in.SessionID))
}

func (h GRPCHandler) Pause(ctx context.Context, in *sessiondto.PauseInput) (*sessiondto.SessionOutput, error) {
	return reply(h.usecase.Pause(ctx, *in))
}

func (h GRPCHandler) Resume(ctx context.Context, in *rpc.SessionRequest) (*sessiondto.SessionOutput, error) {
	return reply(h.usecase.Resume(ctx, in.SessionID))
}

func (h GRPCHandler) Complete(ctx context.Context, in *rpc.SessionRequest) (*sessiondto.SessionOutput, error) {
	return reply(h.usecase.Complete(ctx, in.SessionID))
}

func (h GRPCHandler) Get(ctx context.Context, in *rpc.SessionRequest) (*sessiondto.SessionOutput, error) {
	return reply(h.usecase.Get(ctx, in.SessionID))
}

func (h GRPCHandler) GetActive(ctx context.Context, _ *rpc.Empty) (*sessiondto.SessionOutput, error) {
	return reply(h.usecase.GetActive(ctx))
}

func (h GRPCHandler) History(ctx context.Context, _ *rpc.Empty) (*rpc.HistoryResponse, error) {
	sessions, err := h.usecase.History(ctx)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.HistoryResponse{Sessions: sessions}, nil
}

func (h GRPCHandler) Sweep(ctx context.Context, _ *rpc.Empty) (*sessiondto.SweepOutput, error) {
	report, err := h.usecase.Sweep(ctx)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &report, nil
}

func reply(out sessiondto.SessionOutput, err error) (*sessiondto.SessionOutput, error) {
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &out, nil
}

// WithLogger hands the clue logger in logCtx to every handler and logs each
// call. logCtx must come from log.Context.
func WithLogger(logCtx context.Context) grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(log.UnaryServerInterceptor(logCtx))
}

// NewGRPCServer builds a server with the Sessions service registered.
func NewGRPCServer(usecase sessionin.Usecase, opts ...grpc.ServerOption) *grpc.Server {
	server := grpc.NewServer(opts...)
	rpc.RegisterSessionsServer(server, NewGRPCHandler(usecase))
	return server
}

// Serve listens on a unix socket until ctx is done, then drains in-flight
// calls with GracefulStop.
func Serve(ctx context.Context, socketPath string, server *grpc.Server) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			server.GracefulStop()
		case <-stop:
		}
	}()
	defer close(stop)

	log.Print(ctx, log.KV{K: "msg", V: "serving sessions"}, log.KV{K: "socket", V: socketPath})
	if err := server.Serve(ln); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve sessions: %w", err)
	}
	return nil
}
