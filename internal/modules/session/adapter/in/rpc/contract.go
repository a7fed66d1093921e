package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	sessiondto "deepwork/internal/modules/session/dto"
)

const (
	ServiceName   = "deepwork.session.v1.Sessions"
	jsonCodecName = "json"
)

const (
	methodCreate    = "Create"
	methodStart     = "Start"
	methodPause     = "Pause"
	methodResume    = "Resume"
	methodComplete  = "Complete"
	methodGet       = "Get"
	methodGetActive = "GetActive"
	methodHistory   = "History"
	methodSweep     = "Sweep"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type HistoryResponse struct {
	Sessions []sessiondto.SessionOutput `json:"sessions"`
}

// SessionsServer is the server side of the Sessions service.
type SessionsServer interface {
	Create(ctx context.Context, in *sessiondto.CreateInput) (*sessiondto.SessionOutput, error)
	Start(ctx context.Context, in *SessionRequest) (*sessiondto.SessionOutput, error)
	Pause(ctx context.Context, in *sessiondto.PauseInput) (*sessiondto.SessionOutput, error)
	Resume(ctx context.Context, in *SessionRequest) (*sessiondto.SessionOutput, error)
	Complete(ctx context.Context, in *SessionRequest) (*sessiondto.SessionOutput, error)
	Get(ctx context.Context, in *SessionRequest) (*sessiondto.SessionOutput, error)
	GetActive(ctx context.Context, in *Empty) (*sessiondto.SessionOutput, error)
	History(ctx context.Context, in *Empty) (*HistoryResponse, error)
	Sweep(ctx context.Context, in *Empty) (*sessiondto.SweepOutput, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func RegisterSessionsServer(server grpc.ServiceRegistrar, impl SessionsServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*SessionsServer)(nil),
		Methods: []grpc.MethodDesc{
			unary(methodCreate, SessionsServer.Create),
			unary(methodStart, SessionsServer.Start),
			unary(methodPause, SessionsServer.Pause),
			unary(methodResume, SessionsServer.Resume),
			unary(methodComplete, SessionsServer.Complete),
			unary(methodGet, SessionsServer.Get),
			unary(methodGetActive, SessionsServer.GetActive),
			unary(methodHistory, SessionsServer.History),
			unary(methodSweep, SessionsServer.Sweep),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "deepwork/session/v1/sessions.proto",
	}, impl)
}

func unary[Req, Resp any](name string, call func(SessionsServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl, ok := srv.(SessionsServer)
			if !ok {
				return nil, fmt.Errorf("invalid server type %T", srv)
			}
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type")
				}
				return call(impl, ctx, typed)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
