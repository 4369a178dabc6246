// Package control implements the ControlService gRPC server: server status
// and management of the shared selection. The service uses protobuf
// well-known types only, so it is registered with a hand-written
// grpc.ServiceDesc instead of generated stubs.
package control

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"go.klb.dev/clipshare/internal/route"
	"go.klb.dev/clipshare/internal/selection"
	"go.klb.dev/clipshare/internal/session"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "clipshare.v1.ControlService"

const (
	methodStatus = "/" + ServiceName + "/Status"
	methodSelect = "/" + ServiceName + "/Select"
)

// Selection modes accepted by Select.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
	ModeClear   = "clear"
)

// Server is the ControlService contract.
type Server interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: statusHandler},
		{MethodName: "Select", Handler: selectHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clipshare/v1/control.proto",
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStatus}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Status(ctx, req.(*emptypb.Empty))
	})
}

func selectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Select(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSelect}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Select(ctx, req.(*structpb.Struct))
	})
}

// Register adds svc to s.
func Register(s *grpc.Server, svc Server) {
	s.RegisterService(&serviceDesc, svc)
}

// StatsSource reports served-content counters. *route.Handler implements it.
type StatsSource interface {
	Stats() route.Stats
}

// Config wires a Service to the rest of the server.
type Config struct {
	Selection *selection.Store
	Stats     StatsSource
	Sessions  *session.Registry
	Clipboard string // backend name
	Addr      string
	Version   string
}

// Service implements Server.
type Service struct {
	cfg     Config
	started time.Time
}

// NewService returns a Service for cfg.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, started: time.Now()}
}

// Status implements ControlService.Status.
func (s *Service) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	hostname, _ := os.Hostname()

	paths := s.cfg.Selection.Snapshot()
	selected := make([]any, len(paths))
	for i, p := range paths {
		selected[i] = p
	}

	fields := map[string]any{
		"version":   s.cfg.Version,
		"hostname":  hostname,
		"addr":      s.cfg.Addr,
		"clipboard": s.cfg.Clipboard,
		"started":   s.started.UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Truncate(time.Second).String(),
		"selection": selected,
	}

	if s.cfg.Stats != nil {
		st := s.cfg.Stats.Stats()
		fields["served"] = map[string]any{
			"files":           st.CopyFiles,
			"text":            st.CopyText,
			"image":           st.CopyImage,
			"empty":           st.CopyEmpty,
			"downloads":       st.Downloads,
			"download_errors": st.DownloadErrors,
			"bytes_sent":      st.BytesSent,
		}
	}

	var sessions []any
	if s.cfg.Sessions != nil {
		for _, si := range s.cfg.Sessions.Sessions() {
			sessions = append(sessions, map[string]any{
				"id":        si.ID,
				"addr":      si.Addr,
				"source":    si.Source,
				"connected": si.ConnectedAt.UTC().Format(time.RFC3339),
				"last_seen": si.LastSeen.UTC().Format(time.RFC3339),
				"requests":  si.Requests,
			})
		}
	}
	fields["sessions"] = sessions

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build status: %v", err)
	}
	return st, nil
}

// Select implements ControlService.Select. The request carries "mode"
// (replace, append or clear; default replace) and "paths", a list of
// absolute paths.
func (s *Service) Select(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()

	mode := fields["mode"].GetStringValue()
	if mode == "" {
		mode = ModeReplace
	}

	var paths []string
	for _, v := range fields["paths"].GetListValue().GetValues() {
		p, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "paths must be strings")
		}
		if !filepath.IsAbs(p.StringValue) {
			return nil, status.Errorf(codes.InvalidArgument, "path %q is not absolute", p.StringValue)
		}
		paths = append(paths, filepath.Clean(p.StringValue))
	}

	switch mode {
	case ModeReplace:
		s.cfg.Selection.Set(paths)
	case ModeAppend:
		s.cfg.Selection.Add(paths...)
	case ModeClear:
		s.cfg.Selection.Clear()
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown mode %q", mode)
	}

	slog.Info("selection updated",
		"mode", mode,
		"paths", len(paths),
		"total", s.cfg.Selection.Len(),
		"from", addrFromCtx(ctx),
	)
	return &emptypb.Empty{}, nil
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "local"
}
