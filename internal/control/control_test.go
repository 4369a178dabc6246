package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"go.klb.dev/clipshare/internal/route"
	"go.klb.dev/clipshare/internal/selection"
	"go.klb.dev/clipshare/internal/session"
)

type fixedStats route.Stats

func (f fixedStats) Stats() route.Stats { return route.Stats(f) }

func newService(sel *selection.Store) *Service {
	return NewService(Config{
		Selection: sel,
		Stats:     fixedStats{CopyText: 3, BytesSent: 1024},
		Sessions:  session.NewRegistry(),
		Clipboard: "headless (no-op)",
		Addr:      "0.0.0.0:8753",
		Version:   "test",
	})
}

func selectReq(t *testing.T, mode string, paths ...any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(map[string]any{"mode": mode, "paths": paths})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestStatus(t *testing.T) {
	sel := selection.New()
	sel.Set([]string{"/a", "/b"})
	svc := newService(sel)

	st, err := svc.Status(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	m := st.AsMap()
	if m["version"] != "test" || m["clipboard"] != "headless (no-op)" {
		t.Fatalf("status = %v", m)
	}
	got, _ := m["selection"].([]any)
	if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
		t.Fatalf("selection = %v", m["selection"])
	}
	served, _ := m["served"].(map[string]any)
	if served["text"] != float64(3) || served["bytes_sent"] != float64(1024) {
		t.Fatalf("served = %v", served)
	}
}

func TestSelectModes(t *testing.T) {
	sel := selection.New()
	svc := newService(sel)
	ctx := context.Background()

	steps := []struct {
		req  *structpb.Struct
		want []string
	}{
		{selectReq(t, ModeReplace, "/x", "/y"), []string{"/x", "/y"}},
		{selectReq(t, ModeAppend, "/y", "/z"), []string{"/x", "/y", "/z"}},
		{selectReq(t, "", "/only"), []string{"/only"}},
		{selectReq(t, ModeClear), nil},
	}
	for i, s := range steps {
		if _, err := svc.Select(ctx, s.req); err != nil {
			t.Fatalf("step %d: Select: %v", i, err)
		}
		got := sel.Snapshot()
		if strings.Join(got, ",") != strings.Join(s.want, ",") {
			t.Fatalf("step %d: selection = %v, want %v", i, got, s.want)
		}
	}
}

func TestSelectRejects(t *testing.T) {
	tests := []struct {
		name string
		req  *structpb.Struct
	}{
		{"relative path", selectReq(t, ModeReplace, "rel/path")},
		{"non-string path", selectReq(t, ModeReplace, 42.0)},
		{"unknown mode", selectReq(t, "merge", "/a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := selection.New()
			sel.Set([]string{"/keep"})
			_, err := newService(sel).Select(context.Background(), tt.req)
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("err = %v, want InvalidArgument", err)
			}
			if got := sel.Snapshot(); len(got) != 1 || got[0] != "/keep" {
				t.Fatalf("selection changed to %v", got)
			}
		})
	}
}

func dialBuf(t *testing.T, token string) (*Client, *selection.Store) {
	t.Helper()
	sel := selection.New()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(token)))
	Register(srv, newService(sel))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return NewClient(cc), sel
}

func TestGRPCRoundTrip(t *testing.T) {
	c, sel := dialBuf(t, "")
	ctx := context.Background()

	if err := c.Select(ctx, ModeReplace, []string{"/tmp/a.txt"}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := sel.Snapshot(); len(got) != 1 || got[0] != "/tmp/a.txt" {
		t.Fatalf("selection = %v", got)
	}
	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.GetFields()["version"].GetStringValue() != "test" {
		t.Fatalf("status = %v", st)
	}
}

func TestGRPCAuth(t *testing.T) {
	c, _ := dialBuf(t, "s3cret")

	tests := []struct {
		name string
		ctx  context.Context
		want codes.Code
	}{
		{"no token", context.Background(), codes.Unauthenticated},
		{"wrong token", metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope"), codes.Unauthenticated},
		{"good token", metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer s3cret"), codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Status(tt.ctx)
			if got := status.Code(err); got != tt.want {
				t.Fatalf("code = %v, want %v (err %v)", got, tt.want, err)
			}
		})
	}
}

func TestTokenCredentials(t *testing.T) {
	md, err := TokenCredentials("abc").GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if md["authorization"] != "Bearer abc" {
		t.Fatalf("md = %v", md)
	}
}

func TestGateway(t *testing.T) {
	sel := selection.New()
	mux, err := NewGatewayMux(newService(sel), "tok")
	if err != nil {
		t.Fatalf("NewGatewayMux: %v", err)
	}

	do := func(method, path, auth, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/v1/status", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status: code %d", rec.Code)
	}

	rec := do(http.MethodPost, "/v1/selection", "Bearer tok", `{"mode":"replace","paths":["/srv/a","/srv/b"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select: code %d body %s", rec.Code, rec.Body)
	}
	if got := sel.Snapshot(); len(got) != 2 || got[1] != "/srv/b" {
		t.Fatalf("selection = %v", got)
	}

	rec = do(http.MethodPost, "/v1/selection", "Bearer tok", `{"paths":["relative"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad select: code %d", rec.Code)
	}

	rec = do(http.MethodGet, "/v1/status", "Bearer tok", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: code %d body %s", rec.Code, rec.Body)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if doc["addr"] != "0.0.0.0:8753" {
		t.Fatalf("status doc = %v", doc)
	}
}
