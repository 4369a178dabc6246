package control

import (
	"net/http"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// NewGatewayMux returns a grpc-gateway mux serving svc over HTTP/JSON:
//
//	GET  /v1/status     → Status
//	POST /v1/selection  → Select, body {"mode": "...", "paths": [...]}
//
// Requests must carry "Authorization: Bearer <token>" unless token is empty.
func NewGatewayMux(svc Server, token string) (*gwruntime.ServeMux, error) {
	marshaler := &gwruntime.JSONPb{
		MarshalOptions:   protojson.MarshalOptions{EmitUnpopulated: true},
		UnmarshalOptions: protojson.UnmarshalOptions{DiscardUnknown: true},
	}
	mux := gwruntime.NewServeMux(gwruntime.WithMarshalerOption(gwruntime.MIMEWildcard, marshaler))

	authed := func(w http.ResponseWriter, r *http.Request) bool {
		if token == "" {
			return true
		}
		var vals []string
		if h := r.Header.Get("Authorization"); h != "" {
			vals = []string{h}
		}
		if err := checkBearer(vals, token); err != nil {
			gwruntime.HTTPError(r.Context(), mux, marshaler, w, r, err)
			return false
		}
		return true
	}

	reply := func(w http.ResponseWriter, r *http.Request, resp proto.Message, err error) {
		if err != nil {
			gwruntime.HTTPError(r.Context(), mux, marshaler, w, r, err)
			return
		}
		buf, err := marshaler.Marshal(resp)
		if err != nil {
			gwruntime.HTTPError(r.Context(), mux, marshaler, w, r, status.Error(codes.Internal, err.Error()))
			return
		}
		w.Header().Set("Content-Type", marshaler.ContentType(resp))
		_, _ = w.Write(buf)
	}

	if err := mux.HandlePath(http.MethodGet, "/v1/status", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		if !authed(w, r) {
			return
		}
		resp, err := svc.Status(r.Context(), &emptypb.Empty{})
		reply(w, r, resp, err)
	}); err != nil {
		return nil, err
	}

	if err := mux.HandlePath(http.MethodPost, "/v1/selection", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		if !authed(w, r) {
			return
		}
		req := new(structpb.Struct)
		if err := marshaler.NewDecoder(r.Body).Decode(req); err != nil {
			gwruntime.HTTPError(r.Context(), mux, marshaler, w, r, status.Errorf(codes.InvalidArgument, "decode body: %v", err))
			return
		}
		resp, err := svc.Select(r.Context(), req)
		reply(w, r, resp, err)
	}); err != nil {
		return nil, err
	}

	return mux, nil
}
