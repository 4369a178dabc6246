package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls ControlService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Status returns the server's status document.
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodStatus, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Select changes the server's selection. paths are ignored for ModeClear.
func (c *Client) Select(ctx context.Context, mode string, paths []string, opts ...grpc.CallOption) error {
	list := make([]any, len(paths))
	for i, p := range paths {
		list[i] = p
	}
	req, err := structpb.NewStruct(map[string]any{
		"mode":  mode,
		"paths": list,
	})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, methodSelect, req, new(emptypb.Empty), opts...)
}
