// Package message defines the clipshare data-plane protocol.
//
// Every request and response starts with a head: one line of JSON terminated
// by '\n'. A response head may be followed by raw body bytes; how many depends
// on the payload kind:
//
//	files       no body, entries travel in Paths
//	text        DataLen bytes of UTF-8 text
//	clip-image  DataLen bytes of PNG, logical filename in Name
//	binary      DataLen bytes of the requested file range
//
// Error responses never carry a body.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action identifies what a request asks for.
type Action string

const (
	ActionCopy     Action = "copy"
	ActionDownload Action = "download"
	ActionPing     Action = "ping"
)

// DataType is the payload kind of a response.
type DataType string

const (
	DataFiles     DataType = "files"
	DataText      DataType = "text"
	DataClipImage DataType = "clip-image"
	DataBinary    DataType = "binary"
)

// Response status codes.
const (
	StatusSuccess = 200
	StatusError   = 400
)

// PathInfo identifies one shareable file and its size at enumeration time.
type PathInfo struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// RequestHead is sent by the peer. Start and End describe a half-open byte
// window [Start, End) and are only meaningful for downloads.
type RequestHead struct {
	Action Action `json:"action"`
	Source string `json:"source,omitempty"`
	Path   string `json:"path,omitempty"`
	Start  int64  `json:"start,omitempty"`
	End    int64  `json:"end,omitempty"`
}

// Len returns the number of bytes the request window covers.
func (h *RequestHead) Len() int64 { return h.End - h.Start }

// Validate checks the fields required by the head's action. It does not look
// at the file system; range bounds against the real file size are checked by
// the download handler.
func (h *RequestHead) Validate() error {
	switch h.Action {
	case ActionCopy, ActionPing:
		return nil
	case ActionDownload:
		if h.Path == "" {
			return errors.New("download: missing path")
		}
		if h.Start < 0 || h.End < h.Start {
			return fmt.Errorf("download: invalid window [%d, %d)", h.Start, h.End)
		}
		return nil
	case "":
		return errors.New("missing action")
	default:
		return fmt.Errorf("unknown action %q", h.Action)
	}
}

// ResponseHead is written by the server before any body bytes.
type ResponseHead struct {
	Code     int        `json:"code"`
	Msg      string     `json:"msg,omitempty"`
	DataType DataType   `json:"dataType,omitempty"`
	DataLen  int64      `json:"dataLen"`
	Name     string     `json:"name,omitempty"`
	Paths    []PathInfo `json:"paths,omitempty"`
}

// OK reports whether the response carries StatusSuccess.
func (h *ResponseHead) OK() bool { return h.Code == StatusSuccess }

// HasBody reports whether DataLen raw bytes follow the head on the wire.
func (h *ResponseHead) HasBody() bool {
	if !h.OK() {
		return false
	}
	switch h.DataType {
	case DataText, DataClipImage, DataBinary:
		return true
	default:
		return false
	}
}

// Err converts an error response into a Go error. Returns nil for success.
func (h *ResponseHead) Err() error {
	if h.OK() {
		return nil
	}
	return &RemoteError{Code: h.Code, Msg: h.Msg}
}

// RemoteError is an error response reported by the other side.
type RemoteError struct {
	Code int
	Msg  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Msg)
}

// Encode serialises the request to JSON without a trailing newline.
func (h *RequestHead) Encode() ([]byte, error) {
	return json.Marshal(h)
}

// Encode serialises the response to JSON without a trailing newline.
func (h *ResponseHead) Encode() ([]byte, error) {
	return json.Marshal(h)
}

// DecodeRequest deserialises a request head from raw JSON bytes.
func DecodeRequest(b []byte) (*RequestHead, error) {
	var h RequestHead
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("request decode: %w", err)
	}
	return &h, nil
}

// DecodeResponse deserialises a response head from raw JSON bytes.
func DecodeResponse(b []byte) (*ResponseHead, error) {
	var h ResponseHead
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("response decode: %w", err)
	}
	return &h, nil
}
