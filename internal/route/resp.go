package route

import (
	"go.klb.dev/clipshare/internal/message"
	"go.klb.dev/clipshare/internal/wire"
)

// SendHead writes a response head with no inline body.
func SendHead(c *wire.Conn, head *message.ResponseHead) error {
	return c.WriteResponse(head)
}

// SendMsgWithBody writes a success head of kind dt immediately followed by
// body. name is the logical filename of the body and may be empty.
func SendMsgWithBody(c *wire.Conn, name string, dt message.DataType, body []byte) error {
	return c.WriteResponseWithBody(&message.ResponseHead{
		Code:     message.StatusSuccess,
		Msg:      msgCopied,
		DataType: dt,
		Name:     name,
	}, body)
}

// RespErrorMsg writes an error response carrying msg. Delivery is best
// effort; the returned error only reports that the write itself failed.
func RespErrorMsg(c *wire.Conn, msg string) error {
	return c.WriteResponse(&message.ResponseHead{
		Code: message.StatusError,
		Msg:  msg,
	})
}
