package paycom

import (
	"encoding/json"
)

// ContentType is sent with every endpoint response.
const ContentType = "application/json; charset=UTF-8"

// Response is the JSON-RPC envelope. Exactly one of Result and Error is set.
// ID echoes the request id verbatim, or null when it could not be read.
type Response struct {
	Result interface{}     `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
	ID     json.RawMessage `json:"id"`
}

func success(id json.RawMessage, result interface{}) *Response {
	return &Response{Result: result, ID: echoID(id)}
}

func failure(id json.RawMessage, err *Error) *Response {
	return &Response{Error: err, ID: echoID(id)}
}

func echoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// Marshal encodes the envelope. It never fails for values produced by this
// package, but falls back to an internal error envelope if it does.
func (r *Response) Marshal() []byte {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(failure(r.ID, errInternal()))
	}
	return b
}

// Code returns the error code, or 0 for a successful response.
func (r *Response) Code() int {
	if r.Error == nil {
		return 0
	}
	return r.Error.Code
}
