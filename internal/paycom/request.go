package paycom

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"paycom/internal/order"
	"paycom/internal/pkg/utils"
)

// Request is a decoded gateway call.
type Request struct {
	ID     json.RawMessage
	Method string
	Params Params
}

// ParseRequest validates the HTTP method and decodes the body. On failure
// the returned request still carries the id when one could be read.
func ParseRequest(httpMethod string, body []byte) (*Request, *Error) {
	req := &Request{}
	if httpMethod != http.MethodPost {
		return req, newError(CodeRequestMethod, "HTTP method must be POST.")
	}

	var raw struct {
		ID     json.RawMessage `json:"id"`
		Method *string         `json:"method"`
		Params *Params         `json:"params"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return req, newError(CodeParseError, "Parse error.")
	}
	req.ID = raw.ID
	if raw.Method == nil || raw.Params == nil {
		return req, newError(CodeInvalidRequest, "Invalid JSON-RPC object.")
	}
	req.Method = strings.TrimSpace(*raw.Method)
	req.Params = *raw.Params
	return req, nil
}

// Params is the decoded `params` object. Numbers are json.Number.
type Params map[string]interface{}

func (p Params) has(field string) bool {
	v, ok := p[field]
	return ok && v != nil
}

// Int64 returns an integral parameter or a field error.
func (p Params) Int64(field string) (int64, *Error) {
	v, ok := p[field]
	if !ok || v == nil {
		return 0, errInvalidField(field, "Parameter "+field+" is required.")
	}
	n, ok := utils.ParseInt64(v)
	if !ok {
		return 0, errInvalidField(field, "Parameter "+field+" must be an integer.")
	}
	return n, nil
}

// String returns a non-empty string parameter or a field error.
func (p Params) String(field string) (string, *Error) {
	s := utils.StringValue(p[field])
	if s == "" {
		return "", errInvalidField(field, "Parameter "+field+" is required.")
	}
	return s, nil
}

// TransactionID returns the gateway transaction id.
func (p Params) TransactionID() (string, *Error) {
	return p.String("id")
}

// Account returns the `account` object, or an empty account.
func (p Params) Account() order.Account {
	switch a := p["account"].(type) {
	case map[string]interface{}:
		return order.Account(a)
	case order.Account:
		return a
	}
	return order.Account{}
}
