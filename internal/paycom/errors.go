package paycom

import (
	"encoding/json"
	"fmt"

	"paycom/internal/order"
)

// Protocol error codes.
const (
	CodeInternalSystem        = -32400
	CodeInsufficientPrivilege = -32504
	CodeInvalidRequest        = -32600
	CodeParseError            = -32700
	CodeRequestMethod         = -32300
	CodeMethodNotFound        = -32601
	CodeTransactionNotFound   = -31001
	CodeCouldNotCancel        = -31007
	CodeCouldNotPerform       = -31008
	CodeInvalidAccount        = -31050

	// Account errors may use any code in this range.
	codeAccountMin = -31099
	codeAccountMax = -31050
)

// Message is an error message, either plain text or localized.
type Message struct {
	Text string
	RU   string
	UZ   string
	EN   string
}

// Localized reports whether the message carries per-language texts.
func (m Message) Localized() bool {
	return m.RU != "" || m.UZ != "" || m.EN != ""
}

func (m Message) String() string {
	if m.Localized() {
		return m.EN
	}
	return m.Text
}

func (m Message) MarshalJSON() ([]byte, error) {
	if !m.Localized() {
		return json.Marshal(m.Text)
	}
	return json.Marshal(struct {
		RU string `json:"ru"`
		UZ string `json:"uz"`
		EN string `json:"en"`
	}{m.RU, m.UZ, m.EN})
}

// Error is a protocol error returned to the gateway.
type Error struct {
	Code    int     `json:"code"`
	Message Message `json:"message"`
	Data    string  `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("paycom error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("paycom error %d: %s", e.Code, e.Message)
}

func newError(code int, text string) *Error {
	return &Error{Code: code, Message: Message{Text: text}}
}

func errInsufficientPrivilege(text string) *Error {
	return newError(CodeInsufficientPrivilege, text)
}

func errMethodNotFound(method string) *Error {
	e := newError(CodeMethodNotFound, "Method not found.")
	e.Data = method
	return e
}

func errTransactionNotFound() *Error {
	return newError(CodeTransactionNotFound, "Transaction not found.")
}

func errCouldNotPerform(text string) *Error {
	return newError(CodeCouldNotPerform, text)
}

func errCouldNotCancel() *Error {
	return newError(CodeCouldNotCancel, "Could not cancel transaction. Order is delivered/Service is completed.")
}

func errInternal() *Error {
	return newError(CodeInternalSystem, "Internal System Error.")
}

// errInvalidField reports a missing or malformed parameter.
func errInvalidField(field, text string) *Error {
	return &Error{Code: CodeInvalidAccount, Message: Message{Text: text}, Data: field}
}

func errInvalidLocalized(field, ru, uz, en string) *Error {
	return &Error{
		Code:    CodeInvalidAccount,
		Message: Message{RU: ru, UZ: uz, EN: en},
		Data:    field,
	}
}

// fromAccountError converts an order provider's account failure.
func fromAccountError(ae *order.AccountError) *Error {
	code := ae.Code
	if code < codeAccountMin || code > codeAccountMax {
		code = CodeInvalidAccount
	}
	msg := Message{RU: ae.RU, UZ: ae.UZ, EN: ae.EN}
	if !msg.Localized() {
		msg.Text = ae.Error()
	}
	return &Error{Code: code, Message: msg, Data: ae.Field}
}
