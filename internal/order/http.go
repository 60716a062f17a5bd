package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"paycom/internal/pkg/httpclient"
)

// HTTPProvider delegates order handling to a merchant service over HTTP.
//
//	POST {base}/orders/find              {"account": {...}}           -> Order
//	POST {base}/orders/{id}/validate     {"amount": n}                -> 204/200
//	POST {base}/orders/{id}/paid         {"transaction_id": n}        -> 204/200
//	POST {base}/orders/{id}/cancel       {"after_complete": bool}     -> 204/200
//	GET  {base}/orders/{id}/cancellable                               -> {"allow": bool}
//
// A 4xx answer with an `error` object is reported as *AccountError.
type HTTPProvider struct {
	baseURL string
	client  *httpclient.Client
}

func NewHTTPProvider(baseURL string, client *httpclient.Client) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *HTTPProvider) Name() string {
	return "http"
}

type serviceError struct {
	Error *struct {
		Field   string            `json:"field"`
		Code    int               `json:"code"`
		Message map[string]string `json:"message"`
	} `json:"error"`
}

func (p *HTTPProvider) orderURL(id, action string) string {
	return p.baseURL + "/orders/" + url.PathEscape(id) + "/" + action
}

// accountError turns a 4xx response into *AccountError. It returns nil for
// responses that are not account failures.
func accountError(resp *httpclient.Response, fallback *AccountError) *AccountError {
	if resp.StatusCode < 400 || resp.StatusCode >= 500 {
		return nil
	}
	var body serviceError
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Error == nil {
		return fallback
	}
	e := &AccountError{
		Field: body.Error.Field,
		Code:  body.Error.Code,
		RU:    body.Error.Message["ru"],
		UZ:    body.Error.Message["uz"],
		EN:    body.Error.Message["en"],
	}
	if e.EN == "" {
		e.EN = fallback.EN
	}
	return e
}

func (p *HTTPProvider) Find(ctx context.Context, account Account) (*Order, error) {
	if account.OrderID() == "" {
		return nil, errOrderIDMissing()
	}
	var o Order
	resp, err := p.client.PostJSON(ctx, p.baseURL+"/orders/find", map[string]interface{}{"account": account}, &o)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errOrderNotFound()
	}
	if ae := accountError(resp, errOrderNotFound()); ae != nil {
		return nil, ae
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("order service find: status %d", resp.StatusCode)
	}
	if o.ID == "" {
		o.ID = account.OrderID()
	}
	return &o, nil
}

func (p *HTTPProvider) Validate(ctx context.Context, o *Order, amount int64) error {
	resp, err := p.client.PostJSON(ctx, p.orderURL(o.ID, "validate"), map[string]interface{}{"amount": amount}, nil)
	if err != nil {
		return err
	}
	if ae := accountError(resp, errAmountMismatch()); ae != nil {
		return ae
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("order service validate %s: status %d", o.ID, resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) SetPaid(ctx context.Context, o *Order, transactionID uint) error {
	resp, err := p.client.PostJSON(ctx, p.orderURL(o.ID, "paid"), map[string]interface{}{"transaction_id": transactionID}, nil)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("order service paid %s: status %d", o.ID, resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) Cancel(ctx context.Context, o *Order, afterComplete bool) error {
	resp, err := p.client.PostJSON(ctx, p.orderURL(o.ID, "cancel"), map[string]interface{}{"after_complete": afterComplete}, nil)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("order service cancel %s: status %d", o.ID, resp.StatusCode)
	}
	return nil
}

func (p *HTTPProvider) AllowCancel(ctx context.Context, o *Order) (bool, error) {
	var out struct {
		Allow bool `json:"allow"`
	}
	resp, err := p.client.GetJSON(ctx, p.orderURL(o.ID, "cancellable"), &out)
	if err != nil {
		return false, err
	}
	if !resp.IsSuccess() {
		return false, fmt.Errorf("order service cancellable %s: status %d", o.ID, resp.StatusCode)
	}
	return out.Allow, nil
}
