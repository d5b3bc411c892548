package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"refchain/rpc"
)

type client struct {
	endpoint string
	token    string
	http     *http.Client
}

func newClient(endpoint, token string, httpClient *http.Client) *client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if !strings.HasSuffix(endpoint, "/rpc") {
		endpoint += "/rpc"
	}
	return &client{endpoint: endpoint, token: strings.TrimSpace(token), http: httpClient}
}

// rpcError is a JSON-RPC error returned by the node.
type rpcError struct {
	*rpc.RPCError
}

func (e *rpcError) Error() string {
	if e.Data == nil {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}
	data, _ := json.Marshal(e.Data)
	return fmt.Sprintf("rpc error %d: %s %s", e.Code, e.Message, data)
}

// call invokes method and decodes the result into out when out is non-nil.
func (c *client) call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		raw = append(raw, data)
	}
	body, err := json.Marshal(rpc.RPCRequest{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.RPCError   `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if envelope.Error != nil {
		return &rpcError{envelope.Error}
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}
