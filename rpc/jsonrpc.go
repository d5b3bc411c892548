package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"refchain/core"
	"refchain/native/common"
	"refchain/native/referral"
	"refchain/observability"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeForbidden      = -32003
	codeReferralError  = -32010
	codeDuplicate      = -32011
	codeModulePaused   = -32012
	codeUnavailable    = -32013
	codeRateLimited    = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ReferralErrorData is attached to codeReferralError responses so clients can
// branch on the stable referral code and kind.
type ReferralErrorData struct {
	Code   int    `json:"code"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// failure pairs an RPC error with the HTTP status it is reported under.
type failure struct {
	status int
	err    *RPCError
}

func invalidParams(message string, data interface{}) *failure {
	return &failure{status: http.StatusBadRequest, err: &RPCError{Code: codeInvalidParams, Message: message, Data: data}}
}

type methodHandler func(r *http.Request, params []json.RawMessage) (interface{}, *failure)

type method struct {
	handler methodHandler
	scopes  []string
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) methods() map[string]method {
	return map[string]method{
		"referral_chainId":          {handler: s.handleChainID},
		"referral_sendTransaction":  {handler: s.handleSendTransaction},
		"referral_getProgram":       {handler: s.handleGetProgram},
		"referral_listPrograms":     {handler: s.handleListPrograms},
		"referral_getParticipant":   {handler: s.handleGetParticipant},
		"referral_listParticipants": {handler: s.handleListParticipants},
		"referral_claimable":        {handler: s.handleClaimable},
		"referral_getAccount":       {handler: s.handleGetAccount},
		"referral_listEvents":       {handler: s.handleListEvents},
		"referral_mint":             {handler: s.handleMint, scopes: []string{AdminScope}},
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	m, ok := s.methods()[req.Method]
	if !ok {
		observability.ModuleMetrics().Observe("referral", "unknown", codeMethodNotFound, time.Since(start))
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	var (
		result interface{}
		fail   *failure
	)
	if len(m.scopes) > 0 {
		if authErr := s.auth.Authorize(r, m.scopes...); authErr != nil {
			status := http.StatusUnauthorized
			if authErr.Code == codeForbidden {
				status = http.StatusForbidden
			}
			fail = &failure{status: status, err: authErr}
		}
	}
	if fail == nil {
		result, fail = m.handler(r, req.Params)
	}
	code := 0
	if fail != nil {
		code = fail.err.Code
	}
	observability.ModuleMetrics().Observe("referral", req.Method, code, time.Since(start))
	if fail != nil {
		writeError(w, fail.status, req.ID, fail.err.Code, fail.err.Message, fail.err.Data)
		return
	}
	writeResult(w, req.ID, result)
}

// nodeFailure maps a node or engine error onto the JSON-RPC error space.
func (s *Server) nodeFailure(err error) *failure {
	var refErr *referral.Error
	if errors.As(err, &refErr) {
		return &failure{
			status: statusForKind(refErr),
			err: &RPCError{
				Code:    codeReferralError,
				Message: refErr.Message,
				Data:    ReferralErrorData{Code: refErr.Code, Kind: string(refErr.Kind), Detail: err.Error()},
			},
		}
	}
	switch {
	case errors.Is(err, core.ErrNonceMismatch),
		errors.Is(err, core.ErrChainIDMismatch),
		errors.Is(err, core.ErrInvalidSignature),
		errors.Is(err, core.ErrInvalidPayload),
		errors.Is(err, core.ErrUnknownTxType),
		errors.Is(err, core.ErrMintInvalidAmount):
		return invalidParams(err.Error(), nil)
	case errors.Is(err, core.ErrMintReferenceUsed):
		return &failure{status: http.StatusConflict, err: &RPCError{Code: codeDuplicate, Message: err.Error()}}
	case errors.Is(err, common.ErrModulePaused):
		return &failure{status: http.StatusServiceUnavailable, err: &RPCError{Code: codeModulePaused, Message: err.Error()}}
	default:
		s.log.Error("rpc internal error", slog.String("error", err.Error()))
		return &failure{status: http.StatusInternalServerError, err: &RPCError{Code: codeServerError, Message: "internal error"}}
	}
}

func statusForKind(err *referral.Error) int {
	switch err.Kind {
	case referral.KindValidation, referral.KindAsset:
		return http.StatusBadRequest
	case referral.KindAuthorization:
		return http.StatusForbidden
	case referral.KindState:
		if err == referral.ErrProgramNotFound || err == referral.ErrParticipantNotFound {
			return http.StatusNotFound
		}
		return http.StatusConflict
	default:
		return http.StatusConflict
	}
}

func decodeParam(params []json.RawMessage, idx int, name string, out interface{}) *failure {
	if len(params) <= idx {
		return invalidParams(fmt.Sprintf("%s parameter required", name), nil)
	}
	dec := json.NewDecoder(bytes.NewReader(params[idx]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams(fmt.Sprintf("invalid %s parameter", name), err.Error())
	}
	return nil
}

func stringParam(params []json.RawMessage, idx int, name string) (string, *failure) {
	var value string
	if fail := decodeParam(params, idx, name, &value); fail != nil {
		return "", fail
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalidParams(fmt.Sprintf("%s parameter required", name), nil)
	}
	return value, nil
}
