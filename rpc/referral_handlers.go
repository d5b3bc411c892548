package rpc

import (
	"encoding/json"
	"net/http"
	"strings"

	"refchain/core"
	"refchain/core/types"
	"refchain/crypto"
	"refchain/indexer"
)

type listEventsParams struct {
	Program     string `json:"program,omitempty"`
	Participant string `json:"participant,omitempty"`
	Type        string `json:"type,omitempty"`
	After       uint64 `json:"after,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type mintParams struct {
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Amount    uint64 `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

func addressParam(params []json.RawMessage, idx int, name string) ([20]byte, *failure) {
	raw, fail := stringParam(params, idx, name)
	if fail != nil {
		return [20]byte{}, fail
	}
	addr, err := crypto.ParseRaw(raw)
	if err != nil {
		return [20]byte{}, invalidParams("invalid "+name+" address", err.Error())
	}
	return addr, nil
}

func addressList(addrs [][20]byte) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, bech32(addr))
	}
	return out
}

func (s *Server) handleChainID(_ *http.Request, _ []json.RawMessage) (interface{}, *failure) {
	return s.node.ChainID(), nil
}

func (s *Server) handleSendTransaction(r *http.Request, params []json.RawMessage) (interface{}, *failure) {
	var tx types.Transaction
	if fail := decodeParam(params, 0, "transaction", &tx); fail != nil {
		return nil, fail
	}
	receipt, err := s.node.SubmitTransaction(r.Context(), &tx)
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return receiptResult(receipt), nil
}

func (s *Server) handleGetProgram(_ *http.Request, params []json.RawMessage) (interface{}, *failure) {
	addr, fail := addressParam(params, 0, "program")
	if fail != nil {
		return nil, fail
	}
	view, err := s.node.Program(addr)
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return programResult(view), nil
}

func (s *Server) handleListPrograms(_ *http.Request, params []json.RawMessage) (interface{}, *failure) {
	authority, fail := addressParam(params, 0, "authority")
	if fail != nil {
		return nil, fail
	}
	programs, err := s.node.ProgramsByAuthority(authority)
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return addressList(programs), nil
}

// handleGetParticipant accepts either [participant] or [program, owner].
func (s *Server) handleGetParticipant(_ *http.Request, params []json.RawMessage) (interface{}, *failure) {
	first, fail := addressParam(params, 0, "participant")
	if fail != nil {
		return nil, fail
	}
	if len(params) > 1 {
		owner, fail := addressParam(params, 1, "owner")
		if fail != nil {
			return nil, fail
		}
		participant, err := s.node.ParticipantByOwner(first, owner)
		if err != nil {
			return nil, s.nodeFailure(err)
		}
		return participantResult(participant), nil
	}
	participant, err := s.node.Participant(first)
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return participantResult(participant), nil
}

func (s *Server) handleListParticipants(_ *http.Request, params []json.RawMessage) (interface{}, *failure) {
	program, fail := addressParam(params, 0, "program")
	if fail != nil {
		return nil, fail
	}
	members, err := s.node.Participants(program)
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return addressList(members), nil
}

func (s *Server) handleClaimable(_ *http.Request, params []json.RawMessage) (interface{}, *failure) {
	addr, fail := addressParam(params, 0, "participant")
	if fail != nil {
		return nil, fail
	}
	quote, err := s.node.Claimable(addr)
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return QuoteResult{
		Participant: bech32(addr),
		Gross:       quote.Gross,
		Fee:         quote.Fee,
		Net:         quote.Net,
		Referrals:   quote.Referrals,
		UnlockTime:  quote.UnlockTime,
	}, nil
}

func (s *Server) handleGetAccount(_ *http.Request, params []json.RawMessage) (interface{}, *failure) {
	addr, fail := addressParam(params, 0, "address")
	if fail != nil {
		return nil, fail
	}
	asset := types.NativeAsset()
	if len(params) > 1 {
		raw, fail := stringParam(params, 1, "asset")
		if fail != nil {
			return nil, fail
		}
		parsed, err := types.ParseAsset(raw)
		if err != nil {
			return nil, invalidParams("invalid asset", err.Error())
		}
		asset = parsed
	}
	account, err := s.node.Account(addr, asset)
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return account, nil
}

func (s *Server) handleListEvents(r *http.Request, params []json.RawMessage) (interface{}, *failure) {
	if s.index == nil {
		return nil, &failure{status: http.StatusServiceUnavailable, err: &RPCError{Code: codeUnavailable, Message: "event index disabled"}}
	}
	var p listEventsParams
	if len(params) > 0 {
		if fail := decodeParam(params, 0, "filter", &p); fail != nil {
			return nil, fail
		}
	}
	records, err := s.index.List(r.Context(), indexer.Filter{
		Program:       strings.TrimSpace(p.Program),
		Participant:   strings.TrimSpace(p.Participant),
		Type:          strings.TrimSpace(p.Type),
		AfterSequence: p.After,
		Limit:         p.Limit,
	})
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	out := make([]EventResult, 0, len(records))
	for _, record := range records {
		evt, err := eventResult(record)
		if err != nil {
			return nil, s.nodeFailure(err)
		}
		out = append(out, evt)
	}
	return out, nil
}

func (s *Server) handleMint(_ *http.Request, params []json.RawMessage) (interface{}, *failure) {
	var p mintParams
	if fail := decodeParam(params, 0, "mint", &p); fail != nil {
		return nil, fail
	}
	recipient, err := crypto.ParseRaw(p.Recipient)
	if err != nil {
		return nil, invalidParams("invalid recipient address", err.Error())
	}
	asset, err := types.ParseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams("invalid asset", err.Error())
	}
	account, err := s.node.Mint(core.MintRequest{
		Recipient: recipient,
		Asset:     asset,
		Amount:    p.Amount,
		Reference: p.Reference,
	})
	if err != nil {
		return nil, s.nodeFailure(err)
	}
	return account, nil
}
