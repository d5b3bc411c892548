package main

import (
	"context"
	"errors"
	"strings"

	"refchain/core/types"
	"refchain/rpc"
)

func (a *app) program(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected a program address")
	}
	var view rpc.ProgramResult
	if err := a.client.call(ctx, "referral_getProgram", &view, args[0]); err != nil {
		return err
	}
	return a.print(view)
}

func (a *app) participant(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("expected a participant address, or a program and owner address")
	}
	params := make([]interface{}, 0, len(args))
	for _, arg := range args {
		params = append(params, arg)
	}
	var view rpc.ParticipantResult
	if err := a.client.call(ctx, "referral_getParticipant", &view, params...); err != nil {
		return err
	}
	return a.print(view)
}

func (a *app) claimable(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected a participant address")
	}
	var quote rpc.QuoteResult
	if err := a.client.call(ctx, "referral_claimable", &quote, args[0]); err != nil {
		return err
	}
	return a.print(quote)
}

func (a *app) account(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("expected an address and optional asset")
	}
	params := []interface{}{args[0]}
	if len(args) == 2 {
		params = append(params, args[1])
	}
	var account types.Account
	if err := a.client.call(ctx, "referral_getAccount", &account, params...); err != nil {
		return err
	}
	return a.print(account)
}

func (a *app) events(ctx context.Context, args []string) error {
	fs := newFlagSet("events")
	program := fs.String("program", "", "Filter by program address")
	participant := fs.String("participant", "", "Filter by participant address")
	eventType := fs.String("type", "", "Filter by event type")
	after := fs.Uint64("after", 0, "Only events after this sequence")
	limit := fs.Int("limit", 0, "Maximum number of events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter := map[string]interface{}{}
	if v := strings.TrimSpace(*program); v != "" {
		filter["program"] = v
	}
	if v := strings.TrimSpace(*participant); v != "" {
		filter["participant"] = v
	}
	if v := strings.TrimSpace(*eventType); v != "" {
		filter["type"] = v
	}
	if *after > 0 {
		filter["after"] = *after
	}
	if *limit > 0 {
		filter["limit"] = *limit
	}
	var history []rpc.EventResult
	if err := a.client.call(ctx, "referral_listEvents", &history, filter); err != nil {
		return err
	}
	return a.print(history)
}

func (a *app) mint(ctx context.Context, args []string) error {
	fs := newFlagSet("mint")
	recipient := fs.String("recipient", "", "Recipient address")
	asset := fs.String("asset", "native", "Asset to credit")
	amount := fs.Uint64("amount", 0, "Amount to credit")
	reference := fs.String("reference", "", "Idempotency reference")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireAddresses(map[string]string{"recipient": *recipient}); err != nil {
		return err
	}
	if *amount == 0 {
		return errors.New("--amount must be greater than zero")
	}
	params := map[string]interface{}{"recipient": *recipient, "asset": *asset, "amount": *amount}
	if v := strings.TrimSpace(*reference); v != "" {
		params["reference"] = v
	}
	var account types.Account
	if err := a.client.call(ctx, "referral_mint", &account, params); err != nil {
		return err
	}
	return a.print(account)
}
