package referral

import (
	"errors"
	"fmt"
)

// Kind groups failures by the rule they violate.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindAsset         Kind = "asset"
	KindFunds         Kind = "funds"
	KindArithmetic    Kind = "arithmetic"
)

// Error is a discriminated referral failure with a stable code and message.
type Error struct {
	Code    int
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return "referral: " + e.Message
}

func newError(code int, kind Kind, msg string) *Error {
	return &Error{Code: code, Kind: kind, Message: msg}
}

var (
	ErrInvalidRewardAmount   = newError(100, KindValidation, "invalid reward amount")
	ErrInvalidFeeAmount      = newError(101, KindValidation, "invalid fee amount")
	ErrInvalidLockedPeriod   = newError(102, KindValidation, "invalid locked period")
	ErrInvalidTierReward     = newError(103, KindValidation, "invalid tier reward")
	ErrInvalidTierThreshold  = newError(104, KindValidation, "invalid tier threshold")
	ErrInvalidProgramEndTime = newError(105, KindValidation, "invalid program end time")
	ErrInvalidRewardCap      = newError(106, KindValidation, "invalid reward cap")
	ErrInvalidMinTokenAmount = newError(107, KindValidation, "invalid minimum token amount")
	ErrInvalidPolicy         = newError(108, KindValidation, "invalid reward policy")

	ErrInvalidAuthority = newError(200, KindAuthorization, "invalid authority")
	ErrInvalidReferrer  = newError(201, KindAuthorization, "invalid referrer")
	ErrInvalidOwner     = newError(202, KindAuthorization, "caller does not own participant")

	ErrProgramInactive      = newError(300, KindState, "program inactive")
	ErrProgramNotFound      = newError(301, KindState, "program not found")
	ErrProgramAlreadyExists = newError(302, KindState, "program already exists")
	ErrParticipantNotFound  = newError(303, KindState, "participant not found")
	ErrParticipantExists    = newError(304, KindState, "participant already exists")
	ErrProgramEnded         = newError(305, KindState, "program ended")
	ErrEscrowInitialized    = newError(306, KindState, "token escrow already initialized")
	ErrEscrowNotInitialized = newError(307, KindState, "token escrow not initialized")

	ErrTokenDepositToNativeProgram = newError(400, KindAsset, "token deposit to native program")
	ErrNativeDepositToTokenProgram = newError(401, KindAsset, "native deposit to token program")
	ErrInvalidTokenMint            = newError(402, KindAsset, "invalid token mint")

	ErrInsufficientDeposit = newError(500, KindFunds, "insufficient deposit")
	ErrInsufficientFunds   = newError(501, KindFunds, "insufficient funds")
	ErrNoRewardsAvailable  = newError(502, KindFunds, "no rewards available")
	ErrInsufficientBalance = newError(503, KindFunds, "insufficient balance")

	ErrNumericOverflow = newError(600, KindArithmetic, "numeric overflow")
)

var errNilState = errors.New("referral: state not configured")

// CodeOf returns the referral error code carried by err, or 0 when err is not
// a referral failure.
func CodeOf(err error) int {
	var refErr *Error
	if errors.As(err, &refErr) {
		return refErr.Code
	}
	return 0
}

// KindOf returns the failure kind carried by err, or an empty kind.
func KindOf(err error) Kind {
	var refErr *Error
	if errors.As(err, &refErr) {
		return refErr.Kind
	}
	return ""
}

func wrap(base *Error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}
