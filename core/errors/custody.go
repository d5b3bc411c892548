package errors

import stderrors "errors"

var (
	ErrInsufficientBalance = stderrors.New("custody: insufficient balance")
	ErrBalanceOverflow     = stderrors.New("custody: balance overflow")
	ErrSelfTransfer        = stderrors.New("custody: source and destination are identical")
	ErrZeroAmount          = stderrors.New("custody: amount must be positive")
)
