package fundflow

import "errors"

var (
	ErrDuplicateDate     = errors.New("fundflow: duplicate trading date")
	ErrAlreadyNormalized = errors.New("fundflow: amounts already normalized")
	ErrUnknownWindow     = errors.New("fundflow: unknown moving average window")
)
