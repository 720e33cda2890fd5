package models

import "errors"

// Custom errors
var (
	ErrNoSelections      = errors.New("no selections supplied")
	ErrInvalidPrice      = errors.New("price must be greater than 1.0")
	ErrInvalidTotalStake = errors.New("total stake must be positive")
	ErrInvalidTarget     = errors.New("target profit must be positive")
	ErrInvalidLiability  = errors.New("total liability must be positive")
	ErrBookNotProfitable = errors.New("implied book >= 100%, profit not guaranteed")
	ErrNegativeStake     = errors.New("no positive-stake solution satisfies the equal-profit constraint")
	ErrSingularSystem    = errors.New("linear system is singular")
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
)
