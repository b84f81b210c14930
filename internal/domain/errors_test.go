package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShareCountError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("buy: %w", &ShareCountError{Input: "-3", Reason: ReasonNegative})

	assert.ErrorIs(t, err, ErrInvalidShareCount)

	var scErr *ShareCountError
	if assert.True(t, errors.As(err, &scErr)) {
		assert.Equal(t, ReasonNegative, scErr.Reason)
		assert.Equal(t, "-3", scErr.Input)
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrInvalidShareCount,
		ErrQuoteNotFound,
		ErrInsufficientFunds,
		ErrInsufficientShares,
		ErrStorageFailure,
		ErrAccountNotFound,
		ErrAmountOverflow,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			assert.False(t, errors.Is(errs[i], errs[j]), "sentinel errors %d and %d should be distinct", i, j)
		}
	}
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(&ShareCountError{Input: "abc", Reason: ReasonNotInteger}))
	assert.True(t, IsRejection(fmt.Errorf("wrapped: %w", ErrInsufficientFunds)))
	assert.True(t, IsRejection(ErrInsufficientShares))
	assert.True(t, IsRejection(ErrQuoteNotFound))
	assert.True(t, IsRejection(&ValidationError{Message: "bad"}))
	assert.False(t, IsRejection(fmt.Errorf("%w: disk full", ErrStorageFailure)))
	assert.False(t, IsRejection(errors.New("boom")))
}
