package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewNotFoundError("Subscription not found")
	wrapped := fmt.Errorf("load subscription: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrQuotaExceeded))
	assert.Equal(t, "Subscription not found", err.Error())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"domain error", NewInvalidTransitionError("x"), CodeInvalidTransition},
		{"wrapped", fmt.Errorf("outer: %w", ErrCutoffPassed), CodeCutoffPassed},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
		})
	}
}

func TestErrorClassification(t *testing.T) {
	integrity := fmt.Errorf("unfreeze: %w", NewIntegrityViolationError("tail consumed"))
	assert.True(t, IsIntegrityViolation(integrity))
	assert.False(t, IsBusinessRejection(integrity))

	for _, err := range []error{ErrNotFound, ErrInvalidTransition, ErrQuotaExceeded, ErrCutoffPassed, ErrPastDate, ErrValidation} {
		assert.True(t, IsBusinessRejection(err), err.Error())
		assert.False(t, IsIntegrityViolation(err))
	}
	assert.False(t, IsBusinessRejection(errors.New("db down")))
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 45, 2, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 20, DefaultFilter().PageSize)
	assert.Equal(t, 20, Filter{Page: 2, PageSize: 20}.Offset())
	assert.Equal(t, 0, Filter{Page: 0, PageSize: 20}.Offset())
	assert.Equal(t, 0, NewPaginated[int](nil, 0, 1, 20).TotalPages)
}

func TestFilter_Normalized(t *testing.T) {
	assert.Equal(t, Filter{Page: 1, PageSize: DefaultPageSize}, Filter{}.Normalized())
	assert.Equal(t, Filter{Page: 3, PageSize: MaxPageSize}, Filter{Page: 3, PageSize: 5000}.Normalized())
	assert.Equal(t, Filter{Page: 2, PageSize: 7}, Filter{Page: 2, PageSize: 7}.Normalized())
}
