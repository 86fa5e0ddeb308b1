package ports

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "symbol not found", err: fmt.Errorf("GetTicker failed: %w: %w", ErrSymbolNotFound, errors.New("code -1121")), want: "symbol not found"},
		{name: "malformed payload", err: fmt.Errorf("GetOrderBook failed: %w", ErrMalformedPayload), want: "malformed payload"},
		{name: "network", err: fmt.Errorf("x: %w", ErrConnectionFailed), want: "network error"},
		{name: "deadline", err: fmt.Errorf("x: %w", context.DeadlineExceeded), want: "request timed out"},
		{name: "rate limited", err: ErrRateLimited, want: "rate limited by exchange"},
		{name: "bad bucket table", err: fmt.Errorf("bucket 2: %w", ErrInvalidBucketTable), want: "invalid configuration"},
		{name: "anything else", err: errors.New("boom"), want: "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}
