package protocol

import (
	"fmt"
	"testing"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/catalog"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unauthorized", err: ErrUnauthorized, want: CodeUnauthorized},
		{name: "cart not found", err: repository.ErrCartNotFound, want: CodeNotFound},
		{name: "product not found", err: catalog.ErrProductNotFound, want: CodeNotFound},
		{name: "cart in use", err: repository.ErrCartInUse, want: CodeConflict},
		{name: "no cart data", err: ErrNoCartData, want: CodeBadRequest},
		{name: "bad payload", err: ErrBadPayload, want: CodeBadRequest},
		{name: "wrapped sentinel", err: fmt.Errorf("claim: %w", repository.ErrCartInUse), want: CodeConflict},
		{name: "unknown", err: fmt.Errorf("database error"), want: CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFor(tt.err))
		})
	}
}

func TestError(t *testing.T) {
	msg := Error(EventScanCartQR, repository.ErrCartInUse)

	assert.Equal(t, EventError, msg.Event)
	payload := msg.Payload.(ErrorPayload)
	assert.False(t, payload.Success)
	assert.Equal(t, EventScanCartQR, payload.Event)
	assert.Equal(t, CodeConflict, payload.Code)
	assert.NotEmpty(t, payload.Message)
}
