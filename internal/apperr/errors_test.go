package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("user not found")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrapped: %w", Conflict("busy"))))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindUnavailable, KindOf(context.Canceled))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestKind_CodesAndStatuses(t *testing.T) {
	assert.Equal(t, "PRECONDITION_FAILED", KindPreconditionFailed.Code())
	assert.Equal(t, http.StatusPreconditionFailed, KindPreconditionFailed.HTTPStatus())
	assert.Equal(t, http.StatusConflict, KindConflict.HTTPStatus())
	assert.Equal(t, http.StatusGatewayTimeout, KindTimeout.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, KindUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, KindInvalidArgument.HTTPStatus())
}

func TestPublicMessage_HidesInternalCause(t *testing.T) {
	err := Internal(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, "stage must be between 3 and 5, got 7", PublicMessage(InvalidArgument("stage must be between %d and %d, got %d", 3, 5, 7)))
	assert.Equal(t, "data store timed out", PublicMessage(context.DeadlineExceeded))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(KindUnavailable, "redis unavailable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "redis unavailable: root", err.Error())
	assert.True(t, Is(err, KindUnavailable))
	assert.False(t, Is(nil, KindUnavailable))
}
