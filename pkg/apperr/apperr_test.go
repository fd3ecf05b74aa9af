package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.Equal(t, NotFound, KindOf(New(NotFound, "missing")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := New(Conflict, "already paid")
	wrapped := fmt.Errorf("update invoice: %w", err)

	assert.True(t, Is(wrapped, Conflict))
	assert.Equal(t, http.StatusConflict, Status(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("smtp refused")
	err := Wrap(Delivery, cause, "failed to send invoice")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to send invoice: smtp refused", err.Error())
	assert.Equal(t, http.StatusBadGateway, Status(err))
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		Internal:     http.StatusInternalServerError,
		Unauthorized: http.StatusUnauthorized,
		Forbidden:    http.StatusForbidden,
		Validation:   http.StatusBadRequest,
		NotFound:     http.StatusNotFound,
		Conflict:     http.StatusConflict,
		Delivery:     http.StatusBadGateway,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Status(New(kind, "x")))
	}
}
