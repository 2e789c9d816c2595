package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sharetrust/sharetrust/internal/services"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{services.ErrGroupNotFound, http.StatusNotFound},
		{services.ErrProfileNotFound, http.StatusNotFound},
		{services.ErrNotGroupCreator, http.StatusForbidden},
		{services.ErrNotApprovedMember, http.StatusForbidden},
		{services.ErrGroupFull, http.StatusConflict},
		{services.ErrAlreadyPaid, http.StatusConflict},
		{services.ErrCodeReplayed, http.StatusConflict},
		{services.ErrEmptyMessage, http.StatusBadRequest},
		{services.ErrReportSelf, http.StatusBadRequest},
		{services.ErrLineAuthFailed, http.StatusUnauthorized},
		{services.ErrInvalidRefreshToken, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, statusForError(c.err), "error %v", c.err)
	}
}

func TestStatusForError_WrappedErrors(t *testing.T) {
	// Service 层经常用 fmt.Errorf("%w: ...") 包装哨兵错误
	wrapped := errors.Join(services.ErrLineAuthFailed, errors.New("exchange failed"))
	assert.Equal(t, http.StatusUnauthorized, statusForError(wrapped))
}
