package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrTermNotFound, http.StatusNotFound},
		{fmt.Errorf("lookup: %w", ErrTermNotFound), http.StatusNotFound},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{ErrScanFailed, http.StatusInternalServerError},
		{New(ErrInvalidInput, http.StatusUnprocessableEntity, "bad limit"), http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatusCode(tc.err), tc.err.Error())
	}
}

func TestAppErrorUnwraps(t *testing.T) {
	err := Newf(ErrIndexBuild, http.StatusInternalServerError, "%d surfaces", 3)
	assert.True(t, errors.Is(err, ErrIndexBuild))
	assert.Equal(t, "pattern index build failed: 3 surfaces", err.Error())
}
