package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := authProcess(ok, "key")

	check := func(user, pass string, set bool) int {
		req := httptest.NewRequest("GET", "/info", nil)
		if set {
			req.SetBasicAuth(user, pass)
		}
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec.Code
	}

	user, pass := authCalculate("key", "bench", time.Now().Add(time.Hour))
	assert.Equal(t, http.StatusNoContent, check(user, pass, true))
	assert.Equal(t, http.StatusUnauthorized, check(user, pass, false))
	assert.Equal(t, http.StatusUnauthorized, check(user, "zz", true))
	assert.Equal(t, http.StatusUnauthorized, check(user+"x", pass, true))

	other, otherPass := authCalculate("other", "bench", time.Now().Add(time.Hour))
	assert.Equal(t, http.StatusUnauthorized, check(other, otherPass, true))

	expired, expiredPass := authCalculate("key", "", time.Now().Add(-time.Hour))
	assert.Equal(t, http.StatusUnauthorized, check(expired, expiredPass, true))
}

func TestAuthDisabled(t *testing.T) {
	called := false
	handler := authProcess(func(w http.ResponseWriter, r *http.Request) { called = true }, "")

	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.True(t, called)
}

func TestListenPort(t *testing.T) {
	port, err := listenPort(":8421")
	require.NoError(t, err)
	assert.Equal(t, 8421, port)

	_, err = listenPort("localhost")
	assert.Error(t, err)
}
