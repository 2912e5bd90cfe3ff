package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BertoldVdb/softi2c/softi2c/busopen"
)

func newTestAPI(t *testing.T, logSize int) *API {
	bus, _ := busopen.OpenSim([]uint8{0x20, 0x50}, t.Logf)
	a, err := New(bus, logSize)
	require.NoError(t, err)
	return a
}

func do(a *API, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	return rec
}

func TestInfo(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := do(a, "GET", "/info", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "sim", info.Name)

	assert.Equal(t, http.StatusMethodNotAllowed, do(a, "POST", "/info", "").Code)
}

func TestScan(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := do(a, "GET", "/scan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ctJSON, rec.Header().Get("Content-Type"))

	var result ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []int{0x20, 0x50}, result.Found)
}

func TestRegisterAccess(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := do(a, "POST", "/reg?addr=0x50&reg=4&value=0x99", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(a, "GET", "/reg?addr=0x50&reg=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0x99}, rec.Body.Bytes())

	require.Equal(t, http.StatusNoContent, do(a, "POST", "/write?addr=0x50", "\x05\x11\x22").Code)
	rec = do(a, "GET", "/reg?addr=0x50&reg=6", "")
	assert.Equal(t, []byte{0x22}, rec.Body.Bytes())

	// A single byte write only moves the register pointer.
	require.Equal(t, http.StatusNoContent, do(a, "POST", "/write?addr=0x50", "\x05").Code)
	rec = do(a, "GET", "/read?addr=0x50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0x11}, rec.Body.Bytes())
}

func TestStatusCodes(t *testing.T) {
	a := newTestAPI(t, 0)

	for _, tc := range []struct {
		method, target string
		code           int
	}{
		{"GET", "/read?addr=0x33", http.StatusBadGateway},
		{"POST", "/write?addr=0x33", http.StatusBadGateway},
		{"GET", "/reg?addr=0x33&reg=1", http.StatusBadGateway},
		{"GET", "/read", http.StatusBadRequest},
		{"GET", "/read?addr=0x80", http.StatusBadRequest},
		{"GET", "/read?addr=zz", http.StatusBadRequest},
		{"GET", "/reg?addr=0x50", http.StatusBadRequest},
		{"POST", "/reg?addr=0x50&reg=1", http.StatusBadRequest},
		{"POST", "/reg?addr=0x50&reg=1&value=256", http.StatusBadRequest},
		{"POST", "/read?addr=0x50", http.StatusMethodNotAllowed},
		{"GET", "/write?addr=0x50", http.StatusMethodNotAllowed},
		{"DELETE", "/reg?addr=0x50&reg=1", http.StatusMethodNotAllowed},
		{"POST", "/scan", http.StatusMethodNotAllowed},
		{"POST", "/log", http.StatusMethodNotAllowed},
	} {
		rec := do(a, tc.method, tc.target, "x")
		assert.Equal(t, tc.code, rec.Code, "%s %s", tc.method, tc.target)
	}
}

func TestWriteTooLarge(t *testing.T) {
	a := newTestAPI(t, 0)

	rec := do(a, "POST", "/write?addr=0x50", strings.Repeat("a", MaxWrite+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, a.Log())
}

func TestLog(t *testing.T) {
	a := newTestAPI(t, 2)

	do(a, "GET", "/read?addr=0x33", "")
	do(a, "POST", "/reg?addr=0x50&reg=1&value=2", "")
	do(a, "GET", "/reg?addr=0x50&reg=1", "")

	entries := a.Log()
	require.Len(t, entries, 2)

	assert.Equal(t, "WriteReg", entries[0].Op)
	assert.Equal(t, uint8(0x50), entries[0].Addr)
	assert.Equal(t, "0102", entries[0].Tx)
	assert.Empty(t, entries[0].Error)

	assert.Equal(t, "ReadReg", entries[1].Op)
	assert.Equal(t, "01", entries[1].Tx)
	assert.Equal(t, "02", entries[1].Rx)

	rec := do(a, "GET", "/log", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var served []Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &served))
	require.Len(t, served, 2)
	assert.Equal(t, entries[1].Op, served[1].Op)
}

func TestLogRecordsErrors(t *testing.T) {
	a := newTestAPI(t, 0)

	do(a, "GET", "/read?addr=0x33", "")

	entries := a.Log()
	require.Len(t, entries, 1)
	assert.Equal(t, "ReadByte", entries[0].Op)
	assert.NotEmpty(t, entries[0].Error)
}
