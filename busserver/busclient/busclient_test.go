package busclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BertoldVdb/softi2c/busserver/api"
	"github.com/BertoldVdb/softi2c/softi2c"
	"github.com/BertoldVdb/softi2c/softi2c/busopen"
	"github.com/BertoldVdb/softi2c/softi2c/i2csim"
	"github.com/BertoldVdb/softi2c/xfs5152ce"
)

func newServer(t *testing.T, bus *softi2c.Bus) *httptest.Server {
	a, err := api.New(bus, 0)
	require.NoError(t, err)

	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, addrs ...uint8) *Client {
	bus, _ := busopen.OpenSim(addrs, t.Logf)
	srv := newServer(t, bus)

	c, err := New(srv.URL+"/", WithTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestName(t *testing.T) {
	c := newClient(t)
	assert.Equal(t, "sim", c.Name())
}

func TestTransactions(t *testing.T) {
	c := newClient(t, 0x50)

	require.NoError(t, c.WriteReg(0x50, 0x10, 0xab))
	v, err := c.ReadReg(0x50, 0x10)
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), v)

	require.NoError(t, c.WriteMultiBytes(0x50, []byte{0x20, 1, 2, 3}))
	require.NoError(t, c.WriteByte(0x50, 0x21))

	v, err = c.ReadByte(0x50)
	require.NoError(t, err)
	assert.Equal(t, byte(2), v)

	v, err = c.ReadByte(0x50)
	require.NoError(t, err)
	assert.Equal(t, byte(3), v)
}

func TestNoAck(t *testing.T) {
	c := newClient(t, 0x50)

	_, err := c.ReadByte(0x51)
	require.ErrorIs(t, err, softi2c.ErrNoAck)

	_, err = c.ReadReg(0x51, 0)
	require.ErrorIs(t, err, softi2c.ErrNoAck)

	require.ErrorIs(t, c.WriteByte(0x51, 0), softi2c.ErrNoAck)
	require.ErrorIs(t, c.WriteReg(0x51, 0, 0), softi2c.ErrNoAck)
}

func TestAddressChecked(t *testing.T) {
	c := newClient(t, 0x50)

	_, err := c.ReadByte(0x80)
	require.ErrorIs(t, err, softi2c.ErrAddress)
	require.ErrorIs(t, c.WriteMultiBytes(0xff, []byte{1}), softi2c.ErrAddress)

	entries, err := c.Log()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScanAndLog(t *testing.T) {
	c := newClient(t, 0x08, 0x3c, 0x77)

	found, err := c.Scan()
	require.NoError(t, err)
	assert.Equal(t, []uint8{0x08, 0x3c, 0x77}, found)

	_, err = c.ReadByte(0x3c)
	require.NoError(t, err)

	entries, err := c.Log()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Scan", entries[0].Op)
	assert.Equal(t, "083c77", entries[0].Rx)
	assert.Equal(t, "ReadByte", entries[1].Op)
	assert.Equal(t, uint8(0x3c), entries[1].Addr)
}

func TestAuth(t *testing.T) {
	bus, _ := busopen.OpenSim([]uint8{0x50}, nil)
	a, err := api.New(bus, 0)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		a.ServeHTTP(w, r)
	}))
	defer srv.Close()

	_, err = New(srv.URL)
	require.Error(t, err)

	c, err := New(srv.URL, WithAuth("user", "secret"))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ReadByte(0x50)
	require.NoError(t, err)
}

func TestSpeechChipOverClient(t *testing.T) {
	wire := i2csim.NewWire()
	stream := &i2csim.Stream{}
	wire.Attach(xfs5152ce.DefaultAddress, stream)

	m := softi2c.New(wire, softi2c.Config{DelayUnits: 2, Delay: softi2c.NoDelay})
	srv := newServer(t, softi2c.NewBus(m, "speech", nil))

	c, err := New(srv.URL)
	require.NoError(t, err)
	defer c.Close()

	chip := xfs5152ce.New(c, xfs5152ce.Config{Log: t.Logf})
	require.NoError(t, chip.Stop())
	require.NoError(t, chip.Volume(3))

	written := stream.Written()
	require.Len(t, written, 2)
	assert.Equal(t, []byte{0xfd, 0x00, 0x01, 0x02}, written[0])
	assert.Equal(t, []byte{0xfd, 0x00, 0x0a, 0x01, 0x03, '[', 0, 'v', 0, '3', 0, ']', 0}, written[1])
}
