package busopen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BertoldVdb/softi2c/softi2c"
)

func TestOpenSim(t *testing.T) {
	bus, err := OpenBus("sim:0x20,0x50,", t.Logf)
	require.NoError(t, err)
	defer bus.Close()

	found, err := bus.Master().Scan()
	require.NoError(t, err)
	assert.Equal(t, []uint8{0x20, 0x50}, found)

	require.NoError(t, bus.WriteRegister(0x50, 3, []byte{0x44}))
	buf := make([]byte, 1)
	require.NoError(t, bus.ReadRegister(0x50, 3, buf))
	assert.Equal(t, byte(0x44), buf[0])
}

func TestOpenSimEmpty(t *testing.T) {
	bus, err := OpenBus("sim", nil)
	require.NoError(t, err)

	found, err := bus.Master().Scan()
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestOpenBusErrors(t *testing.T) {
	for _, path := range []string{
		"",
		"usb:1234",
		"sim:0x80",
		"sim:zz",
		"periph:GPIO5",
		"periph:GPIO5:GPIO6:fast",
		"periph:GPIO5:GPIO6:0",
		"mcp2221a::GP4:GP1",
		"mcp2221a::GP0:x",
	} {
		_, err := OpenBus(path, nil)
		assert.Error(t, err, path)
	}

	_, err := OpenBus("sim:0x99", nil)
	require.ErrorIs(t, err, softi2c.ErrAddress)
}

func TestParsePin(t *testing.T) {
	pin, err := parsePin("gp3")
	require.NoError(t, err)
	assert.Equal(t, byte(3), pin)

	pin, err = parsePin("2")
	require.NoError(t, err)
	assert.Equal(t, byte(2), pin)
}

func TestParseDelay(t *testing.T) {
	units, err := parseDelay([]string{"periph", "a", "b"}, 3)
	require.NoError(t, err)
	assert.Equal(t, softi2c.DefaultDelayUnits, units)

	units, err = parseDelay([]string{"periph", "a", "b", "120"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 120, units)
}
