package lirc

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestMatchCode(t *testing.T) {
	remote := &Remote{Bits: 16, ToggleBitMask: 0x0800, IgnoreMask: 0x0001}

	assert.True(t, remote.matchCode(0x1234, 0x1234), "equal")
	assert.True(t, remote.matchCode(0x1234, 0x1234^0x0800), "toggle bit flipped")
	assert.True(t, remote.matchCode(0x1234, 0x1235), "ignored bit")
	assert.True(t, remote.matchCode(0x1234, 0x1235^0x0800), "ignored and toggle bit")
	assert.False(t, remote.matchCode(0x1234, 0x1236))
}

func TestGetCodeToggleBitState(t *testing.T) {
	remote := &Remote{
		Bits:          16,
		ToggleBitMask: 0x0800,
		Codes:         []*Button{{Name: "OK", Code: 0x1234}},
	}

	b, tbms := remote.getCode(0, 0x1234, 0, false, false)
	assert.Equal(t, "OK", b.Name)
	assert.Equal(t, Code(0), tbms)

	b, tbms = remote.getCode(0, 0x1234^0x0800, 0, false, false)
	assert.Equal(t, "OK", b.Name)
	assert.Equal(t, Code(0x0800), tbms)
}

func TestGetCodeIgnoredPreBits(t *testing.T) {
	remote := &Remote{
		PreDataBits: 8,
		PreData:     0x40,
		Bits:        8,
		IgnoreMask:  0x0100,
		Codes:       []*Button{{Name: "OK", Code: 0x22}},
	}

	b, _ := remote.getCode(0x41, 0x22, 0, false, false)
	assert.NotZero(t, b)
	assert.Equal(t, "OK", b.Name)

	b, _ = remote.getCode(0x42, 0x22, 0, false, false)
	assert.Zero(t, b)
}

func TestGetCodeFirstCompleteButtonWins(t *testing.T) {
	remote := &Remote{
		Bits: 8,
		Codes: []*Button{
			{Name: "SEQ", Code: 0x01, Sequence: []Code{0x02}},
			{Name: "ONE", Code: 0x01},
		},
	}

	b, _ := remote.getCode(0, 0x01, 0, false, false)
	assert.Equal(t, "ONE", b.Name)
	assert.Equal(t, 1, remote.Codes[0].current, "partial match still advances")
}

func TestDynCodesName(t *testing.T) {
	assert.Equal(t, "unknown", (&Remote{}).dynCodesName())
	assert.Equal(t, "dyn", (&Remote{DynCodesName: "dyn"}).dynCodesName())
}
