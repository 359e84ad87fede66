package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToHashLeftPadsShortInput(t *testing.T) {
	h := BytesToHash([]byte{0x01, 0x02})
	want := H256{}
	want[H256Size-1] = 0x02
	want[H256Size-2] = 0x01
	assert.Equal(t, want, h)
}

func TestBytesToHashTruncatesLongInputFromTheLeft(t *testing.T) {
	long := make([]byte, H256Size+4)
	for i := range long {
		long[i] = byte(i)
	}
	h := BytesToHash(long)
	assert.Equal(t, long[4:], h.Bytes())
}

func TestHexRoundTrip(t *testing.T) {
	h := BytesToHash([]byte{0xde, 0xad, 0xbe, 0xef})
	parsed, err := HashFromHex(h.Hex())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
	assert.Len(t, h.Hex(), 64)
}

func TestHashFromHexRejectsWrongLength(t *testing.T) {
	_, err := HashFromHex("abcd")
	assert.Error(t, err)
}

func TestIsZero(t *testing.T) {
	assert.True(t, H256{}.IsZero())
	assert.False(t, BytesToHash([]byte{1}).IsZero())
}

func TestLessOrEqualMatchesBigEndianUnsignedOrder(t *testing.T) {
	small := BytesToHash([]byte{0x00, 0x01})
	big := BytesToHash([]byte{0x01, 0x00})
	assert.True(t, small.LessOrEqual(big))
	assert.False(t, big.LessOrEqual(small))
	assert.True(t, small.LessOrEqual(small))
}

func TestCmp(t *testing.T) {
	a := BytesToHash([]byte{0x01})
	b := BytesToHash([]byte{0x02})
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
}
