package typespec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeLittleEndianSigned16(t *testing.T) {
	info, err := Decode("le:s16/32>>0")
	require.NoError(t, err)
	require.False(t, info.BigEndian)
	require.True(t, info.Signed)
	require.Equal(t, 16, info.StorageBits)
	require.Equal(t, 32, info.RealBits)
	require.Equal(t, 0, info.Shift)
	require.Equal(t, 2, info.Size())
}

func TestDecodeBigEndianUnsignedWithShift(t *testing.T) {
	info, err := Decode("be:u32/24>>4")
	require.NoError(t, err)
	require.True(t, info.BigEndian)
	require.False(t, info.Signed)
	require.Equal(t, 4, info.Size())
	require.Equal(t, 4, info.Shift)
}

func TestDecodeRejectsMalformedSpecs(t *testing.T) {
	for _, spec := range []string{
		"",
		"xx:s16/32>>0",
		"le:x16/32>>0",
		"le:s16>>0",
		"le:s16/32",
		"le:sNN/32>>0",
		"le:s15/32>>0",
	} {
		_, err := Decode(spec)
		require.Error(t, err, "spec %q should be rejected", spec)
	}
}
