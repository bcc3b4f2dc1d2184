package sweep

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/splitwye/phasor"
)

func TestBundleEquivalent(t *testing.T) {
	zSub := complex(0, -1300.0)
	b, err := NewBundle(4, 9, zSub)
	require.NoError(t, err)

	series, parallel := b.Dims()
	assert.Equal(t, 4, series)
	assert.Equal(t, 9, parallel)

	z, err := b.Equivalent()
	require.NoError(t, err)
	assert.InDelta(t, imag(4*zSub/9), imag(z), 1e-9)

	require.NoError(t, b.Blow(2))
	assert.Equal(t, 2, b.Blown())
	z, err = b.Equivalent()
	require.NoError(t, err)
	assert.InDelta(t, imag(2*zSub/9), imag(z), 1e-9)

	// blowing fewer rows never heals the bundle
	require.NoError(t, b.Blow(1))
	assert.Equal(t, 2, b.Blown())

	require.NoError(t, b.Blow(4))
	z, err = b.Equivalent()
	require.NoError(t, err)
	assert.Less(t, cmplx.Abs(z), 1e-90)
	assert.Equal(t, phasor.Short, b.sub.At(3, 8))
}

func TestBundleErrors(t *testing.T) {
	_, err := NewBundle(0, 9, complex(0, -1))
	assert.Error(t, err)
	_, err = NewBundle(4, 0, complex(0, -1))
	assert.Error(t, err)
	_, err = NewBundle(4, 9, 0)
	assert.Error(t, err)

	b, err := NewBundle(4, 9, complex(0, -1))
	require.NoError(t, err)
	assert.Error(t, b.Blow(5))
	assert.Error(t, b.Blow(-1))
}
