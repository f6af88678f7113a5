package cfb_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-extract/cfb"
	"doc-extract/cfb/cfbtest"
)

func TestParseRoundTrip(t *testing.T) {
	large := bytes.Repeat([]byte("0123456789abcdef"), 512) // 8 KiB, FAT chain
	small := []byte("small stream content")

	b := &cfbtest.Builder{
		Streams: []cfbtest.Stream{
			{Name: "small", Data: small},
			{Name: "large", Data: large},
		},
		Storages: []cfbtest.Storage{
			{Name: "sub", Streams: []cfbtest.Stream{
				{Name: "nested", Data: []byte("nested content")},
			}},
		},
	}

	c, err := cfb.Parse(b.Bytes(), cfb.Strict)
	require.NoError(t, err)

	root := c.Root()
	require.Equal(t, cfb.TypeRoot, root.Type)

	children := c.Children(root)
	require.Len(t, children, 3)
	assert.Equal(t, "small", children[0].Name)
	assert.Equal(t, "large", children[1].Name)
	assert.Equal(t, "sub", children[2].Name)
	assert.Equal(t, cfb.TypeStorage, children[2].Type)

	got, err := c.Stream(children[0])
	require.NoError(t, err)
	assert.Equal(t, small, got)

	got, err = c.Stream(children[1])
	require.NoError(t, err)
	assert.Equal(t, large, got)

	nested := c.Children(children[2])
	require.Len(t, nested, 1)
	got, err = c.Stream(nested[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("nested content"), got)
}

func TestParseMultiSectorMiniStream(t *testing.T) {
	// Spans several mini sectors but stays below the cutoff.
	data := bytes.Repeat([]byte("x"), 300)
	b := &cfbtest.Builder{
		Streams: []cfbtest.Stream{{Name: "s", Data: data}},
	}

	c, err := cfb.Parse(b.Bytes(), cfb.Strict)
	require.NoError(t, err)

	got, err := c.Stream(c.Children(c.Root())[0])
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestParseRejectsBadSignature(t *testing.T) {
	_, err := cfb.Parse([]byte("this is not a cfb"), cfb.Strict)
	assert.ErrorIs(t, err, cfb.ErrInvalidSignature)

	_, err = cfb.Parse(nil, cfb.Strict)
	assert.ErrorIs(t, err, cfb.ErrInvalidSignature)
}

func TestParseRejectsShortHeader(t *testing.T) {
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 100)...)
	_, err := cfb.Parse(data, cfb.Strict)
	assert.ErrorIs(t, err, cfb.ErrTruncated)
}

func TestParseRejectsBadSectorShift(t *testing.T) {
	b := &cfbtest.Builder{Streams: []cfbtest.Stream{{Name: "s", Data: []byte("x")}}}
	data := b.Bytes()
	data[30] = 8 // below the valid range

	_, err := cfb.Parse(data, cfb.Strict)
	assert.ErrorIs(t, err, cfb.ErrUnsupportedSectorSize)
}

func TestParseDetectsFATCycle(t *testing.T) {
	b := &cfbtest.Builder{Streams: []cfbtest.Stream{{Name: "s", Data: []byte("x")}}}
	data := b.Bytes()

	// The FAT occupies the final sector; entry 0 is the directory
	// chain. Pointing it at itself makes the chain loop.
	fatOff := len(data) - 512
	copy(data[fatOff:], []byte{0, 0, 0, 0})

	_, err := cfb.Parse(data, cfb.Strict)
	assert.ErrorIs(t, err, cfb.ErrCorruptChain)
}

func TestParseDetectsOutOfRangeChain(t *testing.T) {
	b := &cfbtest.Builder{Streams: []cfbtest.Stream{{Name: "s", Data: []byte("x")}}}
	data := b.Bytes()

	fatOff := len(data) - 512
	copy(data[fatOff:], []byte{0x78, 0x56, 0x34, 0x12})

	_, err := cfb.Parse(data, cfb.Strict)
	assert.ErrorIs(t, err, cfb.ErrCorruptChain)
}

func TestLenientRecoversTruncatedFAT(t *testing.T) {
	b := &cfbtest.Builder{
		Streams: []cfbtest.Stream{
			{Name: "a", Data: []byte("first stream")},
			{Name: "b", Data: []byte("second stream")},
		},
	}
	data := b.Bytes()

	// Drop the final sector, which holds the entire FAT.
	truncated := data[:len(data)-512]

	_, err := cfb.Parse(truncated, cfb.Strict)
	require.Error(t, err)

	c, err := cfb.Parse(truncated, cfb.Lenient)
	require.NoError(t, err)

	children := c.Children(c.Root())
	require.Len(t, children, 2)

	got, err := c.Stream(children[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("first stream"), got)

	got, err = c.Stream(children[1])
	require.NoError(t, err)
	assert.Equal(t, []byte("second stream"), got)
}

func TestStreamSizeExceedsChain(t *testing.T) {
	b := &cfbtest.Builder{Streams: []cfbtest.Stream{{Name: "s", Data: bytes.Repeat([]byte("y"), 5000)}}}
	data := b.Bytes()

	c, err := cfb.Parse(data, cfb.Strict)
	require.NoError(t, err)

	// Inflate the declared size beyond what the chain supplies.
	entry := c.Children(c.Root())[0]
	entry.Size = 1 << 20

	_, err = c.Stream(entry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cfb.ErrTruncated) || errors.Is(err, cfb.ErrCorruptChain))
}

func TestEmptyStream(t *testing.T) {
	b := &cfbtest.Builder{Streams: []cfbtest.Stream{{Name: "empty", Data: nil}}}

	c, err := cfb.Parse(b.Bytes(), cfb.Strict)
	require.NoError(t, err)

	got, err := c.Stream(c.Children(c.Root())[0])
	require.NoError(t, err)
	assert.Empty(t, got)
}
