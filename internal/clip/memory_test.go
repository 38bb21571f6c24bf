package clip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChangeCount(t *testing.T) {
	m := NewMemory()
	c0, err := m.ChangeCount()
	require.NoError(t, err)

	require.NoError(t, m.WriteText("hello"))
	c1, _ := m.ChangeCount()
	assert.Greater(t, c1, c0)

	text, err := m.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	img, err := m.ReadImage()
	require.NoError(t, err)
	assert.Nil(t, img)
}

func TestMemoryImageReplacesText(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.WriteText("hello"))
	require.NoError(t, m.WriteImage([]byte{1, 2}))

	text, _ := m.ReadText()
	img, _ := m.ReadImage()
	assert.Empty(t, text)
	assert.Equal(t, []byte{1, 2}, img)

	img[0] = 9
	again, _ := m.ReadImage()
	assert.Equal(t, byte(1), again[0], "reads must not alias internal state")
}

func TestMemoryReadErr(t *testing.T) {
	m := NewMemory()
	m.FailReads(errors.New("busy"))
	_, err := m.ReadText()
	assert.Error(t, err)
	_, err = m.ReadImage()
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	b := Open("memory")
	defer b.Close()
	assert.Equal(t, "in-memory", b.Name())
}
