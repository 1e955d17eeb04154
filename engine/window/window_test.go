package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-framegraph/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowDefaults(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 720, w.Height())
	assert.True(t, w.resizable)
	assert.True(t, w.closeOnEscape)
	assert.NoError(t, w.validate())
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
}

func TestWindowOptions(t *testing.T) {
	w := newEngineWindow(
		WithTitle("graph"),
		WithSize(800, 600),
		WithMinWidth(100),
		WithMinHeight(50),
		WithMaxWidth(1000),
		WithMaxHeight(900),
		WithResizable(false),
		WithCloseOnEscape(false),
	)
	assert.Equal(t, "graph", w.title)
	assert.Equal(t, 800, w.width)
	assert.Equal(t, 600, w.height)
	assert.Equal(t, 100, w.minWidth)
	assert.Equal(t, 900, w.maxHeight)
	assert.False(t, w.resizable)
	assert.False(t, w.closeOnEscape)
	assert.NoError(t, w.validate())
}

func TestWindowValidate(t *testing.T) {
	assert.Error(t, newEngineWindow(WithWidth(0)).validate())
	assert.Error(t, newEngineWindow(WithMinWidth(500), WithMaxWidth(400)).validate())
	assert.Error(t, newEngineWindow(WithMinHeight(500), WithMaxHeight(400)).validate())

	_, err := NewWindow(WithHeight(-1))
	assert.Error(t, err)
}

func TestWindowHandleResize(t *testing.T) {
	w := newEngineWindow()
	var got [][2]int
	w.SetResizeCallback(func(width, height int) {
		got = append(got, [2]int{width, height})
	})

	w.handleResize(640, 480)
	w.handleResize(0, 0)

	require.Len(t, got, 1)
	assert.Equal(t, [2]int{640, 480}, got[0])
	assert.Equal(t, 640, w.Width())
	assert.Equal(t, 480, w.Height())
}

func TestWindowHandleKey(t *testing.T) {
	w := newEngineWindow()
	var down, up []uint32
	w.SetKeyDownCallback(func(k uint32) { down = append(down, k) })
	w.SetKeyUpCallback(func(k uint32) { up = append(up, k) })

	assert.False(t, w.handleKey(common.KeySpace, true))
	assert.False(t, w.handleKey(common.KeySpace, false))
	assert.True(t, w.handleKey(common.KeyEscape, true))
	assert.Equal(t, []uint32{common.KeySpace}, down)
	assert.Equal(t, []uint32{common.KeySpace}, up)

	w.closeOnEscape = false
	assert.False(t, w.handleKey(common.KeyEscape, true))
	assert.Equal(t, []uint32{common.KeySpace, common.KeyEscape}, down)
}
func TestWindowRequestCloseWithoutPlatform(t *testing.T) {
	w := newEngineWindow()
	w.RequestClose()
	assert.False(t, w.IsRunning())
}
