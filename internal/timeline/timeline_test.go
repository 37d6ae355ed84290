package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kikiluvv/gazemap/internal/gaze"
)

func TestGazeIndexOffsetIsMinimumWorldIndex(t *testing.T) {
	idx := NewGazeIndex([]gaze.Sample{
		{WorldIndex: 120, X: 0.1, Y: 0.1},
		{WorldIndex: 118, X: 0.2, Y: 0.2},
		{WorldIndex: 118, X: 0.3, Y: 0.3},
		{WorldIndex: 125, X: 0.4, Y: 0.4},
	})

	assert.Equal(t, 118, idx.Offset())
	assert.Equal(t, idx.Offset(), idx.TableIndex(0))
	assert.Equal(t, 3, idx.Len())

	assert.Equal(t, []gaze.Sample{
		{WorldIndex: 118, X: 0.2, Y: 0.2},
		{WorldIndex: 118, X: 0.3, Y: 0.3},
	}, idx.At(0))
	assert.Empty(t, idx.At(1))
	assert.Len(t, idx.At(2), 1)
	assert.Len(t, idx.At(7), 1)
}

func TestGazeIndexEmpty(t *testing.T) {
	idx := NewGazeIndex(nil)
	assert.Equal(t, 0, idx.Offset())
	assert.Empty(t, idx.At(0))
}

func TestGazeIndexNegativeOffset(t *testing.T) {
	idx := NewGazeIndex([]gaze.Sample{{WorldIndex: 3}, {WorldIndex: -2}})
	assert.Equal(t, -2, idx.Offset())
	assert.Len(t, idx.At(5), 1)
}

func TestFixationIndexActiveRange(t *testing.T) {
	idx := NewFixationIndex([]gaze.Fixation{
		{ID: 7, StartFrame: 2, EndFrame: 4},
	})

	// offset is the start of the earliest fixation
	assert.Equal(t, 2, idx.Offset())
	assert.Equal(t, 2, idx.TableIndex(0))

	for pos := 0; pos <= 2; pos++ {
		active := idx.Active(pos)
		if assert.Len(t, active, 1, "pos %d", pos) {
			assert.Equal(t, 7, active[0].ID)
		}
	}
	assert.Empty(t, idx.Active(3))
}

func TestFixationIndexOverlapKeepsInputOrder(t *testing.T) {
	idx := NewFixationIndex([]gaze.Fixation{
		{ID: 2, StartFrame: 15, EndFrame: 20},
		{ID: 1, StartFrame: 10, EndFrame: 18},
		{ID: 3, StartFrame: 17, EndFrame: 17},
	})

	assert.Equal(t, 10, idx.Offset())
	active := idx.Active(7) // table index 17
	ids := make([]int, len(active))
	for i, f := range active {
		ids[i] = f.ID
	}
	assert.Equal(t, []int{2, 1, 3}, ids)
}

func TestParsePolicy(t *testing.T) {
	p, ok := ParsePolicy("passthrough")
	assert.True(t, ok)
	assert.Equal(t, PassThrough, p)
	assert.Equal(t, "passthrough", p.String())

	p, ok = ParsePolicy("drop")
	assert.True(t, ok)
	assert.Equal(t, Drop, p)

	_, ok = ParsePolicy("keep")
	assert.False(t, ok)
}
