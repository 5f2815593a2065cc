package irq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motionlink-go/types"
)

type posts []types.Event

func (p *posts) PostEvent(e types.Event) { *p = append(*p, e) }

func TestBindPostsOnEdge(t *testing.T) {
	var pin FakePin
	var got posts
	l, err := Bind(&pin, EdgeRising, &got, types.EventSensorInterrupt)
	require.NoError(t, err)

	assert.True(t, pin.Fire())
	assert.True(t, pin.Fire())
	assert.Equal(t, posts{types.EventSensorInterrupt, types.EventSensorInterrupt}, got)
	assert.EqualValues(t, 2, l.Hits())

	require.NoError(t, l.Close())
	assert.False(t, pin.Fire())
}

func TestBindRejectsNoEdge(t *testing.T) {
	var pin FakePin
	_, err := Bind(&pin, EdgeNone, &posts{}, types.EventSensorInterrupt)
	assert.ErrorIs(t, err, ErrNoEdge)
}
