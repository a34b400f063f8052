package particle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventLog(t *testing.T) {
	assert := assert.New(t)

	l := NewEventLog(3)
	assert.Equal(3, l.Cap())
	assert.Equal(0, l.Len())
	assert.Empty(l.Events())

	l.Append(Event{Time: 1, Kind: Birth, TargetID: 0})
	l.Append(Event{Time: 2, Kind: Assoc, TargetID: 0})
	assert.Equal(2, l.Len())

	events := l.Events()
	assert.Equal(1, events[0].Time)
	assert.Equal(2, events[1].Time)

	// appending beyond the capacity evicts the oldest event
	l.Append(Event{Time: 3, Kind: Assoc, TargetID: 0})
	l.Append(Event{Time: 4, Kind: Death, TargetID: 0})
	assert.Equal(3, l.Len())

	events = l.Events()
	assert.Equal(2, events[0].Time)
	assert.Equal(4, events[2].Time)
	assert.Equal(Death, events[2].Kind)

	// non-positive capacity still yields a usable log
	l = NewEventLog(0)
	l.Append(Event{Time: 1, Kind: Clutter, TargetID: -1})
	l.Append(Event{Time: 2, Kind: Clutter, TargetID: -1})
	assert.Equal(1, l.Len())
	assert.Equal(2, l.Events()[0].Time)
}

func TestEventLogClone(t *testing.T) {
	assert := assert.New(t)

	l := NewEventLog(4)
	l.Append(Event{Time: 1, Kind: Birth, TargetID: 0})

	c := l.Clone()
	c.Append(Event{Time: 2, Kind: Assoc, TargetID: 0})

	assert.Equal(1, l.Len())
	assert.Equal(2, c.Len())
}

func TestEventKindString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("clutter", Clutter.String())
	assert.Equal("assoc", Assoc.String())
	assert.Equal("birth", Birth.String())
	assert.Equal("death", Death.String())
	assert.Equal("unknown", EventKind(42).String())
}
