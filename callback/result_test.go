package callback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linchenxuan/eosemu/eos"
)

func TestPayloadAs(t *testing.T) {
	res := NewResult(&opInfo{Seq: 4}, nil)
	assert.Equal(t, testOpCallback, res.ID())
	assert.Equal(t, 4, PayloadAs[*opInfo](res).Seq)

	assert.PanicsWithValue(t,
		"callback: UnknownCallback payload is *callback.opInfo, not *callback.notifyInfo",
		func() { PayloadAs[*notifyInfo](res) })
}

func TestNewResultNilPayload(t *testing.T) {
	assert.Panics(t, func() { NewResult(nil, nil) })
}

func TestReplace(t *testing.T) {
	res := NewResult(&opInfo{Seq: 1}, nil)
	res.Replace(&opInfo{Seq: 2})
	assert.Equal(t, 2, PayloadAs[*opInfo](res).Seq)

	assert.Panics(t, func() { res.Replace(&notifyInfo{}) }, "different shape")

	res.MarkDone()
	assert.True(t, res.Done())
	assert.Panics(t, func() { res.Replace(&opInfo{Seq: 3}) }, "payload is frozen once done")
}

func TestLifecycleFlags(t *testing.T) {
	res := NewDoneResult(&opInfo{}, nil, WithDeadline(time.Second), WithReadyAfter(time.Millisecond))
	assert.Equal(t, time.Second, res.Deadline())
	assert.Equal(t, eos.InvalidNotificationID, res.NotificationID())

	now := time.Unix(100, 0)
	res.created = now
	assert.False(t, res.readyAt(now))
	assert.True(t, res.readyAt(now.Add(time.Millisecond)))
	assert.False(t, res.DeadlineExceeded(now.Add(999*time.Millisecond)))
	assert.True(t, res.DeadlineExceeded(now.Add(time.Second)))

	res.markFired()
	assert.Panics(t, res.markFired)
	res.markFreed()
	assert.Panics(t, res.markFreed)
	assert.False(t, NewResult(&opInfo{}, nil).DeadlineExceeded(now.Add(time.Hour)))
}

func TestTyped(t *testing.T) {
	assert.Nil(t, Typed[*opInfo](nil))

	var got int
	fn := Typed(func(p *opInfo) { got = p.Seq })
	fn(&opInfo{Seq: 9})
	assert.Equal(t, 9, got)
	assert.Panics(t, func() { fn(&notifyInfo{}) })
}
