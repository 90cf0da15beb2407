package realtime_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparklabs/spark-backend/internal/realtime"
)

type fakeConn struct {
	events []interface{}
	closed bool
	fail   bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	f.events = append(f.events, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestSendIfConnected(t *testing.T) {
	hub := realtime.NewHub()
	conn := &fakeConn{}
	hub.Register(1, conn)

	assert.True(t, hub.SendIfConnected(1, map[string]any{"type": "ping"}))
	assert.Len(t, conn.events, 1)

	// offline peer: silently dropped
	assert.False(t, hub.SendIfConnected(2, map[string]any{"type": "ping"}))
}

func TestSendIfConnected_WriteFailure(t *testing.T) {
	hub := realtime.NewHub()
	hub.Register(1, &fakeConn{fail: true})
	assert.False(t, hub.SendIfConnected(1, "event"))
}

func TestRegister_ReplacesPrevious(t *testing.T) {
	hub := realtime.NewHub()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Register(1, first)
	hub.Register(1, second)

	assert.True(t, first.closed)
	assert.True(t, hub.SendIfConnected(1, "event"))
	assert.Empty(t, first.events)
	assert.Len(t, second.events, 1)
}

func TestUnregister_OnlyOwnConn(t *testing.T) {
	hub := realtime.NewHub()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Register(1, first)
	hub.Register(1, second)

	// stale unregister from the replaced connection must not evict the new one
	hub.Unregister(1, first)
	assert.True(t, hub.SendIfConnected(1, "event"))

	hub.Unregister(1, second)
	assert.False(t, hub.SendIfConnected(1, "event"))
}
