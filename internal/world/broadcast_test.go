package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubClient records raw frames for assertions.
type stubClient struct {
	id     string
	closed bool
	frames [][]byte
}

func (c *stubClient) ClientID() string    { return c.id }
func (c *stubClient) Authenticated() bool { return true }
func (c *stubClient) Closed() bool        { return c.closed }
func (c *stubClient) SendRaw(b []byte)    { c.frames = append(c.frames, b) }

func (c *stubClient) Send(v any) {
	raw, _ := json.Marshal(v)
	c.frames = append(c.frames, raw)
}

func conn(p *Player) *stubClient { return p.Conn.(*stubClient) }

func TestToMapExcludesSender(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	b := NewBroadcaster(zap.NewNop())

	a := addPlayerAt(m, "a", 0, 0, false)
	bb := addPlayerAt(m, "b", 0, 0, false)

	b.ToMap(m, map[string]string{"type": "x"}, "a")
	assert.Empty(t, conn(a).frames)
	assert.Len(t, conn(bb).frames, 1)
}

func TestToMapSkipsClosed(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	b := NewBroadcaster(zap.NewNop())

	a := addPlayerAt(m, "a", 0, 0, false)
	conn(a).closed = true
	c := addPlayerAt(m, "c", 0, 0, false)

	b.ToMap(m, map[string]string{"type": "x"}, "")
	assert.Empty(t, conn(a).frames)
	assert.Len(t, conn(c).frames, 1)
}

func TestNearRespectsRadius(t *testing.T) {
	m := NewMap(testMapInfo(), 8, zap.NewNop())
	b := NewBroadcaster(zap.NewNop())

	near := addPlayerAt(m, "near", 100, 0, false)
	edge := addPlayerAt(m, "edge", 200, 0, false)
	far := addPlayerAt(m, "far", 201, 0, false)

	b.Near(m, 0, 0, 200, map[string]string{"type": "boom"}, "")
	assert.Len(t, conn(near).frames, 1)
	assert.Len(t, conn(edge).frames, 1, "radius is inclusive")
	assert.Empty(t, conn(far).frames)
}
