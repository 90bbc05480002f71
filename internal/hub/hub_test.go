package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiveboard/internal/domain"
	"hiveboard/internal/protocol"
)

// newTestClient 构造一个不带真实连接的客户端。
// 读写泵不启动，出站消息直接从 send 通道取出检查。
func newTestClient(h *Hub) *Client {
	return NewClient(h, nil, nil)
}

// drain 取出客户端队列里的下一条消息并解析信封。
func drain(t *testing.T, c *Client) *protocol.Envelope {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send 通道不应已关闭")
		env, err := protocol.Decode(raw)
		require.NoError(t, err)
		return env
	default:
		t.Fatal("期望收到一条消息，但队列是空的")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("不应收到消息，却收到了: %s", raw)
	default:
	}
}

func TestHub_EmitToSocket(t *testing.T) {
	h := NewHub()
	client := newTestClient(h)
	h.Register(client)

	h.EmitToSocket(client.SocketID(), protocol.EventError, protocol.ErrorPayload{Message: "boom"})

	env := drain(t, client)
	assert.Equal(t, protocol.EventError, env.Event)
	var payload protocol.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "boom", payload.Message)
}

func TestHub_EmitToSocket_UnknownSocketIsNoop(t *testing.T) {
	h := NewHub()
	// 不应 panic，也没有任何效果
	h.EmitToSocket("ghost", protocol.EventError, protocol.ErrorPayload{Message: "x"})
}

func TestHub_EmitToRoom_ExcludesOriginator(t *testing.T) {
	h := NewHub()
	sender := newTestClient(h)
	receiver := newTestClient(h)
	outsider := newTestClient(h)
	for _, c := range []*Client{sender, receiver, outsider} {
		h.Register(c)
	}
	h.JoinRoom("r1", sender)
	h.JoinRoom("r1", receiver)
	h.JoinRoom("r2", outsider)

	h.EmitToRoom("r1", protocol.EventCursorMoved, protocol.CursorMovedPayload{
		SocketID: sender.SocketID(),
		Position: protocol.CursorPosition{X: 1, Y: 2},
	}, sender.SocketID())

	// 发起者和别的房间都收不到，只有同房间的其他成员收到
	assertNoMessage(t, sender)
	assertNoMessage(t, outsider)
	env := drain(t, receiver)
	assert.Equal(t, protocol.EventCursorMoved, env.Event)
}

func TestHub_EmitToRoom_NoExclusion(t *testing.T) {
	h := NewHub()
	a := newTestClient(h)
	b := newTestClient(h)
	h.Register(a)
	h.Register(b)
	h.JoinRoom("r1", a)
	h.JoinRoom("r1", b)

	h.EmitToRoom("r1", protocol.EventUserLeft, protocol.UserLeftPayload{SocketID: "s-gone"}, "")

	drain(t, a)
	drain(t, b)
}

func TestHub_LeaveRoom_StopsDelivery(t *testing.T) {
	h := NewHub()
	a := newTestClient(h)
	b := newTestClient(h)
	h.Register(a)
	h.Register(b)
	h.JoinRoom("r1", a)
	h.JoinRoom("r1", b)

	h.LeaveRoom("r1", b.SocketID())
	h.EmitToRoom("r1", protocol.EventCursorMoved, protocol.CursorMovedPayload{}, "")

	drain(t, a)
	assertNoMessage(t, b)
	assert.Equal(t, 1, h.RoomSize("r1"))
}

func TestHub_LeaveRoom_RemovesEmptyRoomEntry(t *testing.T) {
	h := NewHub()
	a := newTestClient(h)
	h.Register(a)
	h.JoinRoom("r1", a)

	h.LeaveRoom("r1", a.SocketID())

	assert.Zero(t, h.RoomSize("r1"))
	h.mu.RLock()
	_, exists := h.rooms["r1"]
	h.mu.RUnlock()
	assert.False(t, exists, "空房间的分发表项应被回收")
}

func TestHub_Unregister_Idempotent(t *testing.T) {
	h := NewHub()
	a := newTestClient(h)
	h.Register(a)
	h.JoinRoom("r1", a)
	a.SetSession("r1", domain.UserActor("u1"), "Alice")

	h.Unregister(a)
	// 第二次注销不应 panic（重复关闭 send 通道）
	h.Unregister(a)

	_, ok := <-a.send
	assert.False(t, ok, "注销后 send 通道应已关闭")
	assert.Zero(t, h.RoomSize("r1"))

	// 注销后的投递是静默空操作
	h.EmitToSocket(a.SocketID(), protocol.EventError, protocol.ErrorPayload{Message: "late"})
	h.EmitToRoom("r1", protocol.EventCursorMoved, protocol.CursorMovedPayload{}, "")
}

func TestClient_EnqueueAfterCloseIsSafe(t *testing.T) {
	h := NewHub()
	a := newTestClient(h)
	h.Register(a)
	h.Unregister(a)

	// 广播路径和注销可能竞争，关闭后入队必须安全
	a.enqueue([]byte(`{"event":"cursor-moved","data":{}}`))
}
