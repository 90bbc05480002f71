package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hiveboard/internal/domain"
	"hiveboard/internal/repository"
	"hiveboard/internal/repository/mocks"
	"hiveboard/internal/service"
)

// fakeRoomRepo 是内存版 RoomRepository。
// 和 Redis 实现一样按 JSON 整体存取，天然提供读己之写和记录隔离，
// 适合验证有状态的加入/离开序列和并发创建。
type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[string][]byte
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string][]byte)}
}

func (f *fakeRoomRepo) FindByRoomID(_ context.Context, roomID string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.rooms[roomID]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (f *fakeRoomRepo) Save(_ context.Context, room *domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.RoomID] = raw
	return nil
}

func (f *fakeRoomRepo) Delete(_ context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, roomID)
	return nil
}

func (f *fakeRoomRepo) ListRoomIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.rooms))
	for id := range f.rooms {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRoomRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms)
}

func newRoomService(t *testing.T, roomRepo repository.RoomRepository) (*service.RoomService, *mocks.MeetingRepository) {
	t.Helper()
	meetingRepo := new(mocks.MeetingRepository)
	return service.NewRoomService(roomRepo, meetingRepo), meetingRepo
}

// --- 加入房间 ---

func TestRoomService_Join_CreatesRoomFromMeeting(t *testing.T) {
	// Arrange
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)
	meetingRepo.On("FindByID", mock.Anything, "m1").
		Return(&domain.Meeting{ID: "m1", Title: "Kickoff", CreatorID: "u1"}, nil).Once()

	conn := domain.Connection{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"}

	// Act
	result, err := svc.Join(context.Background(), "r1", "m1", conn, "")

	// Assert: 第一个加入者是会议创建者，解析为 owner
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, result.Role)
	assert.Equal(t, "u1", result.Room.Owner)
	assert.Equal(t, "m1", result.Room.MeetingID)

	// 房间记录在返回前已持久化
	saved, err := roomRepo.FindByRoomID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, saved.ActiveConnections, 1)
	assert.Len(t, saved.Participants, 1)
	meetingRepo.AssertExpectations(t)
}

func TestRoomService_Join_GuestIntoExistingRoom(t *testing.T) {
	// Arrange: Alice 已建好房间
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)
	meetingRepo.On("FindByID", mock.Anything, "m1").
		Return(&domain.Meeting{ID: "m1", CreatorID: "u1"}, nil).Once()
	_, err := svc.Join(context.Background(), "r1", "m1",
		domain.Connection{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"}, "")
	require.NoError(t, err)

	// Act: 访客 Bob 请求 viewer 角色加入
	result, err := svc.Join(context.Background(), "r1", "",
		domain.Connection{SocketID: "s2", Actor: domain.GuestActor("g1"), Name: "Bob"}, domain.RoleViewer)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, result.Role)

	roster := result.Room.ActiveRoster()
	require.Len(t, roster, 2)
	for _, entry := range roster {
		assert.Equal(t, entry.UserID == "u1", entry.IsOwner, "isOwner 只对会议创建者为真")
	}
}

func TestRoomService_Join_Idempotent(t *testing.T) {
	// Arrange
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)
	meetingRepo.On("FindByID", mock.Anything, "m1").
		Return(&domain.Meeting{ID: "m1", CreatorID: "u1"}, nil).Once()

	conn := domain.Connection{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"}

	// Act: 同一 socket 同一身份重复加入
	_, err := svc.Join(context.Background(), "r1", "m1", conn, "")
	require.NoError(t, err)
	result, err := svc.Join(context.Background(), "r1", "m1", conn, "")
	require.NoError(t, err)

	// Assert: 连接和参与者都不翻倍
	assert.Len(t, result.Room.ActiveConnections, 1)
	assert.Len(t, result.Room.Participants, 1)
}

func TestRoomService_Join_DeniedWithoutMeeting(t *testing.T) {
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)

	conn := domain.Connection{SocketID: "s1", Actor: domain.GuestActor("g1"), Name: "Bob"}

	// 房间不存在且未提供 meetingId
	_, err := svc.Join(context.Background(), "nope", "", conn, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomCreationDenied))

	// 房间不存在且会议也不存在
	meetingRepo.On("FindByID", mock.Anything, "ghost").
		Return(nil, repository.ErrMeetingNotFound).Once()
	_, err = svc.Join(context.Background(), "nope", "ghost", conn, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomCreationDenied))

	// 两次失败都不应创建任何房间记录
	assert.Zero(t, roomRepo.count())
}

func TestRoomService_Join_AbandonedOnDisconnect(t *testing.T) {
	// Arrange: 会议查找完成前连接已断开
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)
	ctx, cancel := context.WithCancel(context.Background())
	meetingRepo.On("FindByID", mock.Anything, "m1").
		Run(func(_ mock.Arguments) { cancel() }). // 查找期间连接断开
		Return(&domain.Meeting{ID: "m1", CreatorID: "u1"}, nil).Once()

	conn := domain.Connection{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"}

	// Act
	_, err := svc.Join(ctx, "r1", "m1", conn, "")

	// Assert: 加入被放弃，没有落下任何状态
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, roomRepo.count())
}

func TestRoomService_Join_ConcurrentCreateSingleRoom(t *testing.T) {
	// Arrange: 两条连接同时为同一个未创建的房间发起加入
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)
	meetingRepo.On("FindByID", mock.Anything, "m1").
		Return(&domain.Meeting{ID: "m1", CreatorID: "u1"}, nil) // 可能被调用一到两次

	var wg sync.WaitGroup
	errs := make([]error, 2)
	conns := []domain.Connection{
		{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"},
		{SocketID: "s2", Actor: domain.GuestActor("g1"), Name: "Bob"},
	}
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Join(context.Background(), "r1", "m1", conns[i], "")
		}(i)
	}
	wg.Wait()

	// Assert: 只产生一个房间记录，两条连接都在里面，owner 解析一致
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, roomRepo.count())

	room, err := roomRepo.FindByRoomID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", room.Owner)
	assert.Len(t, room.ActiveConnections, 2)
}

// --- 离开房间 ---

func TestRoomService_Leave_RemovesAndPrunes(t *testing.T) {
	// Arrange
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)
	meetingRepo.On("FindByID", mock.Anything, "m1").
		Return(&domain.Meeting{ID: "m1", CreatorID: "u1"}, nil).Once()
	_, err := svc.Join(context.Background(), "r1", "m1",
		domain.Connection{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"}, "")
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), "r1", "",
		domain.Connection{SocketID: "s2", Actor: domain.GuestActor("g1"), Name: "Bob"}, "")
	require.NoError(t, err)

	// Act
	result, err := svc.Leave(context.Background(), "r1", "s2")

	// Assert: 连接移除，失去全部连接的参与者被裁剪
	require.NoError(t, err)
	assert.True(t, result.Removed)
	assert.Len(t, result.Room.ActiveConnections, 1)
	assert.Len(t, result.Room.Participants, 1)
	assert.Len(t, result.Room.ActiveRoster(), 1)
}

func TestRoomService_Leave_IdempotentOnRace(t *testing.T) {
	// Arrange: leave-room 和传输断开可能都触发一次移除
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)
	meetingRepo.On("FindByID", mock.Anything, "m1").
		Return(&domain.Meeting{ID: "m1", CreatorID: "u1"}, nil).Once()
	_, err := svc.Join(context.Background(), "r1", "m1",
		domain.Connection{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"}, "")
	require.NoError(t, err)

	// Act
	first, err := svc.Leave(context.Background(), "r1", "s1")
	require.NoError(t, err)
	second, err := svc.Leave(context.Background(), "r1", "s1")
	require.NoError(t, err)

	// Assert: 恰好一次移除，第二次是静默空操作
	assert.True(t, first.Removed)
	assert.False(t, second.Removed)
}

func TestRoomService_Leave_UnknownRoomIsNoop(t *testing.T) {
	roomRepo := newFakeRoomRepo()
	svc, _ := newRoomService(t, roomRepo)

	result, err := svc.Leave(context.Background(), "never-existed", "s1")
	require.NoError(t, err)
	assert.False(t, result.Removed)
}

// --- 清扫 ---

func TestRoomService_SweepEmptyRooms(t *testing.T) {
	// Arrange: 一个早已空置的房间和一个活跃房间
	roomRepo := newFakeRoomRepo()
	svc, meetingRepo := newRoomService(t, roomRepo)

	stale := domain.NewRoom("stale", "m0", "u0")
	stale.UpdatedAt = time.Now().Add(-repository.EmptyRoomGrace - time.Minute)
	require.NoError(t, roomRepo.Save(context.Background(), stale))

	meetingRepo.On("FindByID", mock.Anything, "m1").
		Return(&domain.Meeting{ID: "m1", CreatorID: "u1"}, nil).Once()
	_, err := svc.Join(context.Background(), "busy", "m1",
		domain.Connection{SocketID: "s1", Actor: domain.UserActor("u1"), Name: "Alice"}, "")
	require.NoError(t, err)

	// Act
	swept, err := svc.SweepEmptyRooms(context.Background())

	// Assert: 只清掉过期的空房间
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	_, err = roomRepo.FindByRoomID(context.Background(), "stale")
	assert.True(t, errors.Is(err, repository.ErrRoomNotFound))
	_, err = roomRepo.FindByRoomID(context.Background(), "busy")
	assert.NoError(t, err)
}
