package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hiveboard/internal/domain"
	"hiveboard/internal/repository"
)

// RoomService 负责房间成员管理的业务逻辑。
// 同一房间的加入/离开操作通过每房间互斥锁串行化，
// 不同房间之间互不阻塞。
type RoomService struct {
	roomRepo    repository.RoomRepository
	meetingRepo repository.MeetingRepository

	mu    sync.Mutex // 保护 locks 表本身
	locks map[string]*roomLock
}

// roomLock 惰性创建的每房间锁，带引用计数，房间操作结束且无人等待时回收。
type roomLock struct {
	sync.Mutex
	refs int
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository, meetingRepo repository.MeetingRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if meetingRepo == nil {
		panic("MeetingRepository cannot be nil for RoomService")
	}
	return &RoomService{
		roomRepo:    roomRepo,
		meetingRepo: meetingRepo,
		locks:       make(map[string]*roomLock),
	}
}

// lockRoom 获取指定房间的互斥锁，不存在时惰性创建。
func (s *RoomService) lockRoom(roomID string) *roomLock {
	s.mu.Lock()
	lk, ok := s.locks[roomID]
	if !ok {
		lk = &roomLock{}
		s.locks[roomID] = lk
	}
	lk.refs++
	s.mu.Unlock()

	lk.Lock()
	return lk
}

// unlockRoom 释放房间锁，引用计数归零时从表中移除。
func (s *RoomService) unlockRoom(roomID string, lk *roomLock) {
	lk.Unlock()

	s.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(s.locks, roomID)
	}
	s.mu.Unlock()
}

// JoinResult 是一次成功加入房间的结果。
type JoinResult struct {
	Room *domain.Room
	Role domain.Role
}

// Join 处理一次加入房间请求。
// 房间不存在时按需创建：必须提供 meetingID 且对应会议存在，
// 否则返回 ErrRoomCreationDenied，不产生任何状态变更。
// 房间记录在返回前已持久化（先写后播）。
func (s *RoomService) Join(ctx context.Context, roomID, meetingID string, conn domain.Connection, requestedRole domain.Role) (*JoinResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":   roomID,
		"socket_id": conn.SocketID,
		"actor":     conn.Actor.Key(),
	})

	lk := s.lockRoom(roomID)
	defer s.unlockRoom(roomID, lk)

	// 1. 查找房间
	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if !errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.WithError(err).Error("Failed to load room")
			return nil, ErrInternalServer
		}
		// 2. 房间不存在：尝试基于会议创建
		room, err = s.createRoom(ctx, roomID, meetingID, logCtx)
		if err != nil {
			return nil, err
		}
	}

	// 3. 取消检查：会议查找期间连接可能已经断开，
	// 断开后不再落任何状态变更。
	if err := ctx.Err(); err != nil {
		logCtx.WithError(err).Warn("Join abandoned: connection gone before room mutation")
		return nil, err
	}

	// 4. 解析角色并登记连接与参与者（均为幂等操作）
	role := domain.ResolveRole(conn.Actor, requestedRole, room.Owner)
	room.AddConnection(conn)
	room.AddParticipant(conn.Actor, conn.Name, role)

	// 5. 先持久化，再由调用方广播
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to persist room after join")
		return nil, ErrInternalServer
	}

	logCtx.WithField("role", role).Info("Connection joined room")
	return &JoinResult{Room: room, Role: role}, nil
}

// createRoom 在持有房间锁的前提下创建新房间。
func (s *RoomService) createRoom(ctx context.Context, roomID, meetingID string, logCtx *logrus.Entry) (*domain.Room, error) {
	if meetingID == "" {
		logCtx.Warn("Room creation denied: no meeting id supplied")
		return nil, ErrRoomCreationDenied
	}
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			logCtx.WithField("meeting_id", meetingID).Warn("Room creation denied: meeting not found")
			return nil, ErrRoomCreationDenied
		}
		logCtx.WithError(err).Error("Failed to look up meeting for room creation")
		return nil, ErrInternalServer
	}

	room := domain.NewRoom(roomID, meeting.ID, meeting.CreatorID)
	logCtx.WithFields(logrus.Fields{"meeting_id": meeting.ID, "owner": meeting.CreatorID}).
		Info("Room created from meeting")
	return room, nil
}

// LeaveResult 是一次离开房间操作的结果。
// Removed 为 false 表示连接本来就不在房间里（幂等空操作）。
type LeaveResult struct {
	Room    *domain.Room
	Removed bool
}

// Leave 把连接从房间移除并裁剪失去全部连接的参与者。
// 显式 leave-room 和传输层断开走同一条路径，重复调用是空操作。
func (s *RoomService) Leave(ctx context.Context, roomID, socketID string) (*LeaveResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "socket_id": socketID})

	lk := s.lockRoom(roomID)
	defer s.unlockRoom(roomID, lk)

	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			// 房间已过期或从未存在，按空操作处理
			return &LeaveResult{Removed: false}, nil
		}
		logCtx.WithError(err).Error("Failed to load room for leave")
		return nil, ErrInternalServer
	}

	if !room.RemoveConnection(socketID) {
		return &LeaveResult{Room: room, Removed: false}, nil
	}
	room.PruneParticipants()

	// 先持久化再广播；房间变空时仓库会附带回收宽限期
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to persist room after leave")
		return nil, ErrInternalServer
	}

	logCtx.WithField("empty", room.Empty()).Info("Connection left room")
	return &LeaveResult{Room: room, Removed: true}, nil
}

// Roster 返回房间当前的活跃参与者列表（按参与者去重后的派生视图）。
func (s *RoomService) Roster(ctx context.Context, roomID string) ([]domain.ParticipantInfo, error) {
	room, err := s.roomRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load room for roster")
		return nil, ErrInternalServer
	}
	return room.ActiveRoster(), nil
}

// SweepEmptyRooms 删除超过宽限期仍无活跃连接的房间记录，供后台任务调用。
// 返回被删除的房间数量。
func (s *RoomService) SweepEmptyRooms(ctx context.Context) (int, error) {
	roomIDs, err := s.roomRepo.ListRoomIDs(ctx)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, roomID := range roomIDs {
		lk := s.lockRoom(roomID)
		room, err := s.roomRepo.FindByRoomID(ctx, roomID)
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			// 已被 TTL 回收
		case err != nil:
			logrus.WithError(err).WithField("room_id", roomID).Warn("Sweep: failed to load room")
		case room.Empty() && time.Since(room.UpdatedAt) >= repository.EmptyRoomGrace:
			if err := s.roomRepo.Delete(ctx, roomID); err != nil {
				logrus.WithError(err).WithField("room_id", roomID).Warn("Sweep: failed to delete empty room")
			} else {
				swept++
			}
		}
		s.unlockRoom(roomID, lk)
	}
	if swept > 0 {
		logrus.WithField("count", swept).Info("Swept empty rooms")
	}
	return swept, nil
}
