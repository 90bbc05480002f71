// Package service 实现业务逻辑层，编排 repository 与领域对象。
package service

import "errors"

// 服务层哨兵错误。handler 层据此映射到对外的错误码。
var (
	// ErrInvalidIdentity 请求既没有提供 userId 也没有提供 guestId
	ErrInvalidIdentity = errors.New("request carries neither a user identity nor a guest identity")

	// ErrRoomCreationDenied 房间不存在且没有可关联的有效会议
	ErrRoomCreationDenied = errors.New("room creation requires an existing meeting")

	// ErrRoomNotFound 房间不存在
	ErrRoomNotFound = errors.New("room not found")

	// ErrMeetingNotFound 会议不存在
	ErrMeetingNotFound = errors.New("meeting not found")

	// ErrNotMeetingOwner 只有会议创建者才能执行该操作
	ErrNotMeetingOwner = errors.New("only the meeting owner may perform this operation")

	// ErrAuthenticationFailed 登录凭证错误（邮箱不存在或密码不匹配，对外不区分）
	ErrAuthenticationFailed = errors.New("invalid email or password")

	// ErrRegistrationFailed 注册失败（邮箱已被占用）
	ErrRegistrationFailed = errors.New("email is already registered")

	// ErrInternalServer 不宜暴露细节的内部错误
	ErrInternalServer = errors.New("internal server error")
)
