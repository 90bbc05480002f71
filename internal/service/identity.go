package service

import "hiveboard/internal/domain"

// ResolveActor 从调用方自报的身份字段解析出参与者。
// 规则：userId 优先于 guestId；二者都为空时返回 ErrInvalidIdentity。
func ResolveActor(userID, guestID string) (domain.Actor, error) {
	switch {
	case userID != "":
		return domain.UserActor(userID), nil
	case guestID != "":
		return domain.GuestActor(guestID), nil
	default:
		return domain.Actor{}, ErrInvalidIdentity
	}
}
