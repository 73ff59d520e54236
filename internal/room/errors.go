package room

import "errors"

var (
	// ErrRoomNotFound 表示引用的房间不存在
	ErrRoomNotFound = errors.New("room: room not found")
	// ErrObjectNotFound 表示引用的对象不在房间的对象表里
	ErrObjectNotFound = errors.New("room: object not found")
	// ErrBehaviorNotFound 表示引用的行为链不存在
	ErrBehaviorNotFound = errors.New("room: behavior chain not found")
	// ErrLockConflict 表示调用方不持有对象锁却尝试了受锁保护的操作
	ErrLockConflict = errors.New("room: object lock conflict")
)
