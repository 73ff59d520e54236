package session

import "errors"

// 会话层的错误分类。handler 据此决定响应里的 WasSuccessful 和措辞，
// 低层故障从不越过这一层向传输侧传播。
var (
	// ErrNotAuthenticated 表示命令要求已登录用户，但该用户不在会话表里
	ErrNotAuthenticated = errors.New("session: user not logged in")
	// ErrNotFound 表示引用的房间、项目、对象或行为链不存在
	ErrNotFound = errors.New("session: not found")
	// ErrLockConflict 表示未持锁的客户端尝试了互斥的对象操作
	ErrLockConflict = errors.New("session: object lock conflict")
	// ErrOperationFailed 表示持久化边界报告了失败 (认证不匹配、写入失败等)
	ErrOperationFailed = errors.New("session: operation failed")
	// ErrNotImplemented 表示命令有注册但尚未实现 (DeleteRoom)
	ErrNotImplemented = errors.New("session: not implemented")
)
