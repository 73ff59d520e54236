// Package command 把命令名路由到 handler 并负责每条命令的响应成形。
//
// 注册表在启动时一次性构建：命令名映射到一个只有单个 Execute 方法的
// handler 值，没有按调用重建，也没有首次调用的隐藏初始化分支。
// handler 从不让低层故障外泄：每种失败都折叠成 WasSuccessful=false 的
// 响应信封，传输层不需要任何领域相关的错误处理。
package command

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

// Handler 是单方法的命令处理能力。
// 返回值是有序的出站消息列表：第一条始终是给发起客户端的直接响应，
// 之后的是附带广播 (如 UserJoinedRoom)。
type Handler interface {
	Execute(ctx context.Context, payload []byte, client string) []dto.Outbound
}

// Registry 持有固定的命令表。
type Registry struct {
	handlers map[string]Handler
	log      *logrus.Entry
}

// NewRegistry 创建并一次性填充命令表。
func NewRegistry(tracker *session.Tracker) *Registry {
	if tracker == nil {
		panic("session.Tracker cannot be nil for Registry")
	}
	r := &Registry{
		handlers: make(map[string]Handler),
		log:      logrus.WithField("component", "command_registry"),
	}

	// 项目命令
	r.handlers["CreateProject"] = &createProjectHandler{tracker}
	r.handlers["ReadProject"] = &readProjectHandler{tracker}
	r.handlers["DeleteProject"] = &deleteProjectHandler{tracker}
	r.handlers["OpenProject"] = &openProjectHandler{tracker}
	r.handlers["LeaveProject"] = &leaveProjectHandler{tracker}
	r.handlers["FetchProjects"] = &fetchProjectsHandler{tracker}

	// 用户命令
	r.handlers["CreateUser"] = &createUserHandler{tracker}
	r.handlers["DeleteUser"] = &deleteUserHandler{tracker}
	r.handlers["LoginUser"] = &loginUserHandler{tracker}
	r.handlers["LogoutUser"] = &logoutUserHandler{tracker}
	r.handlers["ReadUser"] = &readUserHandler{tracker}

	// 房间命令
	r.handlers["CreateRoom"] = &createRoomHandler{tracker}
	r.handlers["JoinRoom"] = &joinRoomHandler{tracker}
	r.handlers["DeleteRoom"] = &deleteRoomHandler{tracker}

	// 对象命令
	r.handlers["CreateObject"] = &createObjectHandler{tracker}
	r.handlers["DeleteObject"] = &deleteObjectHandler{tracker}
	r.handlers["UpdateObject"] = &updateObjectHandler{tracker: tracker}
	r.handlers["FinalizedUpdateObject"] = &updateObjectHandler{tracker: tracker, persist: true}
	r.handlers["ReadObject"] = &readObjectHandler{tracker}
	r.handlers["CheckinObject"] = &checkinObjectHandler{tracker}
	r.handlers["CheckoutObject"] = &checkoutObjectHandler{tracker}

	// 行为命令
	r.handlers["CreateBehaviour"] = &createBehaviorHandler{tracker}
	r.handlers["DeleteBehaviour"] = &deleteBehaviorHandler{tracker}
	r.handlers["ReadBehaviour"] = &readBehaviorHandler{tracker}

	// 播放模式命令
	r.handlers["StartPlayMode"] = &playModeHandler{tracker: tracker, on: true}
	r.handlers["EndPlayMode"] = &playModeHandler{tracker: tracker, on: false}

	return r
}

// Dispatch 查找并执行命令。未注册的命令名得到一条明确的
// UnrecognizedCommand 失败响应，而不是查找故障。
func (r *Registry) Dispatch(ctx context.Context, command string, payload []byte, client string) []dto.Outbound {
	handler, ok := r.handlers[command]
	if !ok {
		r.log.WithFields(logrus.Fields{"command": command, "client_id": client}).Warn("Unrecognized command")
		return []dto.Outbound{{
			Content: dto.Envelope{
				"MessageType":   "UnrecognizedCommand",
				"WasSuccessful": false,
				"Command":       command,
			},
			Clients: []string{client},
		}}
	}
	r.log.WithFields(logrus.Fields{"command": command, "client_id": client}).Debug("Dispatching command")
	return handler.Execute(ctx, payload, client)
}

// respond 构造给单个客户端的响应消息。
func respond(messageType string, ok bool, fields dto.Envelope, clients []string) []dto.Outbound {
	content := dto.Envelope{
		"MessageType":   messageType,
		"WasSuccessful": ok,
	}
	for k, v := range fields {
		content[k] = v
	}
	return []dto.Outbound{{Content: content, Clients: clients}}
}

// failure 构造一条携带 WasSuccessful=false 的失败响应。
func failure(messageType, client string) []dto.Outbound {
	return respond(messageType, false, nil, []string{client})
}

// announcement 构造给房间成员的次级广播 (加入/离开公告)。
func announcement(messageType string, bulletin *session.RoomBulletin) dto.Outbound {
	return dto.Outbound{
		Content: dto.Envelope{
			"MessageType": messageType,
			"Message":     bulletin.Message,
		},
		Clients: bulletin.Clients,
	}
}
