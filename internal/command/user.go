package command

import (
	"context"
	"encoding/json"

	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

type createUserHandler struct{ tracker *session.Tracker }

func (h *createUserHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.UserPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("CreateUser", client)
	}
	if err := h.tracker.CreateUser(ctx, data.FlowUser.Username, data.FlowUser.Password); err != nil {
		return failure("CreateUser", client)
	}
	return respond("CreateUser", true, nil, []string{client})
}

type deleteUserHandler struct{ tracker *session.Tracker }

// Execute 删除用户：该用户名下的每个客户端都被强制登出并收到响应。
func (h *deleteUserHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.UserPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("DeleteUser", client)
	}
	// DeleteUser 历史上把凭证放在顶层
	username, password := data.Username, data.Password
	if username == "" {
		username, password = data.FlowUser.Username, data.FlowUser.Password
	}

	affected, err := h.tracker.DeleteUser(ctx, username, password)
	if err != nil {
		return failure("DeleteUser", client)
	}
	recipients := affected
	if len(recipients) == 0 {
		recipients = []string{client}
	}
	return respond("DeleteUser", true, nil, recipients)
}

type loginUserHandler struct{ tracker *session.Tracker }

func (h *loginUserHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.UserPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("LoginUser", client)
	}
	projects, err := h.tracker.LoginUser(ctx, data.FlowUser.Username, data.FlowUser.Password, client)
	if err != nil {
		return failure("LoginUser", client)
	}
	return respond("LoginUser", true, dto.Envelope{"Projects": projects}, []string{client})
}

type logoutUserHandler struct{ tracker *session.Tracker }

func (h *logoutUserHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.UserPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("LogoutUser", client)
	}
	if err := h.tracker.LogoutUser(ctx, data.FlowUser.Username, data.FlowUser.Password, client); err != nil {
		return failure("LogoutUser", client)
	}
	return respond("LogoutUser", true, nil, []string{client})
}

type readUserHandler struct{ tracker *session.Tracker }

func (h *readUserHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.UserPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("ReadUser", client)
	}
	user, err := h.tracker.ReadUser(ctx, data.FlowUser.Username)
	if err != nil {
		return failure("ReadUser", client)
	}
	return respond("ReadUser", true, dto.Envelope{"FlowUser": user}, []string{client})
}
