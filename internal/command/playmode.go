package command

import (
	"context"
	"encoding/json"

	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

// playModeHandler 同时服务 StartPlayMode 和 EndPlayMode。
// 每次切换都广播给房间当前的全体成员，包括两次切换之间加入的。
type playModeHandler struct {
	tracker *session.Tracker
	on      bool
}

func (h *playModeHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	messageType := "EndPlayMode"
	if h.on {
		messageType = "StartPlayMode"
	}

	var data dto.PlayModePayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure(messageType, client)
	}

	changed, clients, err := h.tracker.TogglePlayMode(ctx, data.ProjectID, h.on)
	if err != nil {
		return failure(messageType, client)
	}
	return respond(messageType, changed, nil, clients)
}
