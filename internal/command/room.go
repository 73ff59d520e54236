package command

import (
	"context"
	"encoding/json"

	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

type createRoomHandler struct{ tracker *session.Tracker }

func (h *createRoomHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.RoomPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("CreateRoom", client)
	}
	h.tracker.CreateRoom(data.ProjectID)
	return respond("CreateRoom", true, nil, []string{client})
}

type joinRoomHandler struct{ tracker *session.Tracker }

func (h *joinRoomHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.RoomPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("JoinRoom", client)
	}
	bulletin, err := h.tracker.JoinRoom(ctx, data.ProjectID, data.FlowUser.Username, client)
	if err != nil {
		return failure("JoinRoom", client)
	}
	out := respond("JoinRoom", true, nil, []string{client})
	return append(out, announcement("UserJoinedRoom", bulletin))
}

type deleteRoomHandler struct{ tracker *session.Tracker }

// Execute 快速失败：DeleteRoom 尚未实现，绝不静默 no-op。
func (h *deleteRoomHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	_ = h.tracker.DeleteRoom("")
	return failure("DeleteRoom", client)
}
