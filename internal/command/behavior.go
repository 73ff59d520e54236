package command

import (
	"context"
	"encoding/json"

	"github.com/yashBhosale/reality-flow/internal/behavior"
	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

type createBehaviorHandler struct{ tracker *session.Tracker }

// Execute 把递归 wire 结构摊平后存入房间。响应携带摊平后的链，
// 客户端侧需要递归形式时通过 behavior.Reconstitute 还原。
func (h *createBehaviorHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.BehaviorPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("CreateBehaviour", client)
	}
	chain := behavior.Listify(data.FlowBehaviour)
	if len(chain) == 0 {
		return failure("CreateBehaviour", client)
	}

	clients, err := h.tracker.CreateBehavior(ctx, data.ProjectID, chain[0].ChainOwner, chain)
	if err != nil {
		return failure("CreateBehaviour", client)
	}
	return respond("CreateBehaviour", true, dto.Envelope{"FlowBehaviour": chain}, clients)
}

type deleteBehaviorHandler struct{ tracker *session.Tracker }

func (h *deleteBehaviorHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.BehaviorPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("DeleteBehaviour", client)
	}
	chain := behavior.Listify(data.FlowBehaviour)
	if len(chain) == 0 {
		return failure("DeleteBehaviour", client)
	}
	owner := chain[0].ChainOwner

	clients, err := h.tracker.DeleteBehavior(ctx, data.ProjectID, owner)
	if err != nil {
		return failure("DeleteBehaviour", client)
	}
	return respond("DeleteBehaviour", true, dto.Envelope{"BehaviourId": owner}, clients)
}

type readBehaviorHandler struct{ tracker *session.Tracker }

func (h *readBehaviorHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.BehaviorPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("ReadBehaviour", client)
	}
	chain := behavior.Listify(data.FlowBehaviour)
	if len(chain) == 0 {
		return failure("ReadBehaviour", client)
	}

	step, err := h.tracker.ReadBehavior(ctx, data.ProjectID, chain[0].ChainOwner, chain[0].ID)
	if err != nil {
		return failure("ReadBehaviour", client)
	}
	return respond("ReadBehaviour", true, dto.Envelope{"FlowBehaviour": step}, []string{client})
}
