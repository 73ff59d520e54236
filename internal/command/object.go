package command

import (
	"context"
	"encoding/json"

	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

type createObjectHandler struct{ tracker *session.Tracker }

func (h *createObjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ObjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("CreateObject", client)
	}
	obj, clients, err := h.tracker.CreateObject(ctx, &data.FlowObject, data.ProjectID)
	if err != nil {
		return failure("CreateObject", client)
	}
	return respond("CreateObject", true, dto.Envelope{"FlowObject": obj}, clients)
}

type deleteObjectHandler struct{ tracker *session.Tracker }

func (h *deleteObjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ObjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("DeleteObject", client)
	}
	clients, err := h.tracker.DeleteObject(ctx, data.ProjectID, data.ObjectID, client)
	if err != nil {
		return failure("DeleteObject", client)
	}
	return respond("DeleteObject", true, dto.Envelope{"ObjectId": data.ObjectID}, clients)
}

// updateObjectHandler 同时服务 UpdateObject 和 FinalizedUpdateObject：
// 后者在内存更新之外把对象写穿到持久化存储，响应类型保持 UpdateObject。
type updateObjectHandler struct {
	tracker *session.Tracker
	persist bool
}

func (h *updateObjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ObjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("UpdateObject", client)
	}
	updated, clients, err := h.tracker.UpdateObject(ctx, &data.FlowObject, data.ProjectID, client, h.persist)
	if err != nil {
		return failure("UpdateObject", client)
	}
	return respond("UpdateObject", true, dto.Envelope{"FlowObject": updated}, clients)
}

type readObjectHandler struct{ tracker *session.Tracker }

func (h *readObjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ObjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("ReadObject", client)
	}
	objectID := data.ObjectID
	if objectID == "" {
		objectID = data.FlowObject.ID
	}
	obj, err := h.tracker.ReadObject(ctx, data.ProjectID, objectID)
	if err != nil {
		return failure("ReadObject", client)
	}
	return respond("ReadObject", true, dto.Envelope{"FlowObject": obj}, []string{client})
}

type checkinObjectHandler struct{ tracker *session.Tracker }

func (h *checkinObjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ObjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("CheckinObject", client)
	}
	if err := h.tracker.CheckinObject(ctx, data.ProjectID, data.ObjectID, client); err != nil {
		return respond("CheckinObject", false, dto.Envelope{"ObjectID": data.ObjectID}, []string{client})
	}
	return respond("CheckinObject", true, dto.Envelope{"ObjectID": data.ObjectID}, []string{client})
}

type checkoutObjectHandler struct{ tracker *session.Tracker }

func (h *checkoutObjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ObjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("CheckoutObject", client)
	}
	if err := h.tracker.CheckoutObject(ctx, data.ProjectID, data.ObjectID, client); err != nil {
		return respond("CheckoutObject", false, dto.Envelope{"ObjectID": data.ObjectID}, []string{client})
	}
	return respond("CheckoutObject", true, dto.Envelope{"ObjectID": data.ObjectID}, []string{client})
}
