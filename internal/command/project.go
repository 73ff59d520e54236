package command

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yashBhosale/reality-flow/internal/dto"
	"github.com/yashBhosale/reality-flow/internal/session"
)

type createProjectHandler struct{ tracker *session.Tracker }

func (h *createProjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ProjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("CreateProject", client)
	}
	// 项目 ID 在服务端生成
	data.FlowProject.ID = uuid.NewString()

	project, err := h.tracker.CreateProject(ctx, &data.FlowProject, data.FlowUser.Username)
	if err != nil {
		return failure("CreateProject", client)
	}
	return respond("CreateProject", true, dto.Envelope{"FlowProject": project}, []string{client})
}

type readProjectHandler struct{ tracker *session.Tracker }

func (h *readProjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ProjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("ReadProject", client)
	}
	projectID := data.ProjectID
	if projectID == "" {
		projectID = data.FlowProject.ID
	}

	snapshot, err := h.tracker.ReadProject(ctx, projectID)
	if err != nil {
		return failure("ReadProject", client)
	}
	return respond("ReadProject", true, dto.Envelope{"FlowProject": snapshot}, []string{client})
}

type deleteProjectHandler struct{ tracker *session.Tracker }

func (h *deleteProjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ProjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("DeleteProject", client)
	}
	if err := h.tracker.DeleteProject(ctx, data.ProjectID, data.FlowUser.Username); err != nil {
		return failure("DeleteProject", client)
	}
	return respond("DeleteProject", true, nil, []string{client})
}

type openProjectHandler struct{ tracker *session.Tracker }

// Execute 打开项目并隐式加入房间。除给发起客户端的直接响应外，
// 房间的每个成员都会收到一条单独的 UserJoinedRoom 公告：两次独立投递。
func (h *openProjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ProjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("OpenProject", client)
	}

	project, bulletin, err := h.tracker.OpenProject(ctx, data.ProjectID, data.FlowUser.Username, client)
	if err != nil {
		return failure("OpenProject", client)
	}

	out := respond("OpenProject", true, dto.Envelope{"FlowProject": project}, []string{client})
	return append(out, announcement("UserJoinedRoom", bulletin))
}

type leaveProjectHandler struct{ tracker *session.Tracker }

func (h *leaveProjectHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ProjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("LeaveProject", client)
	}

	bulletin, err := h.tracker.LeaveProject(ctx, data.ProjectID, data.FlowUser.Username, client)
	if err != nil {
		return failure("LeaveProject", client)
	}

	out := respond("LeaveProject", true, nil, []string{client})
	return append(out, announcement("UserLeftRoom", bulletin))
}

type fetchProjectsHandler struct{ tracker *session.Tracker }

func (h *fetchProjectsHandler) Execute(ctx context.Context, payload []byte, client string) []dto.Outbound {
	var data dto.ProjectPayload
	if err := json.Unmarshal(payload, &data); err != nil {
		return failure("FetchProjects", client)
	}
	projects, err := h.tracker.FetchProjects(ctx, data.FlowUser.Username)
	if err != nil {
		return failure("FetchProjects", client)
	}
	return respond("FetchProjects", true, dto.Envelope{"Projects": projects}, []string{client})
}
