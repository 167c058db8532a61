package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sudooom.collab/internal/model"
	"sudooom.collab/internal/policy"
	"sudooom.collab/internal/realtime"
	"sudooom.collab/internal/repository"
	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/snowflake"
)

// TaskRepo 任务服务依赖的存储
type TaskRepo interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	UpdateItemCompleted(ctx context.Context, taskID, itemID int64, completed bool) error
	SetAllItemsCompleted(ctx context.Context, taskID int64, completed bool) error
	UpdateStatus(ctx context.Context, taskID int64, status int, completed, started bool) error
	Delete(ctx context.Context, id int64) error
	GetItems(ctx context.Context, taskID int64) ([]*model.ShoppingItem, error)
	GetByChannel(ctx context.Context, channelID int64) ([]*model.Task, error)
	GetFeedForUser(ctx context.Context, userID int64) ([]*model.Task, error)
}

// MembershipGetter 任务服务对频道存储的依赖
type MembershipGetter interface {
	GetMembership(ctx context.Context, channelID int64) (*model.Membership, error)
}

// ShoppingItemInput 购物项输入，ID 为空时分配新 ID
type ShoppingItemInput struct {
	ID        int64  `json:"id,string"`
	Name      string `json:"name" binding:"required,min=1,max=200"`
	Quantity  int    `json:"quantity"`
	Completed bool   `json:"completed"`
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title       string               `json:"title" binding:"required,min=1,max=200"`
	Description string               `json:"description" binding:"max=2000"`
	DueAt       *time.Time           `json:"due_at"`
	Priority    int                  `json:"priority" binding:"min=0,max=2"`
	Privacy     int                  `json:"privacy" binding:"min=0,max=1"`
	Kind        int                  `json:"kind" binding:"min=0,max=1"`
	ChannelID   int64                `json:"channel_id,string"`
	Items       []*ShoppingItemInput `json:"items"`
}

// UpdateTaskRequest 更新任务请求，nil 字段不修改
type UpdateTaskRequest struct {
	Title       *string              `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string              `json:"description" binding:"omitempty,max=2000"`
	DueAt       *time.Time           `json:"due_at"`
	Priority    *int                 `json:"priority" binding:"omitempty,min=0,max=2"`
	Privacy     *int                 `json:"privacy" binding:"omitempty,min=0,max=1"`
	Status      *int                 `json:"status" binding:"omitempty,min=0,max=2"`
	Items       []*ShoppingItemInput `json:"items"`
}

// TaskService 任务服务
type TaskService struct {
	taskRepo    TaskRepo
	memberships MembershipGetter
	snowflake   *snowflake.Node
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewTaskService 创建任务服务
func NewTaskService(taskRepo TaskRepo, memberships MembershipGetter, sf *snowflake.Node, publisher EventPublisher) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		memberships: memberships,
		snowflake:   sf,
		publisher:   publisher,
		logger:      slog.Default(),
	}
}

// CreateTask 创建任务
// 频道任务要求创建者当前是频道成员；购物项分配新 ID 且初始未完成
func (s *TaskService) CreateTask(ctx context.Context, userID int64, req *CreateTaskRequest) (*model.Task, error) {
	if req.ChannelID != 0 {
		if err := s.requireMember(ctx, req.ChannelID, userID); err != nil {
			return nil, err
		}
	}

	task := &model.Task{
		ID:          s.snowflake.Generate().Int64(),
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		Priority:    req.Priority,
		Status:      model.TaskStatusNotStarted,
		Privacy:     req.Privacy,
		Kind:        req.Kind,
		ChannelID:   req.ChannelID,
		CreatorID:   userID,
	}

	if task.Kind == model.TaskKindShopping {
		for _, in := range req.Items {
			quantity := in.Quantity
			if quantity < 1 {
				quantity = 1
			}
			task.Items = append(task.Items, &model.ShoppingItem{
				ID:       s.snowflake.Generate().Int64(),
				TaskID:   task.ID,
				Name:     in.Name,
				Quantity: quantity,
			})
		}
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.publishTaskEvent(realtime.EventTaskCreated, task, userID)
	return task, nil
}

// UpdateTask 部分更新任务
// 携带 items 时整体替换购物项：没有 ID 的分配新 ID，重复 ID 拒绝
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID int64, req *UpdateTaskRequest) (*model.Task, error) {
	task, err := s.getTaskForWrite(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueAt != nil {
		task.DueAt = req.DueAt
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Privacy != nil && !task.IsChannelTask() {
		task.Privacy = *req.Privacy
	}
	// 普通任务允许直接改状态；购物清单任务的状态只由购物项推导
	if req.Status != nil && task.Kind == model.TaskKindRegular {
		task.Status = *req.Status
		task.Completed = task.Status == model.TaskStatusCompleted
		if task.Status != model.TaskStatusNotStarted {
			task.Started = true
		}
	}

	if req.Items != nil && task.Kind == model.TaskKindShopping {
		items, err := s.buildItems(task.ID, req.Items)
		if err != nil {
			return nil, err
		}
		task.Items = items
		task.ApplyShoppingStatus()
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.publishTaskEvent(realtime.EventTaskUpdated, task, userID)
	return task, nil
}

// DeleteTask 删除任务
// 个人任务仅创建者可删；频道任务创建者或频道管理员可删
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID int64) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.CreatorID != userID {
		if !task.IsChannelTask() {
			return appErrors.ErrPermissionDenied
		}
		m, err := s.getMembership(ctx, task.ChannelID)
		if err != nil {
			return err
		}
		if !m.IsAdmin(userID) {
			return appErrors.ErrPermissionDenied
		}
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return err
	}

	s.publishTaskEvent(realtime.EventTaskDeleted, task, userID)
	return nil
}

// ToggleTaskCompletion 切换任务完成状态
// 完成时状态置为已完成；取消完成时回退：曾开始过回到进行中，否则未开始。
// 购物清单任务会同步把所有购物项的完成标记设置为目标值。
func (s *TaskService) ToggleTaskCompletion(ctx context.Context, userID, taskID int64, completed bool) (*model.Task, error) {
	task, err := s.getTaskForWrite(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Kind == model.TaskKindShopping {
		if err := s.taskRepo.SetAllItemsCompleted(ctx, taskID, completed); err != nil {
			return nil, err
		}
		for _, item := range task.Items {
			item.Completed = completed
		}
		task.ApplyShoppingStatus()
	} else {
		if completed {
			task.Status = model.TaskStatusCompleted
			task.Completed = true
		} else {
			if task.Started {
				task.Status = model.TaskStatusInProgress
			} else {
				task.Status = model.TaskStatusNotStarted
			}
			task.Completed = false
		}
	}

	if err := s.taskRepo.UpdateStatus(ctx, taskID, task.Status, task.Completed, task.Started); err != nil {
		return nil, err
	}

	s.publishTaskEvent(realtime.EventTaskUpdated, task, userID)
	return task, nil
}

// ToggleShoppingItem 切换单个购物项的完成状态，并按整个购物项列表重新推导任务状态
func (s *TaskService) ToggleShoppingItem(ctx context.Context, userID, taskID, itemID int64, completed bool) (*model.Task, error) {
	task, err := s.getTaskForWrite(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Kind != model.TaskKindShopping {
		return nil, appErrors.ErrItemNotFound
	}

	found := false
	for _, item := range task.Items {
		if item.ID == itemID {
			found = true
			break
		}
	}
	if !found {
		return nil, appErrors.ErrItemNotFound
	}

	if err := s.taskRepo.UpdateItemCompleted(ctx, taskID, itemID, completed); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, appErrors.ErrItemNotFound
		}
		return nil, err
	}

	// 重新读取购物项，按完整列表推导状态
	items, err := s.taskRepo.GetItems(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.Items = items
	task.ApplyShoppingStatus()

	if err := s.taskRepo.UpdateStatus(ctx, taskID, task.Status, task.Completed, task.Started); err != nil {
		return nil, err
	}

	s.publishTaskEvent(realtime.EventTaskUpdated, task, userID)
	return task, nil
}

// GetTask 获取任务详情
func (s *TaskService) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkRead(ctx, userID, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTasksByChannel 获取频道任务列表（创建时间倒序），仅成员可见
func (s *TaskService) GetTasksByChannel(ctx context.Context, userID, channelID int64) ([]*model.Task, error) {
	if err := s.requireMember(ctx, channelID, userID); err != nil {
		return nil, err
	}
	return s.taskRepo.GetByChannel(ctx, channelID)
}

// GetFeed 获取个人任务与他人公开任务的合并列表（创建时间倒序）
func (s *TaskService) GetFeed(ctx context.Context, userID int64) ([]*model.Task, error) {
	return s.taskRepo.GetFeedForUser(ctx, userID)
}

// getTask 读取任务并转换未找到错误
func (s *TaskService) getTask(ctx context.Context, taskID int64) (*model.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, appErrors.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// getTaskForWrite 读取任务并校验写权限：
// 个人任务仅创建者可写；频道任务要求当前为频道成员
func (s *TaskService) getTaskForWrite(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.IsChannelTask() {
		if err := s.requireMember(ctx, task.ChannelID, userID); err != nil {
			return nil, err
		}
	} else if task.CreatorID != userID {
		return nil, appErrors.ErrPermissionDenied
	}

	return task, nil
}

// checkRead 读权限：创建者、公开个人任务、或频道成员
func (s *TaskService) checkRead(ctx context.Context, userID int64, task *model.Task) error {
	if task.CreatorID == userID {
		return nil
	}
	if task.IsChannelTask() {
		return s.requireMember(ctx, task.ChannelID, userID)
	}
	if task.Privacy == model.TaskPublic {
		return nil
	}
	return appErrors.ErrPermissionDenied
}

func (s *TaskService) requireMember(ctx context.Context, channelID, userID int64) error {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return err
	}
	if !policy.CanPerform(m, userID, policy.ActionManageTask) {
		return appErrors.ErrPermissionDenied
	}
	return nil
}

func (s *TaskService) getMembership(ctx context.Context, channelID int64) (*model.Membership, error) {
	m, err := s.memberships.GetMembership(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, appErrors.ErrChannelNotFound
		}
		return nil, err
	}
	return m, nil
}

// buildItems 构造购物项列表，校验 ID 唯一性
func (s *TaskService) buildItems(taskID int64, inputs []*ShoppingItemInput) ([]*model.ShoppingItem, error) {
	seen := make(map[int64]bool, len(inputs))
	items := make([]*model.ShoppingItem, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == 0 {
			id = s.snowflake.Generate().Int64()
		}
		if seen[id] {
			return nil, appErrors.ErrDuplicateItemID
		}
		seen[id] = true

		quantity := in.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, &model.ShoppingItem{
			ID:        id,
			TaskID:    taskID,
			Name:      in.Name,
			Quantity:  quantity,
			Completed: in.Completed,
		})
	}
	return items, nil
}

// publishTaskEvent 频道任务推送到频道 Subject，个人任务推送到创建者 Subject
func (s *TaskService) publishTaskEvent(eventType string, task *model.Task, actorID int64) {
	if s.publisher == nil {
		return
	}

	payload := map[string]interface{}{"task_id": snowflake.Int64ToString(task.ID)}
	event := realtime.NewEvent(eventType, task.ChannelID, actorID, payload)

	var err error
	if task.IsChannelTask() {
		err = s.publisher.PublishToChannel(task.ChannelID, event)
	} else {
		err = s.publisher.PublishToUser(task.CreatorID, event)
	}
	if err != nil {
		s.logger.Warn("Failed to publish task event", "taskId", task.ID, "type", eventType, "error", err)
	}
}
