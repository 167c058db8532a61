package handler

import (
	"github.com/gin-gonic/gin"

	"sudooom.collab/internal/middleware"
	"sudooom.collab/internal/service"
	"sudooom.collab/pkg/response"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// Create 创建任务（个人任务或频道任务）
// POST /api/v1/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, task)
}

// GetFeed 获取个人任务流（自己的任务 + 他人公开的个人任务）
// GET /api/v1/tasks/feed
func (h *TaskHandler) GetFeed(c *gin.Context) {
	userID := middleware.GetUserID(c)

	tasks, err := h.taskService.GetFeed(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": tasks})
}

// GetByChannel 获取频道任务列表
// GET /api/v1/channels/:id/tasks
func (h *TaskHandler) GetByChannel(c *gin.Context) {
	userID := middleware.GetUserID(c)
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tasks, err := h.taskService.GetTasksByChannel(c.Request.Context(), userID, channelID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"list": tasks})
}

// Get 获取任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, task)
}

// Update 更新任务
// PUT /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, taskID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, task)
}

// Delete 删除任务
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, nil)
}

// ToggleCompletion 切换任务完成状态
// POST /api/v1/tasks/:id/completion
func (h *TaskHandler) ToggleCompletion(c *gin.Context) {
	userID := middleware.GetUserID(c)
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	task, err := h.taskService.ToggleTaskCompletion(c.Request.Context(), userID, taskID, req.Completed)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, task)
}

// ToggleItem 切换购物项完成状态，任务状态随购物项推导
// POST /api/v1/tasks/:id/items/:itemId/completion
func (h *TaskHandler) ToggleItem(c *gin.Context) {
	userID := middleware.GetUserID(c)
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	task, err := h.taskService.ToggleShoppingItem(c.Request.Context(), userID, taskID, itemID, req.Completed)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, task)
}
