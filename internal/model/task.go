package model

import "time"

// TaskStatus 任务状态
const (
	TaskStatusNotStarted = 0 // 未开始
	TaskStatusInProgress = 1 // 进行中
	TaskStatusCompleted  = 2 // 已完成
)

// TaskPriority 任务优先级
const (
	TaskPriorityLow    = 0 // 低
	TaskPriorityMedium = 1 // 中
	TaskPriorityHigh   = 2 // 高
)

// TaskKind 任务类型
const (
	TaskKindRegular  = 0 // 普通任务
	TaskKindShopping = 1 // 购物清单任务
)

// TaskPrivacy 个人任务可见性（频道任务忽略该字段）
const (
	TaskPrivate = 0 // 仅自己可见
	TaskPublic  = 1 // 所有登录用户可见
)

// Task 任务
type Task struct {
	ID          int64      `json:"id,string" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueAt       *time.Time `json:"dueAt" db:"due_at"`
	Priority    int        `json:"priority" db:"priority"`
	Status      int        `json:"status" db:"status"`
	Completed   bool       `json:"completed" db:"completed"`
	Started     bool       `json:"-" db:"started"`
	Privacy     int        `json:"privacy" db:"privacy"`
	Kind        int        `json:"kind" db:"kind"`
	ChannelID   int64      `json:"channelId,string" db:"channel_id"` // 0 表示个人任务
	CreatorID   int64      `json:"creatorId,string" db:"creator_id"`
	CreateAt    time.Time  `json:"createAt" db:"create_at"`
	UpdateAt    time.Time  `json:"updateAt" db:"update_at"`
	Deleted     int        `json:"-" db:"deleted"`

	// 购物清单任务携带购物项
	Items []*ShoppingItem `json:"items,omitempty"`
}

// IsChannelTask 是否为频道任务
func (t *Task) IsChannelTask() bool {
	return t.ChannelID != 0
}

// ShoppingItem 购物项，归属于单个购物清单任务
type ShoppingItem struct {
	ID        int64  `json:"id,string" db:"id"`
	TaskID    int64  `json:"taskId,string" db:"task_id"`
	Name      string `json:"name" db:"name"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Completed bool   `json:"completed" db:"completed"`
}

// DeriveShoppingStatus 根据购物项完成情况推导任务状态
// 没有任何项完成 -> 未开始；全部完成 -> 已完成；否则进行中。
// 空清单视为未开始。
func DeriveShoppingStatus(items []*ShoppingItem) int {
	if len(items) == 0 {
		return TaskStatusNotStarted
	}

	done := 0
	for _, item := range items {
		if item.Completed {
			done++
		}
	}

	switch done {
	case 0:
		return TaskStatusNotStarted
	case len(items):
		return TaskStatusCompleted
	default:
		return TaskStatusInProgress
	}
}

// ApplyShoppingStatus 按购物项重新计算任务状态并同步 completed 标记
func (t *Task) ApplyShoppingStatus() {
	t.Status = DeriveShoppingStatus(t.Items)
	t.Completed = t.Status == TaskStatusCompleted
	if t.Status != TaskStatusNotStarted {
		t.Started = true
	}
}
