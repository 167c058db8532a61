package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.collab/internal/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrItemNotFound = errors.New("shopping item not found")
)

// TaskRepository 任务数据访问
type TaskRepository struct {
	db *pgxpool.Pool
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, due_at, priority, status, completed, started, privacy, kind, channel_id, creator_id, create_at, update_at`

// Create 创建任务及购物项（同一事务）
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tasks (id, title, description, due_at, priority, status, completed, started, privacy, kind, channel_id, creator_id, create_at, update_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING create_at, update_at
	`
	err = tx.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueAt,
		task.Priority,
		task.Status,
		task.Completed,
		task.Started,
		task.Privacy,
		task.Kind,
		task.ChannelID,
		task.CreatorID,
	).Scan(&task.CreateAt, &task.UpdateAt)
	if err != nil {
		return err
	}

	for _, item := range task.Items {
		if err := insertItem(ctx, tx, item); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertItem(ctx context.Context, tx pgx.Tx, item *model.ShoppingItem) error {
	query := `
		INSERT INTO shopping_items (id, task_id, name, quantity, completed)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, query, item.ID, item.TaskID, item.Name, item.Quantity, item.Completed)
	return err
}

// GetByID 获取任务及其购物项
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted = 0`
	task := &model.Task{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueAt,
		&task.Priority,
		&task.Status,
		&task.Completed,
		&task.Started,
		&task.Privacy,
		&task.Kind,
		&task.ChannelID,
		&task.CreatorID,
		&task.CreateAt,
		&task.UpdateAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.Kind == model.TaskKindShopping {
		items, err := r.GetItems(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		task.Items = items
	}
	return task, nil
}

// Update 更新任务字段；items 非 nil 时整体替换购物项
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE tasks SET title = $2, description = $3, due_at = $4, priority = $5,
		       status = $6, completed = $7, started = $8, privacy = $9, update_at = NOW()
		WHERE id = $1 AND deleted = 0
	`
	result, err := tx.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueAt,
		task.Priority,
		task.Status,
		task.Completed,
		task.Started,
		task.Privacy,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	if task.Kind == model.TaskKindShopping && task.Items != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM shopping_items WHERE task_id = $1`, task.ID); err != nil {
			return err
		}
		for _, item := range task.Items {
			if err := insertItem(ctx, tx, item); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// UpdateItemCompleted 更新单个购物项的完成标记
func (r *TaskRepository) UpdateItemCompleted(ctx context.Context, taskID, itemID int64, completed bool) error {
	query := `UPDATE shopping_items SET completed = $3 WHERE task_id = $1 AND id = $2`
	result, err := r.db.Exec(ctx, query, taskID, itemID, completed)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// SetAllItemsCompleted 批量设置任务所有购物项的完成标记
func (r *TaskRepository) SetAllItemsCompleted(ctx context.Context, taskID int64, completed bool) error {
	query := `UPDATE shopping_items SET completed = $2 WHERE task_id = $1`
	_, err := r.db.Exec(ctx, query, taskID, completed)
	return err
}

// UpdateStatus 更新任务状态与完成标记
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID int64, status int, completed, started bool) error {
	query := `UPDATE tasks SET status = $2, completed = $3, started = $4, update_at = NOW() WHERE id = $1 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, taskID, status, completed, started)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete 逻辑删除任务
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE tasks SET deleted = 1, update_at = NOW() WHERE id = $1 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// GetItems 获取任务的购物项列表
func (r *TaskRepository) GetItems(ctx context.Context, taskID int64) ([]*model.ShoppingItem, error) {
	query := `SELECT id, task_id, name, quantity, completed FROM shopping_items WHERE task_id = $1 ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.ShoppingItem
	for rows.Next() {
		item := &model.ShoppingItem{}
		if err := rows.Scan(&item.ID, &item.TaskID, &item.Name, &item.Quantity, &item.Completed); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetByChannel 获取频道任务（创建时间倒序）
func (r *TaskRepository) GetByChannel(ctx context.Context, channelID int64) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE channel_id = $1 AND deleted = 0 ORDER BY create_at DESC`
	return r.queryTasks(ctx, query, channelID)
}

// GetFeedForUser 获取个人任务与他人公开任务的合并列表（创建时间倒序）
func (r *TaskRepository) GetFeedForUser(ctx context.Context, userID int64) ([]*model.Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM tasks
		WHERE channel_id = 0 AND deleted = 0
		  AND (creator_id = $1 OR privacy = $2)
		ORDER BY create_at DESC
	`
	return r.queryTasks(ctx, query, userID, model.TaskPublic)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*model.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task := &model.Task{}
		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.DueAt,
			&task.Priority,
			&task.Status,
			&task.Completed,
			&task.Started,
			&task.Privacy,
			&task.Kind,
			&task.ChannelID,
			&task.CreatorID,
			&task.CreateAt,
			&task.UpdateAt,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	// 购物清单任务补齐购物项
	for _, task := range tasks {
		if task.Kind == model.TaskKindShopping {
			items, err := r.GetItems(ctx, task.ID)
			if err != nil {
				return nil, err
			}
			task.Items = items
		}
	}
	return tasks, nil
}
