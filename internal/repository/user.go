package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.collab/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// UserRepository 用户数据访问
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, nickname, email, avatar, status, create_at, update_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING create_at, update_at
	`
	return r.db.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Nickname,
		user.Email,
		user.Avatar,
		user.Status,
	).Scan(&user.CreateAt, &user.UpdateAt)
}

// GetByID 通过 ID 获取用户
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, username, password_hash, nickname, email, avatar, status, create_at, update_at
		FROM users WHERE id = $1 AND deleted = 0
	`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByUsername 通过用户名获取用户
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, password_hash, nickname, email, avatar, status, create_at, update_at
		FROM users WHERE username = $1 AND deleted = 0
	`
	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

// GetByEmail 通过邮箱获取用户
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, username, password_hash, nickname, email, avatar, status, create_at, update_at
		FROM users WHERE email = $1 AND deleted = 0
	`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) scanUser(row pgx.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Nickname,
		&user.Email,
		&user.Avatar,
		&user.Status,
		&user.CreateAt,
		&user.UpdateAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ExistsByUsername 检查用户名是否存在
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND deleted = 0)`
	err := r.db.QueryRow(ctx, query, username).Scan(&exists)
	return exists, err
}

// ExistsByEmail 检查邮箱是否存在
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted = 0)`
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	return exists, err
}

// Update 更新用户资料
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET nickname = $2, avatar = $3, email = $4, update_at = NOW()
		WHERE id = $1 AND deleted = 0
	`
	result, err := r.db.Exec(ctx, query,
		user.ID,
		user.Nickname,
		user.Avatar,
		user.Email,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword 更新密码哈希
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, update_at = NOW() WHERE id = $1 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Search 搜索用户
func (r *UserRepository) Search(ctx context.Context, keyword string, limit, offset int) ([]*model.User, error) {
	query := `
		SELECT id, username, nickname, email, avatar, status, create_at, update_at
		FROM users
		WHERE (username ILIKE $1 OR nickname ILIKE $1) AND deleted = 0
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, "%"+keyword+"%", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Nickname,
			&user.Email,
			&user.Avatar,
			&user.Status,
			&user.CreateAt,
			&user.UpdateAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
