package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.collab/internal/model"
)

var (
	ErrChannelNotFound       = errors.New("channel not found")
	ErrChannelMemberNotFound = errors.New("channel member not found")
	ErrAlreadyChannelMember  = errors.New("already channel member")
)

// ChannelRepository 频道数据访问
type ChannelRepository struct {
	db *pgxpool.Pool
}

// NewChannelRepository 创建频道仓库
func NewChannelRepository(db *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create 创建频道并写入创建者成员记录（同一事务）
func (r *ChannelRepository) Create(ctx context.Context, channel *model.Channel, creatorMemberID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO channels (id, name, description, visibility, creator_id, invite_code, create_at, update_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING create_at, update_at
	`
	err = tx.QueryRow(ctx, query,
		channel.ID,
		channel.Name,
		channel.Description,
		channel.Visibility,
		channel.CreatorID,
		channel.InviteCode,
	).Scan(&channel.CreateAt, &channel.UpdateAt)
	if err != nil {
		return err
	}

	memberQuery := `
		INSERT INTO channel_members (id, channel_id, user_id, role, create_at, update_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, memberQuery, creatorMemberID, channel.ID, channel.CreatorID, model.ChannelRoleCreator); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID 通过 ID 获取频道
func (r *ChannelRepository) GetByID(ctx context.Context, id int64) (*model.Channel, error) {
	query := `
		SELECT id, name, description, visibility, creator_id, invite_code, create_at, update_at
		FROM channels WHERE id = $1 AND deleted = 0
	`
	return r.scanChannel(r.db.QueryRow(ctx, query, id))
}

// GetByInviteCode 通过邀请码获取频道
func (r *ChannelRepository) GetByInviteCode(ctx context.Context, code string) (*model.Channel, error) {
	query := `
		SELECT id, name, description, visibility, creator_id, invite_code, create_at, update_at
		FROM channels WHERE invite_code = $1 AND deleted = 0
	`
	return r.scanChannel(r.db.QueryRow(ctx, query, code))
}

func (r *ChannelRepository) scanChannel(row pgx.Row) (*model.Channel, error) {
	channel := &model.Channel{}
	err := row.Scan(
		&channel.ID,
		&channel.Name,
		&channel.Description,
		&channel.Visibility,
		&channel.CreatorID,
		&channel.InviteCode,
		&channel.CreateAt,
		&channel.UpdateAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	return channel, nil
}

// GetMembership 获取频道及全部成员角色的快照，用于权限判断
func (r *ChannelRepository) GetMembership(ctx context.Context, channelID int64) (*model.Membership, error) {
	channel, err := r.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	query := `SELECT user_id, role FROM channel_members WHERE channel_id = $1 AND deleted = 0`
	rows, err := r.db.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make(map[int64]int)
	for rows.Next() {
		var userID int64
		var role int
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, err
		}
		members[userID] = role
	}

	return &model.Membership{Channel: channel, Members: members}, nil
}

// Update 更新频道信息（名称/描述/可见性/邀请码）
func (r *ChannelRepository) Update(ctx context.Context, channel *model.Channel) error {
	query := `
		UPDATE channels SET name = $2, description = $3, visibility = $4, invite_code = $5, update_at = NOW()
		WHERE id = $1 AND deleted = 0
	`
	result, err := r.db.Exec(ctx, query,
		channel.ID,
		channel.Name,
		channel.Description,
		channel.Visibility,
		channel.InviteCode,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// UpdateInviteCode 更新邀请码，旧码立即失效
func (r *ChannelRepository) UpdateInviteCode(ctx context.Context, channelID int64, code string) error {
	query := `UPDATE channels SET invite_code = $2, update_at = NOW() WHERE id = $1 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, channelID, code)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// Delete 逻辑删除频道，级联删除由外键约束负责物理数据
func (r *ChannelRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE channels SET deleted = 1, update_at = NOW() WHERE id = $1 AND deleted = 0`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrChannelNotFound
	}

	if _, err := tx.Exec(ctx, `UPDATE channel_members SET deleted = 1, update_at = NOW() WHERE channel_id = $1 AND deleted = 0`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE tasks SET deleted = 1, update_at = NOW() WHERE channel_id = $1 AND deleted = 0`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE channel_messages SET deleted = 1 WHERE channel_id = $1 AND deleted = 0`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AddMember 添加频道成员
func (r *ChannelRepository) AddMember(ctx context.Context, member *model.ChannelMember) error {
	// 退出过的成员保留 deleted=1 的旧行，重新加入时复活旧行
	query := `
		INSERT INTO channel_members (id, channel_id, user_id, role, create_at, update_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (channel_id, user_id) DO UPDATE
			SET role = EXCLUDED.role, deleted = 0, update_at = NOW()
			WHERE channel_members.deleted = 1
		RETURNING create_at, update_at
	`
	err := r.db.QueryRow(ctx, query,
		member.ID,
		member.ChannelID,
		member.UserID,
		member.Role,
	).Scan(&member.CreateAt, &member.UpdateAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAlreadyChannelMember
		}
		return err
	}
	return nil
}

// RemoveMember 移除频道成员（逻辑删除）
func (r *ChannelRepository) RemoveMember(ctx context.Context, channelID, userID int64) error {
	query := `UPDATE channel_members SET deleted = 1, update_at = NOW() WHERE channel_id = $1 AND user_id = $2 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, channelID, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrChannelMemberNotFound
	}
	return nil
}

// UpdateMemberRole 更新成员角色
func (r *ChannelRepository) UpdateMemberRole(ctx context.Context, channelID, userID int64, role int) error {
	query := `UPDATE channel_members SET role = $3, update_at = NOW() WHERE channel_id = $1 AND user_id = $2 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, channelID, userID, role)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrChannelMemberNotFound
	}
	return nil
}

// GetUserChannels 获取用户加入的频道列表
func (r *ChannelRepository) GetUserChannels(ctx context.Context, userID int64) ([]*model.ChannelWithMemberCount, error) {
	query := `
		SELECT c.id, c.name, c.description, c.visibility, c.creator_id, c.invite_code, c.create_at, c.update_at,
		       (SELECT COUNT(*) FROM channel_members cm WHERE cm.channel_id = c.id AND cm.deleted = 0) as member_count
		FROM channels c
		JOIN channel_members m ON c.id = m.channel_id
		WHERE m.user_id = $1 AND c.deleted = 0 AND m.deleted = 0
		ORDER BY c.create_at DESC
	`
	return r.queryChannels(ctx, query, userID)
}

// GetPublicChannels 获取公开频道目录
func (r *ChannelRepository) GetPublicChannels(ctx context.Context, limit, offset int) ([]*model.ChannelWithMemberCount, error) {
	query := `
		SELECT c.id, c.name, c.description, c.visibility, c.creator_id, c.invite_code, c.create_at, c.update_at,
		       (SELECT COUNT(*) FROM channel_members cm WHERE cm.channel_id = c.id AND cm.deleted = 0) as member_count
		FROM channels c
		WHERE c.visibility = $1 AND c.deleted = 0
		ORDER BY c.create_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryChannels(ctx, query, model.ChannelPublic, limit, offset)
}

func (r *ChannelRepository) queryChannels(ctx context.Context, query string, args ...interface{}) ([]*model.ChannelWithMemberCount, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*model.ChannelWithMemberCount
	for rows.Next() {
		c := &model.ChannelWithMemberCount{}
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.Visibility,
			&c.CreatorID,
			&c.InviteCode,
			&c.CreateAt,
			&c.UpdateAt,
			&c.MemberCount,
		)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, nil
}

// GetMembers 获取频道成员列表（角色降序）
func (r *ChannelRepository) GetMembers(ctx context.Context, channelID int64) ([]*model.ChannelMemberWithUser, error) {
	query := `
		SELECT cm.id, cm.channel_id, cm.user_id, cm.role, cm.create_at, cm.update_at,
		       u.username, u.nickname, u.avatar
		FROM channel_members cm
		JOIN users u ON cm.user_id = u.id
		WHERE cm.channel_id = $1 AND cm.deleted = 0 AND u.deleted = 0
		ORDER BY cm.role DESC, cm.create_at ASC
	`
	rows, err := r.db.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*model.ChannelMemberWithUser
	for rows.Next() {
		m := &model.ChannelMemberWithUser{}
		err := rows.Scan(
			&m.ID,
			&m.ChannelID,
			&m.UserID,
			&m.Role,
			&m.CreateAt,
			&m.UpdateAt,
			&m.Username,
			&m.Nickname,
			&m.Avatar,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// GetUserChannelIDs 获取用户加入的频道ID列表
func (r *ChannelRepository) GetUserChannelIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT cm.channel_id FROM channel_members cm
		JOIN channels c ON cm.channel_id = c.id
		WHERE cm.user_id = $1 AND cm.deleted = 0 AND c.deleted = 0
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SharesChannel 判断两个用户是否同属至少一个频道
func (r *ChannelRepository) SharesChannel(ctx context.Context, userID, otherID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM channel_members a
			JOIN channel_members b ON a.channel_id = b.channel_id
			JOIN channels c ON a.channel_id = c.id
			WHERE a.user_id = $1 AND b.user_id = $2
			  AND a.deleted = 0 AND b.deleted = 0 AND c.deleted = 0
		)
	`
	err := r.db.QueryRow(ctx, query, userID, otherID).Scan(&exists)
	return exists, err
}
