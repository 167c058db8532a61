package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.collab/internal/model"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository 消息数据访问（频道消息与私信）
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository 创建消息仓库
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateChannelMessage 写入频道消息，时间戳由数据库分配
func (r *MessageRepository) CreateChannelMessage(ctx context.Context, msg *model.ChannelMessage) error {
	query := `
		INSERT INTO channel_messages (id, channel_id, sender_id, sender_nickname, content, create_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING create_at
	`
	return r.db.QueryRow(ctx, query,
		msg.ID,
		msg.ChannelID,
		msg.SenderID,
		msg.SenderNickname,
		msg.Content,
	).Scan(&msg.CreateAt)
}

// CreateDirectMessage 写入私信，时间戳由数据库分配
func (r *MessageRepository) CreateDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	query := `
		INSERT INTO direct_messages (id, sender_id, receiver_id, sender_nickname, content, create_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING create_at
	`
	return r.db.QueryRow(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.SenderNickname,
		msg.Content,
	).Scan(&msg.CreateAt)
}

// GetChannelMessages 获取频道最近 limit 条消息，按时间升序返回
func (r *MessageRepository) GetChannelMessages(ctx context.Context, channelID int64, limit int) ([]*model.ChannelMessage, error) {
	// 先按时间倒序截取最近的，再反转为升序
	query := `
		SELECT id, channel_id, sender_id, sender_nickname, content, create_at
		FROM channel_messages
		WHERE channel_id = $1 AND deleted = 0
		ORDER BY create_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*model.ChannelMessage
	for rows.Next() {
		msg := &model.ChannelMessage{}
		err := rows.Scan(
			&msg.ID,
			&msg.ChannelID,
			&msg.SenderID,
			&msg.SenderNickname,
			&msg.Content,
			&msg.CreateAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetDirectMessages 获取两个用户之间的全部私信，按时间升序
func (r *MessageRepository) GetDirectMessages(ctx context.Context, userID, peerID int64) ([]*model.DirectMessage, error) {
	query := `
		SELECT id, sender_id, receiver_id, sender_nickname, content, create_at
		FROM direct_messages
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND deleted = 0
		ORDER BY create_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, userID, peerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*model.DirectMessage
	for rows.Next() {
		msg := &model.DirectMessage{}
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.SenderNickname,
			&msg.Content,
			&msg.CreateAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DeleteChannelMessage 删除频道消息，仅发送者本人可删
func (r *MessageRepository) DeleteChannelMessage(ctx context.Context, msgID, senderID int64) error {
	query := `UPDATE channel_messages SET deleted = 1 WHERE id = $1 AND sender_id = $2 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, msgID, senderID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteDirectMessage 删除私信，仅发送者本人可删
func (r *MessageRepository) DeleteDirectMessage(ctx context.Context, msgID, senderID int64) error {
	query := `UPDATE direct_messages SET deleted = 1 WHERE id = $1 AND sender_id = $2 AND deleted = 0`
	result, err := r.db.Exec(ctx, query, msgID, senderID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}
