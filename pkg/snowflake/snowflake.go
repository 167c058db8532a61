package snowflake

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	// 起始时间戳 (2025-01-01 00:00:00 UTC)
	epoch int64 = 1735689600000

	nodeBits     = 10
	sequenceBits = 12

	maxNodeID   = -1 ^ (-1 << nodeBits)
	maxSequence = -1 ^ (-1 << sequenceBits)

	nodeShift      = sequenceBits
	timestampShift = nodeBits + sequenceBits
)

// ID 雪花ID：41 位毫秒时间戳 + 10 位节点 + 12 位序号
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Int64 转换为 int64
func (id ID) Int64() int64 {
	return int64(id)
}

// Node 雪花ID生成器节点
type Node struct {
	mu       sync.Mutex
	nodeID   int64
	sequence int64
	lastTime int64
}

// NewNode 创建雪花ID生成器，nodeID 超出范围时报错
func NewNode(nodeID int64) (*Node, error) {
	if nodeID < 0 || nodeID > maxNodeID {
		return nil, fmt.Errorf("snowflake: node id %d out of range [0, %d]", nodeID, maxNodeID)
	}
	return &Node{nodeID: nodeID}, nil
}

// Generate 生成雪花ID，同一毫秒内序号用尽时自旋等待下一毫秒
func (n *Node) Generate() ID {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == n.lastTime {
		n.sequence = (n.sequence + 1) & maxSequence
		if n.sequence == 0 {
			for now <= n.lastTime {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.sequence = 0
	}

	n.lastTime = now

	return ID(((now - epoch) << timestampShift) |
		(n.nodeID << nodeShift) |
		n.sequence)
}

// Int64ToString 将 int64 ID 转为十进制字符串（JSON 里以字符串承载，避免前端精度丢失）
func Int64ToString(n int64) string {
	return strconv.FormatInt(n, 10)
}
