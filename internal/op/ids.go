package op

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	idNode *snowflake.Node
	idOnce sync.Once
)

// NextID 生成消费日志主键，单节点部署固定 node 1
func NextID() int64 {
	idOnce.Do(func() {
		idNode, _ = snowflake.NewNode(1)
	})
	return idNode.Generate().Int64()
}
