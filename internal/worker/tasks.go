package worker

import (
	"context"
	"log"
	"time"
)

// ObjectRemover 删除存储对象的能力
type ObjectRemover interface {
	RemoveObject(ctx context.Context, bucket, path string) error
}

// RemoveObjectTask 删除元数据之后清理存储对象，失败只记录日志
type RemoveObjectTask struct {
	Remover ObjectRemover
	Bucket  string
	Path    string
	Timeout time.Duration
	// OnDone 可选，测试与统计用
	OnDone func(err error)
}

// Execute 执行删除
func (t *RemoveObjectTask) Execute() {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := t.Remover.RemoveObject(ctx, t.Bucket, t.Path)
	if err != nil {
		log.Printf("[Worker] Failed to remove object %s/%s: %v", t.Bucket, t.Path, err)
	}
	if t.OnDone != nil {
		t.OnDone(err)
	}
}
