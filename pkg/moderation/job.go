package moderation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BinLe1988/payday-server/models"
)

// Kind 待审核内容类型
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
	KindSalary  Kind = "salary"
)

// Kinds 所有可审核的内容类型
var Kinds = []Kind{KindPost, KindComment, KindSalary}

var (
	ErrUnknownKind   = errors.New("moderation: unknown content kind")
	ErrNotFound      = errors.New("moderation: content not found")
	ErrMalformedJob  = errors.New("moderation: malformed job payload")
	ErrInvalidStatus = errors.New("moderation: invalid review status")
)

// ParseKind 解析内容类型
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// newRecord 按类型创建空记录，用于加载和更新
func newRecord(kind Kind) (models.Moderatable, error) {
	switch kind {
	case KindPost:
		return &models.Post{}, nil
	case KindComment:
		return &models.Comment{}, nil
	case KindSalary:
		return &models.SalaryRecord{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Job 审核任务，JSON 编码后放入队列
type Job struct {
	Kind      Kind   `json:"kind"`
	ContentID string `json:"contentId"`
	Attempts  int    `json:"attempts"`
}

func (j Job) String() string {
	return fmt.Sprintf("%s:%s", j.Kind, j.ContentID)
}

func (j Job) encode() (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJob(raw string) (Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if j.ContentID == "" {
		return Job{}, fmt.Errorf("%w: missing content id", ErrMalformedJob)
	}
	return j, nil
}

// rejectionKey 同一内容在同一审核轮次内被拒只通知一次
func rejectionKey(kind Kind, id string, round int) string {
	return fmt.Sprintf("%s:%s:%d:rejected", kind, id, round)
}
