package risk

import "fmt"

// Action 处置建议
type Action int

const (
	ActionApprove Action = iota
	ActionManual
	ActionReject
)

// 分数阈值
const (
	RejectThreshold = 80
	ManualThreshold = 50
)

// 各检查项的固定分值与原因
const (
	SensitiveWordScore  = 90
	SensitiveWordReason = "含违规内容"

	ContactScore  = 80
	ContactReason = "含联系方式或诱导外联"
)

func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionManual:
		return "manual"
	case ActionReject:
		return "reject"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// MarshalText 以字符串形式输出到 JSON
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ActionFor 根据分数得出处置建议
func ActionFor(score int) Action {
	switch {
	case score >= RejectThreshold:
		return ActionReject
	case score >= ManualThreshold:
		return ActionManual
	default:
		return ActionApprove
	}
}

// Result 风控评估结果
type Result struct {
	Score  int    `json:"score"`
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Check 单项检查结果
type Check struct {
	Score  int
	Reason string
}
