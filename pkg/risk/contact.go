package risk

import (
	"regexp"
	"strings"
)

// ContactPattern 联系方式正则
type ContactPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultContactPatterns 按优先级排列的联系方式正则：手机号、邮箱、QQ、微信
//
// RE2 的 \d \s \w 只匹配 ASCII，这里显式覆盖全角数字、全角空格和中文邮箱。
var DefaultContactPatterns = []ContactPattern{
	{Name: "mobile", Pattern: regexp.MustCompile(`[1１][3-9３-９]\p{Nd}{9}`)},
	{Name: "email", Pattern: regexp.MustCompile(`[\p{L}\p{N}_.-]+[@＠][\p{L}\p{N}_.-]+\.[\p{L}\p{N}_]+`)},
	{Name: "qq", Pattern: regexp.MustCompile(`(?i)(?:qq|ｑｑ)号?[：:\s\x{3000}]*\p{Nd}{5,12}`)},
	{Name: "wechat", Pattern: regexp.MustCompile(`微信[：:\s\x{3000}]*[a-zA-Z0-9_\-ａ-ｚＡ-Ｚ０-９]{6,20}`)},
}

// ContactMatcher 检测文本中的联系方式与诱导外联
type ContactMatcher struct {
	patterns []ContactPattern
}

// NewContactMatcher 创建联系方式检测器，patterns 为空时使用默认规则
func NewContactMatcher(patterns ...ContactPattern) *ContactMatcher {
	if len(patterns) == 0 {
		patterns = DefaultContactPatterns
	}
	return &ContactMatcher{patterns: patterns}
}

// Match 返回第一个命中的规则名
func (m *ContactMatcher) Match(content string) (string, bool) {
	if strings.TrimSpace(content) == "" {
		return "", false
	}
	for _, p := range m.patterns {
		if p.Pattern.MatchString(content) {
			return p.Name, true
		}
	}
	return "", false
}

// Check 命中任一规则得 80 分
func (m *ContactMatcher) Check(content string) Check {
	if _, found := m.Match(content); found {
		return Check{Score: ContactScore, Reason: ContactReason}
	}
	return Check{}
}
