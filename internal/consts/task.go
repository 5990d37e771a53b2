package consts

import "strings"

// Category 自动分类可选标签
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryStudy    Category = "Study"
	CategoryPersonal Category = "Personal"
	CategoryOther    Category = "Other"
)

var Categories = []Category{CategoryWork, CategoryStudy, CategoryPersonal, CategoryOther}

// NormalizeCategory 大小写不敏感匹配, 返回规范写法
func NormalizeCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

const MinTitleLen = 2

// 通知文案, Markdown
const (
	MsgTaskCreatedFmt   = "📝 *New Task Added!*\n\n*Title:* %s\n*Description:* %s"
	MsgTaskCompletedFmt = "✅ *Task Completed!*\n\n*Title:* %s\n*Description:* %s"
	MsgDigestFmt        = "🧠 *Weekly Smart Summary:*\n\n%s"
	MsgDigestEmpty      = "🎉 You have no open tasks this week! Great job!"
	MsgPingBot          = "🚀 Test message from Voltify bot!"
)

// 会话
const (
	SessionCookieName = "voltify_session"
)
