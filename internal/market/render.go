package market

import (
	"strconv"
	"strings"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/i18n"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

const displayColor = 0x1DA1F2

const displayTemplate = "**From:** {{ .requester }}\n" +
	"**Post link:** {{ .link }}\n" +
	"**Valid until:** <t:{{ .expires }}:R>\n\n" +
	"{{ if .comments }}**Comments needed:**\n{{ range .comments }}{{ . }}\n{{ end }}\n{{ end }}" +
	"[{{ .likes }}] ❤️ Like (**{{ .like_price }} points**)\n" +
	"[{{ .retweets }}] 🔁 Retweet (**{{ .retweet_price }} points**)\n" +
	"[{{ .follows }}] 👥 Follow (**{{ .follow_price }} points**)\n\n" +
	"ℹ️ **How to:** reply to this embed with `!ambil [number]` to take a comment."

func priceText(t db.TaskType) string {
	p, _ := ledger.Price(t)
	return p.StringFixed(1)
}

// Render projects a request onto its display message.
func Render(req *db.Request, lang string) platform.Embed {
	var comments []string
	total := 0
	for _, task := range req.Tasks {
		if task.Type != db.TaskComment {
			continue
		}
		total++
		mark := "[ ]"
		if task.Status != db.TaskOpen {
			mark = "[✅]"
		}
		comments = append(comments, mark+" ```"+strings.ReplaceAll(task.Text, "`", "'")+"```")
	}

	description := tool.ExecTemplate(i18n.Get(displayTemplate, lang), map[string]any{
		"requester":     platform.Mention(req.RequesterID),
		"link":          req.Link,
		"expires":       strconv.FormatInt(req.ExpiresAt.Unix(), 10),
		"comments":      comments,
		"likes":         len(req.LikedBy),
		"retweets":      len(req.RetweetedBy),
		"follows":       len(req.FollowedBy),
		"like_price":    priceText(db.TaskLike),
		"retweet_price": priceText(db.TaskRetweet),
		"follow_price":  priceText(db.TaskFollow),
	})
	return platform.Embed{
		Title:       i18n.Get("📣 Engagement Request", lang),
		Description: description,
		Footer:      tool.ExecTemplate(i18n.Get("Total: {{ .count }} comments", lang), map[string]any{"count": total}),
		Color:       displayColor,
	}
}
