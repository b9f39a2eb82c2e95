package db

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	TaskType   string
	TaskStatus string

	// MessageRef addresses a message on the chat platform.
	MessageRef struct {
		ChannelID string `json:"channel_id"`
		MessageID string `json:"message_id"`
	}

	Task struct {
		Type       TaskType        `json:"type"`
		Text       string          `json:"text"`
		Price      decimal.Decimal `json:"price"`
		Status     TaskStatus      `json:"status"`
		AssignedTo *string         `json:"assigned_to"`
	}

	Request struct {
		ID          string     `json:"id"`
		RequesterID string     `json:"requester_id"`
		Link        string     `json:"link"`
		ChannelID   string     `json:"channel_id"`
		Tasks       []Task     `json:"tasks"`
		LikedBy     []string   `json:"liked_by"`
		RetweetedBy []string   `json:"retweeted_by"`
		FollowedBy  []string   `json:"followed_by"`
		ExpiresAt   time.Time  `json:"expires_at"`
		Display     MessageRef `json:"display"`
		CreatedAt   time.Time  `json:"created_at"`
	}

	PendingVerification struct {
		ID           string          `json:"id"`
		RequestID    string          `json:"request_id"`
		TaskType     TaskType        `json:"task_type"`
		TaskIdx      *int            `json:"task_idx"`
		SellerID     string          `json:"seller_id"`
		RequesterID  string          `json:"requester_id"`
		Price        decimal.Decimal `json:"price"`
		UserPays     decimal.Decimal `json:"user_pays"`
		IsComment    bool            `json:"is_comment"`
		Notification MessageRef      `json:"notification"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	// JournalEntry is one movement of points on one account.
	JournalEntry struct {
		Account   string          `json:"account" db:"account"`
		Delta     decimal.Decimal `json:"delta" db:"delta"`
		Reason    string          `json:"reason" db:"reason"`
		Reference string          `json:"reference" db:"reference"`
		CreatedAt time.Time       `json:"created_at" db:"created_at"`
	}

	// Points maps member ids and escrow accounts to balances.
	Points map[string]decimal.Decimal
	// Requests maps request ids to open requests.
	Requests map[string]*Request
	// EngagementLog maps an engagement key to the task types already claimed.
	EngagementLog map[string]map[TaskType]bool
	// FollowGraph holds "<member>_<requester>" pairs of approved follows.
	FollowGraph map[string]bool
	// GiverCounts holds gift counts under the member id and gift volume under "<member>_total".
	GiverCounts map[string]decimal.Decimal
	// PendingDMs maps verification ids to open verifications.
	PendingDMs map[string]*PendingVerification
)

const (
	TaskLike    TaskType = "like"
	TaskRetweet TaskType = "retweet"
	TaskFollow  TaskType = "follow"
	TaskComment TaskType = "comment"

	TaskOpen      TaskStatus = "open"
	TaskClaimed   TaskStatus = "claimed"
	TaskConfirmed TaskStatus = "confirmed"
)

func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" && r.MessageID == ""
}

// FindByDisplay returns the request whose display message is ref.
func (r Requests) FindByDisplay(ref MessageRef) (*Request, bool) {
	for _, req := range r {
		if req.Display.MessageID != "" && req.Display.MessageID == ref.MessageID {
			return req, true
		}
	}
	return nil, false
}

// FindByNotification returns the verification whose DM is ref.
func (p PendingDMs) FindByNotification(ref MessageRef) (*PendingVerification, bool) {
	for _, pv := range p {
		if pv.Notification.MessageID != "" && pv.Notification.MessageID == ref.MessageID {
			return pv, true
		}
	}
	return nil, false
}

func FollowKey(member, requester string) string {
	return member + "_" + requester
}

func (g GiverCounts) Count(member string) int64 {
	return g[member].IntPart()
}

func (g GiverCounts) Volume(member string) decimal.Decimal {
	return g[member+"_total"]
}

func (g GiverCounts) Record(member string, amount decimal.Decimal) {
	g[member] = g[member].Add(decimal.NewFromInt(1))
	g[member+"_total"] = g[member+"_total"].Add(amount).Round(1)
}
