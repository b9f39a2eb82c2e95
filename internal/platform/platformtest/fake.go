// Package platformtest provides an in-memory platform for tests.
package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/platform"
)

var _ platform.Platform = (*Fake)(nil)

type (
	Sent struct {
		Ref    db.MessageRef
		Text   string
		Embed  *platform.Embed
		Direct bool
	}

	Fake struct {
		mu sync.Mutex
		seq int

		Channels    map[string]string
		Messages    map[string]*Sent
		Deleted     []db.MessageRef
		Reactions   map[string][]string
		Removed     []string
		Roles       map[string]string
		Silenced    []string
		Members     map[string][]string
		Unreachable map[string]bool
		FailEmbeds  bool
		// FailSilence is the number of upcoming Silence calls that fail.
		FailSilence int
		Created     int
	}
)

func New() *Fake {
	return &Fake{
		Channels:    map[string]string{},
		Messages:    map[string]*Sent{},
		Reactions:   map[string][]string{},
		Roles:       map[string]string{},
		Members:     map[string][]string{},
		Unreachable: map[string]bool{},
	}
}

func (f *Fake) nextRef(channelID string) db.MessageRef {
	f.seq++
	return db.MessageRef{ChannelID: channelID, MessageID: "m" + strconv.Itoa(f.seq)}
}

func (f *Fake) Send(_ context.Context, channelID, text string) (db.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := f.nextRef(channelID)
	f.Messages[ref.MessageID] = &Sent{Ref: ref, Text: text}
	return ref, nil
}

func (f *Fake) SendEmbed(_ context.Context, channelID string, embed platform.Embed) (db.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEmbeds {
		return db.MessageRef{}, fmt.Errorf("send embed: %w", errors.ErrDeliveryFailure)
	}
	ref := f.nextRef(channelID)
	f.Messages[ref.MessageID] = &Sent{Ref: ref, Embed: &embed}
	return ref, nil
}

func (f *Fake) EditEmbed(_ context.Context, ref db.MessageRef, embed platform.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.Messages[ref.MessageID]
	if !ok {
		return fmt.Errorf("edit %s: %w", ref.MessageID, errors.ErrNotFound)
	}
	msg.Embed = &embed
	return nil
}

func (f *Fake) SendDirect(_ context.Context, memberID, text string) (db.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unreachable[memberID] {
		return db.MessageRef{}, fmt.Errorf("dm %s: %w", memberID, errors.ErrDeliveryFailure)
	}
	ref := f.nextRef("dm_" + memberID)
	f.Messages[ref.MessageID] = &Sent{Ref: ref, Text: text, Direct: true}
	return ref, nil
}

func (f *Fake) Delete(_ context.Context, ref db.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Messages, ref.MessageID)
	f.Deleted = append(f.Deleted, ref)
	return nil
}

func (f *Fake) React(_ context.Context, ref db.MessageRef, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions[ref.MessageID] = append(f.Reactions[ref.MessageID], emoji)
	return nil
}

func (f *Fake) RemoveReaction(_ context.Context, ref db.MessageRef, emoji, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, ref.MessageID+":"+emoji+":"+memberID)
	return nil
}

func (f *Fake) ChannelByName(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.Channels[name]
	if !ok {
		return "", fmt.Errorf("channel %s: %w", name, errors.ErrNotFound)
	}
	return id, nil
}

func (f *Fake) RoleIDs(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make(map[string]string, len(f.Roles))
	for name, id := range f.Roles {
		res[name] = id
	}
	return res, nil
}

func (f *Fake) CreateRole(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Created++
	id := "role_" + name
	f.Roles[name] = id
	return id, nil
}

func (f *Fake) Silence(_ context.Context, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSilence > 0 {
		f.FailSilence--
		return fmt.Errorf("silence %s: %w", roleID, errors.ErrDeliveryFailure)
	}
	f.Silenced = append(f.Silenced, roleID)
	return nil
}

func (f *Fake) MemberRoles(_ context.Context, memberID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Members[memberID]...), nil
}

func (f *Fake) AddRole(_ context.Context, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if platform.HasRole(f.Members[memberID], roleID) {
		return nil
	}
	f.Members[memberID] = append(f.Members[memberID], roleID)
	return nil
}

func (f *Fake) RemoveRole(_ context.Context, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roles := f.Members[memberID][:0]
	for _, r := range f.Members[memberID] {
		if r != roleID {
			roles = append(roles, r)
		}
	}
	f.Members[memberID] = roles
	return nil
}

// Message returns a copy of the message with id, if it still exists.
func (f *Fake) Message(id string) (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.Messages[id]
	if !ok {
		return Sent{}, false
	}
	return *msg, true
}

// DirectTo returns the texts of every DM still held for memberID.
func (f *Fake) DirectTo(memberID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for i := 1; i <= f.seq; i++ {
		msg, ok := f.Messages["m"+strconv.Itoa(i)]
		if ok && msg.Direct && msg.Ref.ChannelID == "dm_"+memberID {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

// InChannel returns every message still held for channelID in send order.
func (f *Fake) InChannel(channelID string) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []Sent
	for i := 1; i <= f.seq; i++ {
		msg, ok := f.Messages["m"+strconv.Itoa(i)]
		if ok && msg.Ref.ChannelID == channelID {
			res = append(res, *msg)
		}
	}
	return res
}

func (f *Fake) MemberHasRole(memberID, roleID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return platform.HasRole(f.Members[memberID], roleID)
}

func (f *Fake) ReactionsOn(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Reactions[id]...)
}
