package eligibility

import (
	"fmt"

	"github.com/OneOfOne/xxhash"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
)

// State is the persisted view the gate decides on.
type State struct {
	Follows     db.FollowGraph
	Engagements db.EngagementLog
}

// EngagementKey identifies a (member, target) pair in the engagement log.
func EngagementKey(member, target string) string {
	return fmt.Sprintf("%016x", xxhash.ChecksumString64(member+"|"+target))
}

func target(req *db.Request, t db.TaskType) string {
	if t == db.TaskFollow {
		return "requester:" + req.RequesterID
	}
	return req.Link
}

type Gate struct{}

// Check applies self-dealing, mutual-follow and lifetime dedup rules in that order.
func (Gate) Check(state State, member string, req *db.Request, t db.TaskType) error {
	if member == req.RequesterID {
		return errors.ErrSelfDealing
	}
	if t != db.TaskFollow && !state.Follows[db.FollowKey(member, req.RequesterID)] {
		return errors.ErrFollowRequired
	}
	if state.Engagements[EngagementKey(member, target(req, t))][t] {
		return errors.ErrAlreadyEngaged
	}
	if t == db.TaskFollow && state.Follows[db.FollowKey(member, req.RequesterID)] {
		return errors.ErrAlreadyEngaged
	}
	return nil
}

// Record marks the engagement as consumed for the lifetime of the log.
func (Gate) Record(state State, member string, req *db.Request, t db.TaskType) {
	key := EngagementKey(member, target(req, t))
	if state.Engagements[key] == nil {
		state.Engagements[key] = map[db.TaskType]bool{}
	}
	state.Engagements[key][t] = true
}

// Forget undoes Record for a claim that never reached verification.
func (Gate) Forget(state State, member string, req *db.Request, t db.TaskType) {
	key := EngagementKey(member, target(req, t))
	delete(state.Engagements[key], t)
	if len(state.Engagements[key]) == 0 {
		delete(state.Engagements, key)
	}
}
