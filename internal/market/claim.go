package market

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iamwavecut/pasarbot/internal/db"
	"github.com/iamwavecut/pasarbot/internal/errors"
	"github.com/iamwavecut/pasarbot/internal/eligibility"
	"github.com/iamwavecut/pasarbot/internal/ledger"
	"github.com/iamwavecut/pasarbot/internal/observability"
	"github.com/iamwavecut/pasarbot/internal/platform"
	"github.com/iamwavecut/pasarbot/internal/verification"
)

type claimState struct {
	requests db.Requests
	state    eligibility.State
}

func loadClaimState(tx db.Tx) (*claimState, error) {
	cs := &claimState{}
	if err := tx.Load(db.DocRequests, &cs.requests); err != nil {
		return nil, err
	}
	if err := tx.Load(db.DocFollows, &cs.state.Follows); err != nil {
		return nil, err
	}
	if err := tx.Load(db.DocEngagementLog, &cs.state.Engagements); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *claimState) save(tx db.Tx) error {
	if err := tx.Save(db.DocRequests, cs.requests); err != nil {
		return err
	}
	return tx.Save(db.DocEngagementLog, cs.state.Engagements)
}

func appendOnce(list []string, member string) []string {
	for _, m := range list {
		if m == member {
			return list
		}
	}
	return append(list, member)
}

func removeMember(list []string, member string) []string {
	res := list[:0]
	for _, m := range list {
		if m != member {
			res = append(res, m)
		}
	}
	return res
}

// ClaimEngagement records a like, retweet or follow claimed through a display reaction.
func (s *Service) ClaimEngagement(ctx context.Context, member string, display db.MessageRef, emblem string) error {
	taskType, ok := platform.TaskForEmblem(emblem)
	if !ok {
		return ErrUnknownEmblem
	}
	return s.claim(ctx, member, display, taskType, func(cs *claimState, req *db.Request) (verification.Claim, error) {
		switch taskType {
		case db.TaskLike:
			req.LikedBy = appendOnce(req.LikedBy, member)
		case db.TaskRetweet:
			req.RetweetedBy = appendOnce(req.RetweetedBy, member)
		case db.TaskFollow:
			req.FollowedBy = appendOnce(req.FollowedBy, member)
		}
		price, _ := ledger.Price(taskType)
		return verification.Claim{
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			SellerID:    member,
			TaskType:    taskType,
			Price:       price,
			Link:        req.Link,
		}, nil
	})
}

// ClaimComment assigns the number-th open comment task (1-based) to member.
func (s *Service) ClaimComment(ctx context.Context, member string, display db.MessageRef, number int) error {
	return s.claim(ctx, member, display, db.TaskComment, func(cs *claimState, req *db.Request) (verification.Claim, error) {
		var open []int
		for idx, task := range req.Tasks {
			if task.Type == db.TaskComment && task.Status == db.TaskOpen {
				open = append(open, idx)
			}
		}
		if len(open) == 0 {
			return verification.Claim{}, ErrNoOpenComments
		}
		if number < 1 || number > len(open) {
			return verification.Claim{}, &TaskNumberError{Open: len(open)}
		}
		idx := open[number-1]
		task := &req.Tasks[idx]
		assignee := member
		task.Status = db.TaskClaimed
		task.AssignedTo = &assignee
		return verification.Claim{
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			SellerID:    member,
			TaskType:    db.TaskComment,
			TaskIdx:     &idx,
			Price:       task.Price,
			Link:        req.Link,
			CommentText: task.Text,
		}, nil
	})
}

func (s *Service) claim(
	ctx context.Context,
	member string,
	display db.MessageRef,
	taskType db.TaskType,
	mutate func(cs *claimState, req *db.Request) (verification.Claim, error),
) error {
	ctx, span := observability.Tracer().Start(ctx, "market.claim")
	defer span.End()
	span.SetAttributes(attribute.String("claim.task", string(taskType)), attribute.String("claim.member", member))

	var claim verification.Claim
	err := s.store.Transact(ctx, func(tx db.Tx) error {
		cs, err := loadClaimState(tx)
		if err != nil {
			return err
		}
		req, ok := cs.requests.FindByDisplay(display)
		if !ok {
			return ErrRequestNotFound
		}
		if err := s.gate.Check(cs.state, member, req, taskType); err != nil {
			return err
		}
		if claim, err = mutate(cs, req); err != nil {
			return err
		}
		s.gate.Record(cs.state, member, req, taskType)
		return cs.save(tx)
	})
	if err != nil {
		result := "error"
		if reason := errors.Reason(err); reason != "" {
			result = reason
		}
		observability.RecordClaim(string(taskType), result)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("claim %s: %w", taskType, err)
	}
	observability.RecordClaim(string(taskType), "accepted")

	if err := s.verifier.Open(ctx, claim); err != nil {
		if rerr := s.releaseClaim(ctx, claim); rerr != nil {
			s.getLogEntry().WithField("request", claim.RequestID).WithField("error", rerr.Error()).Error("cant release unverified claim")
		}
		return fmt.Errorf("open verification: %w", err)
	}
	s.Refresh(ctx, claim.RequestID)
	return nil
}

// releaseClaim reverts a committed claim whose verification could not be stored.
func (s *Service) releaseClaim(ctx context.Context, claim verification.Claim) error {
	return s.store.Transact(ctx, func(tx db.Tx) error {
		cs, err := loadClaimState(tx)
		if err != nil {
			return err
		}
		req, ok := cs.requests[claim.RequestID]
		if !ok {
			return nil
		}
		switch claim.TaskType {
		case db.TaskLike:
			req.LikedBy = removeMember(req.LikedBy, claim.SellerID)
		case db.TaskRetweet:
			req.RetweetedBy = removeMember(req.RetweetedBy, claim.SellerID)
		case db.TaskFollow:
			req.FollowedBy = removeMember(req.FollowedBy, claim.SellerID)
		case db.TaskComment:
			if claim.TaskIdx != nil && *claim.TaskIdx < len(req.Tasks) {
				task := &req.Tasks[*claim.TaskIdx]
				if task.Status == db.TaskClaimed && task.AssignedTo != nil && *task.AssignedTo == claim.SellerID {
					task.Status = db.TaskOpen
					task.AssignedTo = nil
				}
			}
		}
		s.gate.Forget(cs.state, claim.SellerID, req, claim.TaskType)
		return cs.save(tx)
	})
}
