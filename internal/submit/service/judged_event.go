package service

import (
	"context"
	"encoding/json"

	"codearena/internal/common/mq"
	"codearena/internal/judge/model"
	"codearena/internal/submit/repository"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

const headerEventType = "x-event-type"

// EventTypeJudged marks submission.judged messages.
const EventTypeJudged = "submission.judged"

// publishJudged emits the judged event. Failures are logged and dropped: the
// submission is already persisted and its verdict stands.
func (s *SubmitService) publishJudged(ctx context.Context, problem *model.Problem, submission *repository.Submission) {
	if s.producer == nil {
		return
	}
	event := model.SubmissionJudgedEvent{
		SubmissionID: submission.SubmissionID,
		ProblemID:    submission.ProblemID,
		ProblemSlug:  problem.Slug,
		UserID:       submission.UserID,
		Language:     submission.Language,
		Status:       model.Verdict(submission.Status),
		RuntimeMs:    submission.RuntimeMs,
		SourceKey:    submission.SourceKey,
		CreatedAt:    submission.CreatedAt.Unix(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.Warn(ctx, "encode judged event failed", zap.Error(err))
		return
	}
	message := mq.NewMessage(body)
	message.ID = submission.SubmissionID
	message.SetHeader(headerEventType, EventTypeJudged)

	ctxMQ := withTimeout(ctx, s.timeouts.MQ)
	defer ctxMQ.cancel()
	if err := s.producer.Publish(ctxMQ.ctx, s.eventTopic, message); err != nil {
		logger.Warn(ctx, "publish judged event failed",
			zap.String("submission_id", submission.SubmissionID),
			zap.String("topic", s.eventTopic),
			zap.Error(err),
		)
	}
}
