// Package recordoutcome finalizes a recommendation with its terminal outcome,
// invalidates affected pool snapshots and sends outcome notifications.
package recordoutcome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/matching/history"
	"carematch/internal/models"
)

const TaskType = "record-outcome"

// EmailSender and SMSSender are what the handler needs from the notification
// clients; the AWS SES/SNS wrappers satisfy them.
type EmailSender interface {
	SendPlainEmail(ctx context.Context, from, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// CacheInvalidator drops pool snapshots after an outcome changes capacity.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, regions ...string) error
}

type Handler struct {
	config   *Config
	recorder *history.Recorder
	cache    CacheInvalidator
	email    EmailSender
	sms      SMSSender
	logger   logger.Logger
}

func NewHandler(config *Config, recorder *history.Recorder, cache CacheInvalidator, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		recorder: recorder,
		cache:    cache,
		email:    email,
		sms:      sms,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey": job.Key,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, errors.NewInvalidOutcomeError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.AssessmentID == "" || input.CandidateID == "" {
		return nil, errors.NewInvalidOutcomeError("assessmentId and candidateId are required")
	}

	rec := models.OutcomeRecord{
		Outcome:              models.MatchOutcome(strings.ToUpper(input.Outcome)),
		ActualCost:           input.ActualCost,
		SatisfactionScore:    input.SatisfactionScore,
		RecommendWillingness: input.RecommendWillingness,
		Feedback:             input.Feedback,
	}

	row, err := h.recorder.RecordOutcome(ctx, input.AssessmentID, input.CandidateID, rec)
	if err != nil {
		return nil, err
	}

	h.invalidateRegions(ctx, row)
	notified := h.notify(ctx, input, row)

	return &Output{
		HistoryID:   row.ID,
		Outcome:     string(row.Outcome),
		FinalizedAt: row.FinalizedAt.UTC().Format(time.RFC3339),
		Notified:    notified,
	}, nil
}

// Execute exposes the task logic to tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// invalidateRegions drops pool snapshots for the candidate's regions. A
// successful outcome changes the candidate's load, so cached pools are stale.
func (h *Handler) invalidateRegions(ctx context.Context, row *models.MatchingHistory) {
	if h.cache == nil || row.Outcome != models.OutcomeSuccessful {
		return
	}

	var snapshot struct {
		Regions []string `json:"regions"`
	}
	if err := json.Unmarshal(row.CandidateSnapshot, &snapshot); err != nil || len(snapshot.Regions) == 0 {
		return
	}

	if err := h.cache.Invalidate(ctx, snapshot.Regions...); err != nil {
		h.logger.WithError(err).Warn("pool cache invalidation failed", map[string]interface{}{
			"historyId": row.ID,
			"regions":   snapshot.Regions,
		})
	}
}

// notify sends outcome notifications. A send failure is logged but never
// voids the already-persisted outcome.
func (h *Handler) notify(ctx context.Context, input *Input, row *models.MatchingHistory) bool {
	subject := fmt.Sprintf("Care matching outcome: %s", row.Outcome)
	body := fmt.Sprintf("The recommendation for candidate %s was finalized as %s.", row.CandidateID, row.Outcome)

	notified := false
	if input.NotifyEmail != "" && h.email != nil {
		if err := h.email.SendPlainEmail(ctx, h.config.FromEmail, input.NotifyEmail, subject, body); err != nil {
			h.logger.WithError(err).Warn("outcome email failed", map[string]interface{}{
				"historyId": row.ID,
			})
		} else {
			notified = true
		}
	}
	if input.NotifyPhone != "" && h.sms != nil {
		if err := h.sms.SendSMS(ctx, input.NotifyPhone, body); err != nil {
			h.logger.WithError(err).Warn("outcome sms failed", map[string]interface{}{
				"historyId": row.ID,
			})
		} else {
			notified = true
		}
	}
	return notified
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr, ok := err.(*errors.StandardError)
	if !ok {
		stdErr = errors.NewHistoryWriteFailedError(err)
	}
	bpmnErr := errors.ConvertToBPMNError(stdErr)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
	})

	if _, sendErr := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		Send(context.Background()); sendErr != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": sendErr,
		})
	}
}
