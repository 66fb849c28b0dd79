// Package matchingreport computes success-rate, rank-accuracy and trend
// reports over the matching history ledger.
package matchingreport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/matching/history"
)

const TaskType = "matching-report"

type Handler struct {
	config    *Config
	analytics *history.Analytics
	logger    logger.Logger
}

func NewHandler(config *Config, analytics *history.Analytics, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		analytics: analytics,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey": job.Key,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, errors.NewAnalyticsQueryFailedError(fmt.Errorf("parse input: %w", err)))
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
	from, err := parseDate(input.From)
	if err != nil {
		return nil, errors.NewAnalyticsQueryFailedError(fmt.Errorf("from: %w", err))
	}
	to, err := parseDate(input.To)
	if err != nil {
		return nil, errors.NewAnalyticsQueryFailedError(fmt.Errorf("to: %w", err))
	}
	if to.Sub(from) > time.Duration(h.config.MaxRangeDays)*24*time.Hour {
		return nil, errors.NewAnalyticsQueryFailedError(fmt.Errorf("range exceeds %d days", h.config.MaxRangeDays))
	}

	granularity := history.TrendGranularity(input.Granularity)
	if granularity == "" {
		granularity = history.TrendDaily
	}

	report, err := h.analytics.BuildReport(ctx, from, to, granularity)
	if err != nil {
		return nil, err
	}

	return &Output{Report: *report}, nil
}

// Execute exposes the task logic to tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
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
		stdErr = errors.NewAnalyticsQueryFailedError(err)
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
