// Package simulatematching runs seeded what-if matching over synthetic data,
// used for capacity planning and weight calibration.
package simulatematching

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/matching"
)

const TaskType = "simulate-matching"

type Handler struct {
	config    *Config
	simulator *matching.Simulator
	logger    logger.Logger
}

func NewHandler(config *Config, simulator *matching.Simulator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		simulator: simulator,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey": job.Key,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, errors.NewSimulationFailedError(fmt.Errorf("parse input: %w", err)))
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
	if input.Candidates > h.config.MaxCandidates {
		return nil, errors.NewSimulationFailedError(fmt.Errorf("candidates %d exceeds limit %d", input.Candidates, h.config.MaxCandidates))
	}
	if input.Assessments > h.config.MaxAssessments {
		return nil, errors.NewSimulationFailedError(fmt.Errorf("assessments %d exceeds limit %d", input.Assessments, h.config.MaxAssessments))
	}

	kind, err := matching.ParseStrategy(input.Strategy)
	if err != nil {
		return nil, err
	}

	result, err := h.simulator.Run(ctx, matching.SimulationParams{
		Candidates:  input.Candidates,
		Assessments: input.Assessments,
		Seed:        input.Seed,
		Strategy:    kind,
		MaxResults:  input.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	return &Output{SimulationResult: *result}, nil
}

// Execute exposes the task logic to tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
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
		stdErr = errors.NewSimulationFailedError(err)
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
