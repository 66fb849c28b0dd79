// Package matchcandidates is the worker behind the match-candidates task: it
// runs the matching pipeline for one assessment and returns the ranked page.
package matchcandidates

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"

	"carematch/internal/common/errors"
	"carematch/internal/common/logger"
	"carematch/internal/matching"
)

const TaskType = "match-candidates"

const inputSchema = `{
	"type": "object",
	"properties": {
		"assessmentId": {"type": "string", "minLength": 1},
		"strategy": {"type": "string"},
		"preference": {
			"type": "object",
			"properties": {
				"maxResults": {"type": "integer", "minimum": 1},
				"minSatisfaction": {"type": "number", "minimum": 0, "maximum": 5}
			},
			"required": ["maxResults"]
		}
	},
	"required": ["assessmentId", "preference"]
}`

type Handler struct {
	config *Config
	engine *matching.Engine
	logger logger.Logger
}

func NewHandler(config *Config, engine *matching.Engine, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	if err := validatePayload(job.Variables); err != nil {
		h.failJob(client, job, errors.NewInvalidPreferenceError(err.Error()))
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, errors.NewInvalidPreferenceError(fmt.Sprintf("parse input: %v", err)))
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
	strategy := input.Strategy
	if strategy == "" {
		strategy = h.config.DefaultStrategy
	}

	pref := input.Preference
	if pref.MaxResults > h.config.MaxResultsCap {
		pref.MaxResults = h.config.MaxResultsCap
	}

	results, err := h.engine.Match(ctx, input.AssessmentID, pref, strategy)
	if err != nil {
		return nil, err
	}

	return &Output{
		Results:  results,
		Count:    len(results),
		Strategy: strategy,
	}, nil
}

// Execute exposes the task logic to tests and to the simulation tooling.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func validatePayload(variables string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(inputSchema),
		gojsonschema.NewStringLoader(variables),
	)
	if err != nil {
		return fmt.Errorf("validate input: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("input validation failed: %v", errs)
	}
	return nil
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
	bpmnErr := errors.ConvertToBPMNError(normalizeError(err))

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"retries":      bpmnErr.Retries,
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

func normalizeError(err error) *errors.StandardError {
	if stdErr, ok := err.(*errors.StandardError); ok {
		return stdErr
	}
	return errors.NewCandidateQueryFailedError(err)
}
