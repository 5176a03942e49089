// Command roster-solver is the CLI entrypoint: it wires the input document
// through slot expansion, candidate filtering, model construction, the hard
// rule pack, the MIP backend, and the post-solve validator, then writes the
// result through the SDK's own output envelope, exactly as the rest of this
// corpus's nextmv templates do.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nextmv-io/sdk"
	"github.com/nextmv-io/sdk/mip"
	"github.com/nextmv-io/sdk/run"
	"github.com/nextmv-io/sdk/run/schema"
	"github.com/nextmv-io/sdk/run/statistics"
	"go.uber.org/zap"

	"example.com/your_project/vso-roster-solver/internal/auditstore"
	"example.com/your_project/vso-roster-solver/internal/candidates"
	"example.com/your_project/vso-roster-solver/internal/hardrules"
	"example.com/your_project/vso-roster-solver/internal/inputdoc"
	"example.com/your_project/vso-roster-solver/internal/inputhash"
	"example.com/your_project/vso-roster-solver/internal/model"
	"example.com/your_project/vso-roster-solver/internal/output"
	"example.com/your_project/vso-roster-solver/internal/slots"
	"example.com/your_project/vso-roster-solver/internal/solve"
	"example.com/your_project/vso-roster-solver/internal/validate"
)

const (
	solverVersion  = "vso-roster-solver/0.1.0"
	minTimeLimit   = 1 * time.Second
	maxTimeLimit   = 120 * time.Second
	auditStorePath = "roster-solver-audit.db"
)

func main() {
	err := run.CLI(solver).Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}
}

// options are the CLI-tunable solve parameters; the SDK's flag filler turns
// this into -solve.limits.duration and friends, the same shape the rest of
// the pack's templates use.
type options struct {
	Solve mip.SolveOptions `json:"solve,omitempty"`
}

func solver(ctx context.Context, input inputdoc.Document, opts options) (schema.Output, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return schema.Output{}, fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	startedAt := time.Now()
	runID := uuid.NewString()

	if err := inputdoc.Validate(&input); err != nil {
		return schema.Output{}, fmt.Errorf("invalid input document: %w", err)
	}

	rosterCtx, err := input.ToContext()
	if err != nil {
		return schema.Output{}, fmt.Errorf("convert input document: %w", err)
	}

	if d := opts.Solve.Limits.Duration; d > 0 {
		rosterCtx.TimeLimit = d
	}
	switch {
	case rosterCtx.TimeLimit < minTimeLimit:
		rosterCtx.TimeLimit = minTimeLimit
	case rosterCtx.TimeLimit > maxTimeLimit:
		rosterCtx.TimeLimit = maxTimeLimit
	}

	rawInput, err := json.Marshal(input)
	if err != nil {
		return schema.Output{}, fmt.Errorf("marshal input for hashing: %w", err)
	}
	hash, err := inputhash.Compute(rawInput)
	if err != nil {
		return schema.Output{}, fmt.Errorf("compute input hash: %w", err)
	}

	slotList := slots.Build(rosterCtx)
	logger.Info("slots built", zap.Int("count", len(slotList)))

	idx := candidates.Build(slotList, rosterCtx.Employees)

	m, vars := model.Build(rosterCtx, idx, slotList)
	hardrules.Apply(m, rosterCtx, slotList, idx, vars)
	logger.Info("model built",
		zap.Int("slots", len(slotList)),
		zap.Int("employees", len(rosterCtx.Employees)))

	result, solveErr := solve.Run(rosterCtx, m, vars, slotList)
	if solveErr != nil {
		logger.Warn("solve backend returned an error", zap.Error(solveErr))
	}

	report := validate.Run(rosterCtx, result.Assignments)
	logger.Info("validated solution",
		zap.Int("hard_violations", report.HardCount),
		zap.Int("soft_violations", report.SoftCount),
		zap.Int("unassigned_slots", len(report.UnassignedSlots)))

	ended := time.Now()

	warnings := []string{}
	if solveErr != nil {
		warnings = append(warnings, solveErr.Error())
	}

	doc := output.Build(rosterCtx, result, report, output.Params{
		RunID:             runID,
		SolverVersion:     solverVersion,
		StartedAt:         startedAt,
		Ended:             ended,
		PlanningReference: rosterCtx.PlanningReference,
		InputHash:         hash,
		Warnings:          warnings,
	})

	recordRun(ctx, logger, doc, report, len(slotList), startedAt, ended, runID, hash, rosterCtx.PlanningReference)

	return formatOutput(doc), nil
}

// recordRun appends this invocation to the local run-history ledger. A
// failure to open or write the ledger is logged and otherwise swallowed:
// the audit trail is diagnostic, never load-bearing for the solve itself.
func recordRun(
	ctx context.Context,
	logger *zap.Logger,
	doc output.Document,
	report validate.Report,
	totalSlots int,
	startedAt, ended time.Time,
	runID, inputHash, planningReference string,
) {
	store, err := auditstore.Open(ctx, auditStorePath)
	if err != nil {
		logger.Warn("audit store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	err = store.Record(ctx, auditstore.Run{
		RunID:             runID,
		PlanningReference: planningReference,
		InputHash:         inputHash,
		Status:            doc.SolverRun.Status,
		HardViolations:    report.HardCount,
		SoftPenalty:       report.SoftScoreBook.TotalPenalty,
		UnassignedSlots:   len(report.UnassignedSlots),
		TotalSlots:        totalSlots,
		StartedAt:         startedAt,
		EndedAt:           ended,
		DurationSeconds:   doc.SolverRun.DurationSeconds,
		SolverVersion:     solverVersion,
	})
	if err != nil {
		logger.Warn("failed to record run in audit store", zap.Error(err))
	}
}

// formatOutput wraps the domain document in the SDK's own output envelope,
// the way order-fulfillment-gosdk's hand-written formatter does for a
// solution shape mip.Format itself has no model of.
func formatOutput(doc output.Document) schema.Output {
	o := schema.Output{}
	o.Version = schema.Version{Sdk: sdk.VERSION}

	duration := doc.SolverRun.DurationSeconds
	value := statistics.Float64(doc.Score.Overall)

	run := statistics.Run{Duration: &duration}
	result := statistics.Result{
		Duration: &duration,
		Value:    &value,
		Custom: map[string]any{
			"hardViolations":  doc.Score.Hard,
			"softPenalty":     doc.Score.Soft,
			"unassignedSlots": doc.ScoreBreakdown.UnassignedSlots.Count,
			"totalSlots":      doc.ScoreBreakdown.UnassignedSlots.Total,
		},
	}

	stats := statistics.NewStatistics()
	stats.Run = &run
	stats.Result = &result
	o.Statistics = stats

	o.Solutions = append(o.Solutions, doc)

	return o
}
