package pipeline

import (
	"context"
	"strings"

	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
)

// Submitter is the external submission interface the planner drives.
//
// SubmitStage submits one stage and returns the scheduler job identifiers
// it produced; an empty list is valid (dry runs, per-chunk failures).
// SubmitCleanup schedules removal of the given paths gated on dependency.
// The submitter package provides the production implementation.
type Submitter interface {
	SubmitStage(ctx context.Context, stage Stage, dependency string) ([]string, error)
	SubmitCleanup(ctx context.Context, stageName string, paths []string, dependency string) (string, error)
}

// Cleanup records one derived cleanup submission.
type Cleanup struct {
	// Stage is the stage whose intermediate outputs are removed.
	Stage string

	// Paths are the files or directories deleted.
	Paths []string

	// Dependents are the stages whose completion gates the removal.
	Dependents []string

	// Dependency is the expression handed to the scheduler.
	Dependency string

	// JobID is the cleanup job's identifier, empty in dry runs.
	JobID string
}

// Plan is the outcome of one pipeline expansion: the job identifiers each
// stage produced, in submission order, plus the cleanup jobs derived from
// stage declarations.
type Plan struct {
	// Jobs maps stage names to the job identifiers they produced.
	Jobs map[string][]string

	// Order lists stage names in submission order.
	Order []string

	// Cleanups are the cleanup submissions made after all stages went out.
	Cleanups []Cleanup
}

// Planner expands pipelines into submissions.
type Planner struct {
	submitter Submitter
}

// NewPlanner creates a Planner that submits through the given Submitter.
func NewPlanner(submitter Submitter) *Planner {
	return &Planner{submitter: submitter}
}

// Run submits every stage of the pipeline in declaration order, then
// schedules cleanup jobs for stages that declared cleanup paths.
//
// A stage's dependency expression is built from the job identifiers already
// recorded for its depends_on entries, joined as afterok (run only after
// all succeed); dependencies on stages not yet submitted contribute
// nothing. Cleanup for a stage is scheduled only when at least one other
// stage lists it directly in depends_on; the cleanup waits on those direct
// dependents' identifiers. Stages with cleanup paths but no direct
// dependent are skipped with a logged reason.
//
// A stage submission error aborts the run; per-chunk submission failures
// inside a stage do not reach here (the submitter absorbs them).
func (p *Planner) Run(ctx context.Context, pl *Pipeline) (*Plan, error) {
	log := ctxlog.FromContext(ctx)

	plan := &Plan{Jobs: make(map[string][]string)}
	cleanupPaths := make(map[string][]string)

	for _, stage := range pl.Stages {
		log.Info("submitting pipeline stage", "stage", stage.Name)

		dependency := dependencyExpr(gatherJobs(plan.Jobs, stage.DependsOn))
		jobIDs, err := p.submitter.SubmitStage(ctx, stage, dependency)
		if err != nil {
			return nil, err
		}

		plan.Jobs[stage.Name] = jobIDs
		plan.Order = append(plan.Order, stage.Name)

		if len(stage.Cleanup) > 0 {
			cleanupPaths[stage.Name] = stage.Cleanup
			log.Info("cleanup scheduled", "stage", stage.Name,
				"paths", strings.Join(stage.Cleanup, ", "))
		}
	}

	for _, name := range plan.Order {
		paths, ok := cleanupPaths[name]
		if !ok {
			continue
		}

		dependents := directDependents(pl, name)
		if len(dependents) == 0 {
			log.Info("skipping cleanup, no dependent stages", "stage", name)
			continue
		}

		depJobs := gatherJobs(plan.Jobs, dependents)
		if len(depJobs) == 0 {
			continue
		}

		dependency := dependencyExpr(depJobs)
		jobID, err := p.submitter.SubmitCleanup(ctx, name, paths, dependency)
		if err != nil {
			// Cleanup is best effort; the data jobs are already in flight.
			log.Warn("cleanup submission failed", "stage", name, "error", err)
			continue
		}

		plan.Cleanups = append(plan.Cleanups, Cleanup{
			Stage:      name,
			Paths:      paths,
			Dependents: dependents,
			Dependency: dependency,
			JobID:      jobID,
		})
	}

	return plan, nil
}

// directDependents returns the names of stages that list name directly in
// their depends_on. Transitive dependents are deliberately not considered.
func directDependents(pl *Pipeline, name string) []string {
	var dependents []string
	for _, stage := range pl.Stages {
		for _, dep := range stage.DependsOn {
			if dep == name {
				dependents = append(dependents, stage.Name)
				break
			}
		}
	}
	return dependents
}

// gatherJobs collects the job identifiers recorded for the given stage
// names, in order. Unknown names contribute nothing.
func gatherJobs(jobs map[string][]string, names []string) []string {
	var ids []string
	for _, name := range names {
		ids = append(ids, jobs[name]...)
	}
	return ids
}

// dependencyExpr builds the scheduler's "only after all succeed"
// conjunction, or the empty string when there is nothing to wait on.
func dependencyExpr(jobIDs []string) string {
	if len(jobIDs) == 0 {
		return ""
	}
	return "afterok:" + strings.Join(jobIDs, ":")
}
