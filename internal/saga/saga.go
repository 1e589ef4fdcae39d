// Package saga provides a small orchestrator for composite operations that
// must not leave partial state behind: each step carries a compensating
// action, and a failure unwinds the executed steps in reverse order.
package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step is a single step with execute and compensate actions. Compensate may
// be nil when the step has no side effect worth undoing.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs a sequence of steps with compensating transactions on failure.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// New creates a saga orchestrator.
func New(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		steps:  make([]Step, 0),
		logger: logger,
	}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step Step) {
	s.steps = append(s.steps, step)
}

// Execute runs all steps in order. On failure it compensates the executed
// steps in reverse order and returns the original error. Compensation errors
// are logged but do not mask the step failure.
func (s *Saga) Execute(ctx context.Context) error {
	s.logger.Debug("saga started", zap.String("saga", s.name))

	executed := make([]Step, 0, len(s.steps))

	for _, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			s.logger.Warn("saga step failed, compensating",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)

			for i := len(executed) - 1; i >= 0; i-- {
				comp := executed[i]
				if comp.Compensate == nil {
					continue
				}
				if compErr := comp.Compensate(ctx); compErr != nil {
					s.logger.Error("compensation failed",
						zap.String("saga", s.name),
						zap.String("step", comp.Name),
						zap.Error(compErr),
					)
				}
			}

			return fmt.Errorf("saga %q failed at step %q: %w", s.name, step.Name, err)
		}
		executed = append(executed, step)
	}

	s.logger.Debug("saga completed", zap.String("saga", s.name))
	return nil
}
