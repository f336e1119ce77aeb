package promotion

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Audience is the variable set exposed to audience expressions, e.g.
// `is_member && level == "gold"` or `total_points >= 500`.
type Audience struct {
	IsMember        bool
	Level           string
	TotalPoints     int64
	AvailablePoints int64
	CommissionTier  string
	DaysSinceJoined int64
}

func (a Audience) vars() map[string]any {
	return map[string]any{
		"is_member":         a.IsMember,
		"level":             a.Level,
		"total_points":      a.TotalPoints,
		"available_points":  a.AvailablePoints,
		"commission_tier":   a.CommissionTier,
		"days_since_joined": a.DaysSinceJoined,
	}
}

// Evaluator compiles and caches audience expressions.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("is_member", cel.BoolType),
		cel.Variable("level", cel.StringType),
		cel.Variable("total_points", cel.IntType),
		cel.Variable("available_points", cel.IntType),
		cel.Variable("commission_tier", cel.StringType),
		cel.Variable("days_since_joined", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate runs an audience expression. An empty expression matches everyone.
// The expression must produce a boolean.
func (e *Evaluator) Evaluate(expression string, audience Audience) (bool, error) {
	if expression == "" {
		return true, nil
	}

	prg, err := e.program(expression)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(audience.vars())
	if err != nil {
		return false, err
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("audience expression %q is not boolean", expression)
	}
	return result, nil
}

func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = prg
	e.mu.Unlock()

	return prg, nil
}
