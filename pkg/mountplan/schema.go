package mountplan

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// PlanValidator validates compiled plans against the mount plan CUE schema.
// Construct one per invocation; the compiled schema is reused across calls.
type PlanValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewPlanValidator compiles the built-in plan schema.
func NewPlanValidator() (*PlanValidator, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(planSchema)
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile plan schema: %w", err)
	}
	schema := val.LookupPath(cue.ParsePath("#Plan"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("plan schema missing #Plan definition: %w", err)
	}
	return &PlanValidator{ctx: ctx, schema: schema}, nil
}

// Validate checks the structural shape of a plan. Invariant checks that CUE
// cannot express (per-list module id uniqueness) run first.
func (v *PlanValidator) Validate(p *Plan) error {
	if err := p.CheckInvariants(); err != nil {
		return err
	}

	dataVal := v.ctx.Encode(p)
	if err := dataVal.Err(); err != nil {
		return &ValidationError{Message: "failed to encode plan", Err: err}
	}

	unified := v.schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Message: "plan does not match schema", Err: err}
	}
	return nil
}

const planSchema = `
#ModuleRef: {
	module: string & !=""
	source?: string
	config?: {...}
}

#Plan: {
	session: {
		orchestrator: string & !=""
		context:      string & !=""
		orchestrator_source?: string
		context_source?:      string
	}
	orchestrator?: config: {...}
	context?:      config: {...}
	providers: [...#ModuleRef]
	tools: [...#ModuleRef]
	hooks: [...#ModuleRef]
	agents?: [string]: {...}
	provider?: string
	model?:    string
}
`
