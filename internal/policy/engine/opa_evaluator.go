package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"organizer-team/backend/internal/policy/repository"
)

// PolicyPackage is the Rego package every organizer policy must declare.
const PolicyPackage = "data.organizer.team"

const denyQuery = PolicyPackage + ".deny"

// Built-in module evaluated for every organizer. Organizer policies add further deny rules to the same package.
const defaultRegoPolicy = `package organizer.team

read_only if input.capability == "view_team"

read_only if input.capability == "view_member"

deny contains msg if {
	input.organizer.status == "suspended"
	not input.actor.platform_admin
	not read_only
	msg := "organizer is suspended"
}
`

// OPAEvaluator evaluates organizer veto policies using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
	logger     *zap.Logger
}

// NewOPAEvaluator returns an OPA-based policy evaluator. A nil logger is replaced by a no-op logger.
func NewOPAEvaluator(policyRepo repository.Repository, logger *zap.Logger) *OPAEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OPAEvaluator{policyRepo: policyRepo, logger: logger}
}

// HealthCheck verifies that the in-process Rego engine can compile and evaluate the default policy.
// Does not call the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"default.rego": defaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	rs, err := rego.New(
		rego.Query(denyQuery),
		rego.Compiler(compiler),
		rego.Input(Input{Capability: "view_team", OrganizerState: "active"}.toMap()),
	).Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// Validate checks that rules parse, declare the organizer.team package and compile alongside the default policy.
func (e *OPAEvaluator) Validate(rules string) error {
	mod, err := ast.ParseModule("policy.rego", rules)
	if err != nil {
		return fmt.Errorf("parse policy: %w", err)
	}
	if mod == nil {
		return fmt.Errorf("policy is empty")
	}
	if got := mod.Package.Path.String(); got != PolicyPackage {
		return fmt.Errorf("policy package is %s, want %s", got, PolicyPackage)
	}
	if _, err := ast.CompileModules(map[string]string{"default.rego": defaultRegoPolicy, "policy.rego": rules}); err != nil {
		return fmt.Errorf("compile policy: %w", err)
	}
	return nil
}

// Violations evaluates the default policy plus the organizer's enabled policies and returns
// the sorted deny messages. Organizer policies that fail to load or compile are logged and
// skipped; the default policy is always applied.
func (e *OPAEvaluator) Violations(ctx context.Context, in Input) ([]string, error) {
	modules := map[string]string{"default.rego": defaultRegoPolicy}
	if e.policyRepo != nil && in.OrganizerID != "" {
		enabled, err := e.policyRepo.GetEnabledByOrganizer(ctx, in.OrganizerID)
		if err != nil {
			e.logger.Warn("policy: failed to load organizer policies", zap.String("organizer_id", in.OrganizerID), zap.Error(err))
		}
		for i, p := range enabled {
			if p.Enabled && p.Rules != "" {
				modules[fmt.Sprintf("policy_%d.rego", i)] = p.Rules
			}
		}
	}

	compiler, err := ast.CompileModules(modules)
	if err != nil && len(modules) > 1 {
		e.logger.Warn("policy: organizer policies failed to compile, using default", zap.String("organizer_id", in.OrganizerID), zap.Error(err))
		compiler, err = ast.CompileModules(map[string]string{"default.rego": defaultRegoPolicy})
	}
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}

	rs, err := rego.New(
		rego.Query(denyQuery),
		rego.Compiler(compiler),
		rego.Input(in.toMap()),
	).Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("eval policies: %w", err)
	}
	return denyMessages(rs), nil
}

func denyMessages(rs rego.ResultSet) []string {
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil
	}
	values, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(v))
		}
	}
	sort.Strings(out)
	return out
}
