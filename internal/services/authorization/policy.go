package authorization

import (
	"fmt"

	"github.com/asakaida/commerce-api/internal/entities"
	"github.com/google/cel-go/cel"
)

// DefaultCustomerVisibility limits customer principals to their own data
const DefaultCustomerVisibility = `resource.table in ["customer", "customer_address", "order", "order_detail"]`

// Policy evaluates per-principal visibility rules written in CEL.
// Rules are compiled once; a principal kind without a rule sees everything.
//
// Available variables:
//
//	resource.table      logical table name
//	resource.operation  "read" or "write"
//	subject.kind        "member" or "customer"
//	subject.client_id   OAuth2 client identifier
//	subject.scopes      granted scopes
type Policy struct {
	programs map[entities.PrincipalKind]cel.Program
}

// NewPolicy compiles the visibility rules keyed by principal kind
func NewPolicy(rules map[entities.PrincipalKind]string) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("subject", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	p := &Policy{programs: make(map[entities.PrincipalKind]cel.Program, len(rules))}
	for kind, expression := range rules {
		ast, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile %s rule: %w", kind, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("%s rule must return boolean, got: %s", kind, ast.OutputType())
		}

		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL program: %w", err)
		}
		p.programs[kind] = program
	}

	return p, nil
}

// NewDefaultPolicy returns the store policy: customers read only their own tables
func NewDefaultPolicy() (*Policy, error) {
	return NewPolicy(map[entities.PrincipalKind]string{
		entities.PrincipalCustomer: DefaultCustomerVisibility,
	})
}

// Allows reports whether the token's principal may perform operation on table
func (p *Policy) Allows(token *entities.AccessToken, table, operation string) (bool, error) {
	program, ok := p.programs[token.Kind()]
	if !ok {
		return true, nil
	}

	scopes := make([]interface{}, len(token.Scopes))
	for i, s := range token.Scopes {
		scopes[i] = s
	}

	result, _, err := program.Eval(map[string]interface{}{
		"resource": map[string]interface{}{
			"table":     table,
			"operation": operation,
		},
		"subject": map[string]interface{}{
			"kind":      string(token.Kind()),
			"client_id": token.ClientIdentifier,
			"scopes":    scopes,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %s rule: %w", token.Kind(), err)
	}

	allowed, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%s rule did not evaluate to boolean, got: %T", token.Kind(), result.Value())
	}
	return allowed, nil
}
