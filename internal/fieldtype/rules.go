package fieldtype

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// ruleCache compiles field rules once per (field type, expression).
type ruleCache struct {
	programs sync.Map
}

func ruleKey(kind, expr string) string {
	return kind + "\x00" + expr
}

func (c *ruleCache) loadOrCompile(kind, expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}
	key := ruleKey(kind, expr)
	if cached, ok := c.programs.Load(key); ok {
		return cached.(cel.Program), nil
	}
	env, err := cel.NewEnv(cel.Variable("value", celType(kind)))
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.New("rule must evaluate to a boolean")
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	c.programs.Store(key, program)
	return program, nil
}

// compile checks expr against kind for schema writes.
func (c *ruleCache) compile(kind, expr string) error {
	if _, err := c.loadOrCompile(kind, expr); err != nil {
		return fmt.Errorf("%w: rule: %v", types.ErrInvalidOptions, err)
	}
	return nil
}

// eval runs expr against a decoded value.
func (c *ruleCache) eval(kind, expr string, value any) (bool, error) {
	program, err := c.loadOrCompile(kind, expr)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"value": value})
	if err != nil {
		return false, err
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, errors.New("rule did not return a boolean")
	}
	return ok, nil
}

func celType(kind string) *cel.Type {
	switch kind {
	case types.FieldTypeNumber:
		return cel.DoubleType
	case types.FieldTypeBoolean:
		return cel.BoolType
	case types.FieldTypeDate:
		return cel.TimestampType
	default:
		return cel.StringType
	}
}
