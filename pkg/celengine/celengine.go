package celengine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

var (
	envCache     = sync.Map{}
	programCache = sync.Map{}
)

// GetOrBuildEnv caches environments by their variable declarations.
func GetOrBuildEnv(attrs map[string]any) (*cel.Env, error) {
	key := signature(attrs)
	if v, ok := envCache.Load(key); ok {
		return v.(*cel.Env), nil
	}

	env, err := BuildCelEnvFromAttributes(attrs)
	if err == nil {
		envCache.Store(key, env)
	}

	return env, err
}

func signature(attrs map[string]any) string {
	parts := make([]string, 0, len(attrs))
	for k, v := range attrs {
		parts = append(parts, fmt.Sprintf("%s:%T", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func BuildCelEnvFromAttributes(attrs map[string]any) (*cel.Env, error) {
	var variables []cel.EnvOption

	for key, val := range attrs {
		switch v := val.(type) {
		case string:
			variables = append(variables, cel.Variable(key, cel.StringType))
		case int, int32, int64:
			variables = append(variables, cel.Variable(key, cel.IntType))
		case float32, float64:
			variables = append(variables, cel.Variable(key, cel.DoubleType))
		case bool:
			variables = append(variables, cel.Variable(key, cel.BoolType))
		case []any:
			if len(v) > 0 {
				if _, ok := v[0].(map[string]any); ok {
					variables = append(variables, cel.Variable(key, cel.ListType(cel.MapType(cel.StringType, cel.DynType))))
					continue
				}
			}
			variables = append(variables, cel.Variable(key, cel.ListType(cel.DynType)))
		case map[string]any:
			variables = append(variables, cel.Variable(key, cel.MapType(cel.StringType, cel.DynType)))
		default:
			zap.L().Debug("unhandled cel attribute type", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", val)))
			variables = append(variables, cel.Variable(key, cel.DynType))
		}
	}

	return cel.NewEnv(variables...)
}

func ValidateExpression(env *cel.Env, expr string) error {
	_, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

func program(env *cel.Env, expr string) (cel.Program, error) {
	type cacheKey struct {
		env  *cel.Env
		expr string
	}
	key := cacheKey{env: env, expr: expr}
	if v, ok := programCache.Load(key); ok {
		return v.(cel.Program), nil
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	programCache.Store(key, prg)
	return prg, nil
}

func Evaluate(env *cel.Env, expr string, attrs map[string]any) (bool, error) {
	val, err := EvaluateDynamic(env, expr, attrs)
	if err != nil {
		return false, err
	}

	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", val, val)
	}

	return b, nil
}

func EvaluateDynamic(env *cel.Env, expr string, attrs map[string]any) (any, error) {
	prg, err := program(env, expr)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(attrs)
	if err != nil {
		return nil, err
	}

	return out.Value(), nil
}

// EvaluateNumber evaluates expr and coerces an int, uint or double result to float64.
func EvaluateNumber(env *cel.Env, expr string, attrs map[string]any) (float64, error) {
	val, err := EvaluateDynamic(env, expr, attrs)
	if err != nil {
		return 0, err
	}

	switch n := val.(type) {
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected number from expression, got %T (%v)", val, val)
	}
}
