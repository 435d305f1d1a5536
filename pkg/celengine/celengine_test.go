package celengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateNumber(t *testing.T) {
	attrs := map[string]any{"score": int64(420), "events": int64(12), "raw": int64(420)}
	env, err := GetOrBuildEnv(attrs)
	require.NoError(t, err)

	got, err := EvaluateNumber(env, "events > 10 ? 5 : 0", attrs)
	require.NoError(t, err)
	require.Equal(t, 5.0, got)

	got, err = EvaluateNumber(env, "double(score) * 0.1", attrs)
	require.NoError(t, err)
	require.InDelta(t, 42.0, got, 1e-9)

	_, err = EvaluateNumber(env, "score > 10", attrs)
	require.Error(t, err)
}

func TestEnvCacheKeyedByDeclarations(t *testing.T) {
	a, err := GetOrBuildEnv(map[string]any{"score": int64(1)})
	require.NoError(t, err)
	b, err := GetOrBuildEnv(map[string]any{"tier": "Spark"})
	require.NoError(t, err)
	require.NotSame(t, a, b)

	require.Error(t, ValidateExpression(b, "score > 1"))
	require.NoError(t, ValidateExpression(a, "score > 1"))
}

func TestEvaluateBool(t *testing.T) {
	attrs := map[string]any{"tier": "Nova"}
	env, err := GetOrBuildEnv(attrs)
	require.NoError(t, err)

	ok, err := Evaluate(env, `tier == "Nova"`, attrs)
	require.NoError(t, err)
	require.True(t, ok)
}
