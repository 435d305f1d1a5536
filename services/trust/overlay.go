package trust

import (
	"context"
	"math"

	"trustmarket/pkg/celengine"
	"trustmarket/pkg/config"
	"trustmarket/pkg/featureflags"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type OverlayInput struct {
	Score  int64
	Events int64
	Raw    int64
}

// Overlay is an advisory adjustment to the deterministic score. ok=false means no adjustment.
type Overlay interface {
	Adjust(ctx context.Context, userID string, in OverlayInput) (adjustment int64, ok bool)
}

// CELOverlay evaluates TRUST.OVERLAY_EXPR with score, events and raw in scope.
type CELOverlay struct {
	expr  string
	flags featureflags.FeatureFlag
}

type OverlayParams struct {
	fx.In
	Config *config.Config
	Flags  featureflags.FeatureFlag `optional:"true"`
}

// NewCELOverlay returns nil when no expression is configured.
func NewCELOverlay(p OverlayParams) Overlay {
	if p.Config == nil || p.Config.Trust.OverlayExpr == "" {
		return nil
	}

	o := &CELOverlay{expr: p.Config.Trust.OverlayExpr}
	if p.Config.Flagsmith.ApiKey != "" {
		o.flags = p.Flags
	}
	return o
}

func (o *CELOverlay) Adjust(ctx context.Context, userID string, in OverlayInput) (int64, bool) {
	zapLog := zap.L().With(zap.String("user_id", userID))

	if o.flags != nil {
		on, err := o.flags.Enabled(ctx, userID, featureflags.TrustScoreOverlay)
		if err != nil {
			zapLog.Warn("failed to read overlay flag", zap.Error(err))
			return 0, false
		}
		if !on {
			return 0, false
		}
	}

	attrs := map[string]any{
		"score":  in.Score,
		"events": in.Events,
		"raw":    in.Raw,
	}
	env, err := celengine.GetOrBuildEnv(attrs)
	if err != nil {
		zapLog.Warn("failed to build overlay env", zap.Error(err))
		return 0, false
	}

	adj, err := celengine.EvaluateNumber(env, o.expr, attrs)
	if err != nil || math.IsNaN(adj) || math.IsInf(adj, 0) {
		zapLog.Warn("overlay evaluation failed, keeping deterministic score", zap.Error(err))
		return 0, false
	}

	// the final clamp saturates past MaxScore; bounding here keeps the int64 conversion defined.
	bound := float64(MaxScore)
	adj = math.Max(-bound, math.Min(bound, adj))
	return int64(math.Round(adj)), true
}
