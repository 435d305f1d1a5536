package proof

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trustmarket/pkg/db/option"
	"trustmarket/pkg/errutil"
	"trustmarket/pkg/external"
	"trustmarket/pkg/metrics"
	"trustmarket/pkg/repository"
	"trustmarket/pkg/task"
	"trustmarket/services/trust"
	"trustmarket/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Verifier checks a proof against the on-chain verifier contract.
type Verifier interface {
	VerifyProof(ctx context.Context, proof string, publicInputs []string) (bool, error)
}

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	proofs    repository.Repository[Proof]
	snapshots repository.Repository[trust.TrustSnapshot]

	prover   Prover
	verifier Verifier
	enqueuer task.Enqueuer

	pending singleflight.Group
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Prover   Prover
	Verifier Verifier      `optional:"true"`
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		proofs:    repository.ProvideStore[Proof](p.DB),
		snapshots: repository.ProvideStore[trust.TrustSnapshot](p.DB),
		prover:    p.Prover,
		verifier:  p.Verifier,
		enqueuer:  p.Enqueuer,
	}
}

// Issue proves score >= minScore and stores the artifact scoped to the user and threshold.
func (s *Service) Issue(ctx context.Context, userID string, score, minScore int64) (*IssueResult, error) {
	id := external.ID("user_id", userID)
	if minScore < 0 {
		return nil, errutil.BadRequest("min score must not be negative", nil, errutil.WithDetails(id))
	}
	if minScore > score {
		return nil, errutil.Unauthorized("score below requested threshold", nil, errutil.WithDetails(id))
	}

	start := time.Now()
	artifact, err := external.Fatal(ctx, "prover.prove", func(ctx context.Context) (*Artifact, error) {
		return s.prover.Prove(ctx, Witness{Score: score, MinScore: minScore})
	}, id)
	metrics.ProofIssueDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	inputs, err := json.Marshal(artifact.PublicInputs)
	if err != nil {
		return nil, err
	}

	row := &Proof{
		ID:           s.node.Generate().String(),
		UserID:       userID,
		MinScore:     minScore,
		Proof:        artifact.Proof,
		PublicInputs: inputs,
		CreatedAt:    time.Now(),
	}
	if err := s.proofs.Create(ctx, row); err != nil {
		zap.L().Error("failed to store proof", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("proof issued", zap.String("user_id", userID), zap.String("proof_id", row.ID), zap.Int64("min_score", minScore))
	return &IssueResult{
		ProofID:      row.ID,
		Proof:        artifact.Proof,
		PublicInputs: artifact.PublicInputs,
	}, nil
}

// IssueForUser issues against the user's cached score.
func (s *Service) IssueForUser(ctx context.Context, userID string, minScore int64) (*IssueResult, error) {
	u, err := user.Load(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return s.Issue(ctx, userID, u.TrustScore, minScore)
}

// Verify fails INVALID_PROOF when the verifier rejects the proof.
func (s *Service) Verify(ctx context.Context, proof string, publicInputs []string) (bool, error) {
	if s.verifier == nil {
		zap.L().Warn("no proof verifier configured, accepting proof")
		return true, nil
	}

	valid, err := external.Fatal(ctx, "verifier.verify_proof", func(ctx context.Context) (bool, error) {
		return s.verifier.VerifyProof(ctx, proof, publicInputs)
	})
	if err != nil {
		return false, err
	}
	if !valid {
		return false, errutil.InvalidProof("Invalid ZK proof", nil)
	}
	return true, nil
}

// AssertEligible authorizes a gated action. Without proofID the newest proof at or above
// minScore is used.
func (s *Service) AssertEligible(ctx context.Context, userID string, minScore int64, proofID string) (*Proof, error) {
	var (
		p   *Proof
		err error
	)
	if proofID != "" {
		p, err = s.proofs.FindOne(ctx, &Proof{ID: proofID})
	} else {
		p, err = s.proofs.FindOne(ctx, &Proof{UserID: userID},
			option.ApplyOperator(option.Condition{Field: "min_score", Operator: option.GTE, Value: minScore}),
			option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		)
	}
	if err != nil {
		return nil, err
	}

	if userID == "" || p == nil || p.UserID != userID || p.MinScore < minScore {
		zap.L().Warn("proof assertion failed", zap.String("user_id", userID), zap.String("proof_id", proofID))
		return nil, errutil.Unauthorized("ZK proof missing or insufficient", nil,
			errutil.WithDetails(external.ID("user_id", userID), external.ID("proof_id", proofID)))
	}
	return p, nil
}

// RequestIssuance records a proof_requested marker and queues a background pre-issue.
func (s *Service) RequestIssuance(ctx context.Context, userID string, minScore int64) error {
	if err := s.snapshots.Create(ctx, &trust.TrustSnapshot{
		ID:     s.node.Generate().String(),
		UserID: userID,
		Score:  minScore,
		Metadata: trust.SnapshotMetadata(trust.SnapshotProofRequested, map[string]any{
			"min_score": minScore,
		}),
		CreatedAt: time.Now(),
	}); err != nil {
		zap.L().Error("failed to record proof request", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if s.enqueuer == nil {
		return nil
	}

	key := fmt.Sprintf("%s:%d", userID, minScore)
	s.pending.Do(key, func() (any, error) {
		res := external.BestEffort(ctx, "proof.enqueue_issue", func(ctx context.Context) (string, error) {
			t, err := NewIssueTask(IssuePayload{UserID: userID, MinScore: minScore})
			if err != nil {
				return "", err
			}
			info, err := s.enqueuer.Enqueue(ctx, t)
			if err != nil {
				return "", err
			}
			return info.ID, nil
		}, external.ID("user_id", userID))
		if res.Degraded() {
			metrics.SideEffectFailures.WithLabelValues("proof_enqueue").Inc()
		}
		return nil, nil
	})
	return nil
}

func (s *Service) Get(ctx context.Context, proofID string) (*Proof, error) {
	p, err := s.proofs.FindOne(ctx, &Proof{ID: proofID})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("proof not found", nil, errutil.WithDetails(external.ID("proof_id", proofID)))
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Proof, error) {
	return s.proofs.Find(ctx, &Proof{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
}
