package proof

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"trustmarket/pkg/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type Witness struct {
	Score    int64
	MinScore int64
}

type Artifact struct {
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"publicInputs"`
}

// Prover turns a witness into a proof. Calls may take seconds.
type Prover interface {
	Prove(ctx context.Context, w Witness) (*Artifact, error)
}

var ErrUnsatisfiedWitness = errors.New("witness does not satisfy score >= minScore")

// NewProver uses the remote prover when PROVER.URL is set and the development prover otherwise.
func NewProver(cfg *config.Config) Prover {
	if cfg == nil || cfg.Prover.URL == "" {
		zap.L().Warn("PROVER.URL missing, using development prover")
		return DevProver{}
	}
	return NewHTTPProver(cfg.Prover.URL, cfg.Prover.Timeout, cfg.Prover.MaxRetries)
}

type HTTPProver struct {
	client     *resty.Client
	maxRetries uint64
	backoff    func() backoff.BackOff
}

func NewHTTPProver(baseURL string, timeout time.Duration, maxRetries uint64) *HTTPProver {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &HTTPProver{
		client:     client,
		maxRetries: maxRetries,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// Prove posts the witness to /prove. 5xx and transport errors are retried, 4xx are not.
func (p *HTTPProver) Prove(ctx context.Context, w Witness) (*Artifact, error) {
	body := map[string]string{
		"score":    strconv.FormatInt(w.Score, 10),
		"minScore": strconv.FormatInt(w.MinScore, 10),
	}

	var out Artifact
	attempt := 0
	op := func() error {
		attempt++
		resp, err := p.client.R().SetContext(ctx).SetBody(body).Post("/prove")
		if err != nil {
			zap.L().Warn("prover request failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		if resp.StatusCode() >= 500 {
			zap.L().Warn("prover unavailable", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode()))
			return fmt.Errorf("prover returned status %d", resp.StatusCode())
		}
		if resp.IsError() {
			return backoff.Permanent(fmt.Errorf("prover rejected witness: status %d", resp.StatusCode()))
		}
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode prover response: %w", err))
		}
		if out.Proof == "" {
			return backoff.Permanent(errors.New("prover returned an empty proof"))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.backoff(), p.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return &out, nil
}

// DevProver produces a keccak commitment over a random nonce and the witness. It refuses
// unsatisfiable witnesses the way the circuit does, and is not sound.
type DevProver struct{}

func (DevProver) Prove(ctx context.Context, w Witness) (*Artifact, error) {
	if w.Score < w.MinScore {
		return nil, ErrUnsatisfiedWitness
	}

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	minWord := common.BigToHash(big.NewInt(w.MinScore))
	commitment := crypto.Keccak256(nonce, common.BigToHash(big.NewInt(w.Score)).Bytes(), minWord.Bytes())

	return &Artifact{
		Proof:        hexutil.Encode(append(nonce, commitment...)),
		PublicInputs: []string{minWord.Hex()},
	}, nil
}
