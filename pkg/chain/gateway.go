package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"trustmarket/pkg/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("chain",
	fx.Provide(NewGateway),
)

type BadgeAction string

const (
	BadgeMint   BadgeAction = "mint"
	BadgeUpdate BadgeAction = "update"
)

// OnchainJob is the reference returned by the jobs contract. Nil when the call was skipped.
type OnchainJob struct {
	JobID  int64
	TxHash string
}

// Gateway is the ledger-contract gateway. Every write returns a transaction reference;
// unconfigured contracts return locally generated placeholders instead of failing.
type Gateway interface {
	LockEscrow(ctx context.Context, jobRef int64, poster, worker string, amount int64) (string, error)
	ReleaseEscrow(ctx context.Context, jobRef int64) (string, error)
	RefundEscrow(ctx context.Context, jobRef int64) (string, error)
	CreateJob(ctx context.Context, minScore int64, cid string) (*OnchainJob, error)
	AssignWorker(ctx context.Context, onchainJobID int64, worker string) (string, error)
	ApproveJob(ctx context.Context, onchainJobID int64, rating int) (string, error)
	UpdateBadge(ctx context.Context, tokenID int64, tier string, action BadgeAction, owner string) (string, error)
	VerifyProof(ctx context.Context, proof string, publicInputs []string) (bool, error)
}

type backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

type contracts struct {
	escrow   *bind.BoundContract
	jobs     *bind.BoundContract
	badge    *bind.BoundContract
	verifier *bind.BoundContract
}

type EthGateway struct {
	client    backend
	key       *ecdsa.PrivateKey
	chainID   *big.Int
	timeout   time.Duration
	contracts contracts
	now       func() time.Time

	mu sync.Mutex
}

type Params struct {
	fx.In
	Lifecycle fx.Lifecycle `optional:"true"`
	Config    *config.Config
}

func NewGateway(p Params) (Gateway, error) {
	c := p.Config.Chain
	g := &EthGateway{
		timeout: c.CallTimeout,
		now:     time.Now,
	}
	if c.ChainID > 0 {
		g.chainID = big.NewInt(c.ChainID)
	}

	if c.RPCURL == "" {
		zap.L().Warn("CHAIN.RPC_URL missing, ledger contract calls will be simulated")
		return g, nil
	}

	client, err := ethclient.Dial(c.RPCURL)
	if err != nil {
		zap.L().Error("failed to dial chain rpc", zap.Error(err))
		return nil, err
	}
	g.client = client

	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				client.Close()
				return nil
			},
		})
	}

	if c.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse chain signer key: %w", err)
		}
		g.key = key
	} else {
		zap.L().Warn("CHAIN.PRIVATE_KEY missing, ledger contract writes will be simulated")
	}

	if g.contracts.escrow, err = bound(c.EscrowAddress, escrowABI, client); err != nil {
		return nil, err
	}
	if g.contracts.jobs, err = bound(c.JobsAddress, jobsABI, client); err != nil {
		return nil, err
	}
	if g.contracts.badge, err = bound(c.BadgeAddress, badgeABI, client); err != nil {
		return nil, err
	}
	if g.contracts.verifier, err = bound(c.VerifierAddress, verifierABI, client); err != nil {
		return nil, err
	}

	return g, nil
}

func bound(address, definition string, client backend) (*bind.BoundContract, error) {
	if address == "" {
		return nil, nil
	}
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	addr := common.HexToAddress(NormalizeAddress(address))
	return bind.NewBoundContract(addr, parsed, client, client, client), nil
}

// NormalizeAddress prefixes a bare hex address with 0x.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		return address
	}
	return "0x" + address
}

func (g *EthGateway) placeholder(kind, action string, ref int64) string {
	return fmt.Sprintf("%s-%s-%d-%d", kind, action, ref, g.now().UnixMilli())
}

func (g *EthGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *EthGateway) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	if g.key == nil || g.client == nil {
		return nil, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.chainID == nil {
		id, err := g.client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
		g.chainID = id
	}

	auth, err := bind.NewKeyedTransactorWithChainID(g.key, g.chainID)
	if err != nil {
		return nil, err
	}
	auth.Context = ctx
	return auth, nil
}

// write submits a transaction and returns its hash, or a placeholder when the contract or signer is absent.
func (g *EthGateway) write(ctx context.Context, contract *bind.BoundContract, label string, ref int64, method string, args ...any) (string, error) {
	if contract == nil {
		zap.L().Warn("contract missing, returning offchain placeholder", zap.String("method", method), zap.Int64("ref", ref))
		return g.placeholder("offchain", label, ref), nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	auth, err := g.transactor(ctx)
	if err != nil {
		return "", err
	}
	if auth == nil {
		zap.L().Warn("signer missing, simulating contract write", zap.String("method", method), zap.Int64("ref", ref))
		return g.placeholder("simulated", label, ref), nil
	}

	tx, err := contract.Transact(auth, method, args...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}

	zap.L().Info("contract write submitted", zap.String("method", method), zap.Int64("ref", ref), zap.String("tx", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

// read performs a view call, retried with exponential backoff.
func (g *EthGateway) read(ctx context.Context, contract *bind.BoundContract, method string, args ...any) ([]any, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var out []any
	op := func() error {
		out = nil
		return contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (g *EthGateway) LockEscrow(ctx context.Context, jobRef int64, poster, worker string, amount int64) (string, error) {
	return g.write(ctx, g.contracts.escrow, "lock", jobRef, "lock",
		big.NewInt(jobRef),
		common.HexToAddress(NormalizeAddress(poster)),
		common.HexToAddress(NormalizeAddress(worker)),
		big.NewInt(amount),
	)
}

func (g *EthGateway) ReleaseEscrow(ctx context.Context, jobRef int64) (string, error) {
	return g.write(ctx, g.contracts.escrow, "release", jobRef, "release", big.NewInt(jobRef))
}

func (g *EthGateway) RefundEscrow(ctx context.Context, jobRef int64) (string, error) {
	return g.write(ctx, g.contracts.escrow, "refund", jobRef, "refund", big.NewInt(jobRef))
}

func (g *EthGateway) CreateJob(ctx context.Context, minScore int64, cid string) (*OnchainJob, error) {
	if g.contracts.jobs == nil || g.key == nil {
		zap.L().Warn("jobs contract or signer missing, skipping createJob")
		return nil, nil
	}

	out, err := g.read(ctx, g.contracts.jobs, "nextJobId")
	if err != nil {
		return nil, err
	}
	next, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("nextJobId: unexpected result %T", out[0])
	}

	tx, err := g.write(ctx, g.contracts.jobs, "job", next.Int64(), "createJob", big.NewInt(minScore), cid)
	if err != nil {
		return nil, err
	}
	return &OnchainJob{JobID: next.Int64(), TxHash: tx}, nil
}

func (g *EthGateway) AssignWorker(ctx context.Context, onchainJobID int64, worker string) (string, error) {
	if g.contracts.jobs == nil {
		return "", nil
	}
	return g.write(ctx, g.contracts.jobs, "assign", onchainJobID, "assignWorker",
		big.NewInt(onchainJobID), common.HexToAddress(NormalizeAddress(worker)))
}

func (g *EthGateway) ApproveJob(ctx context.Context, onchainJobID int64, rating int) (string, error) {
	if g.contracts.jobs == nil {
		return "", nil
	}
	return g.write(ctx, g.contracts.jobs, "approve", onchainJobID, "approveJob", big.NewInt(onchainJobID), uint8(rating))
}

func (g *EthGateway) UpdateBadge(ctx context.Context, tokenID int64, tier string, action BadgeAction, owner string) (string, error) {
	if g.contracts.badge == nil {
		return fmt.Sprintf("offchain-sbt-%s-%d", action, tokenID), nil
	}
	if g.key == nil {
		return fmt.Sprintf("simulated-sbt-%s-%d", action, tokenID), nil
	}
	if action == BadgeMint {
		return g.write(ctx, g.contracts.badge, "sbt-mint", tokenID, "mint",
			common.HexToAddress(NormalizeAddress(owner)), big.NewInt(tokenID), tier)
	}
	return g.write(ctx, g.contracts.badge, "sbt-update", tokenID, "updateMetadata", big.NewInt(tokenID), tier)
}

func (g *EthGateway) VerifyProof(ctx context.Context, proof string, publicInputs []string) (bool, error) {
	if g.contracts.verifier == nil {
		zap.L().Warn("verifier contract missing, skipping on-chain verification")
		return true, nil
	}

	inputs := make([][32]byte, 0, len(publicInputs))
	for _, in := range publicInputs {
		word, err := ToBytes32(in)
		if err != nil {
			return false, err
		}
		inputs = append(inputs, word)
	}

	out, err := g.read(ctx, g.contracts.verifier, "verifyProof", common.FromHex(proof), inputs)
	if err != nil {
		return false, err
	}
	valid, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("verifyProof: unexpected result %T", out[0])
	}
	return valid, nil
}

// ToBytes32 left-pads a hex or decimal scalar into a 32-byte word.
func ToBytes32(value string) ([32]byte, error) {
	var word [32]byte
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		raw := common.FromHex(value)
		if len(raw) > 32 {
			return word, fmt.Errorf("public input %q exceeds 32 bytes", value)
		}
		copy(word[32-len(raw):], raw)
		return word, nil
	}

	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return word, fmt.Errorf("invalid public input %q", value)
	}
	return [32]byte(common.BigToHash(n)), nil
}
