package testutil

import (
	"context"
	"fmt"
	"sync"

	"trustmarket/pkg/chain"
)

// FakeGateway records ledger-contract calls and returns deterministic references.
type FakeGateway struct {
	mu    sync.Mutex
	Calls []string

	LockErr    error
	ReleaseErr error
	RefundErr  error
	CreateErr  error
	AssignErr  error
	ApproveErr error
	BadgeErr   error
	Valid      bool
	VerifyErr  error

	OnchainJob *chain.OnchainJob
}

var _ chain.Gateway = (*FakeGateway)(nil)

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Valid: true}
}

func (f *FakeGateway) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

// Called reports how many times a call with the given name was recorded.
func (f *FakeGateway) Called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *FakeGateway) LockEscrow(ctx context.Context, jobRef int64, poster, worker string, amount int64) (string, error) {
	f.record("lock")
	if f.LockErr != nil {
		return "", f.LockErr
	}
	return fmt.Sprintf("0xlock%d", jobRef), nil
}

func (f *FakeGateway) ReleaseEscrow(ctx context.Context, jobRef int64) (string, error) {
	f.record("release")
	if f.ReleaseErr != nil {
		return "", f.ReleaseErr
	}
	return fmt.Sprintf("0xrelease%d", jobRef), nil
}

func (f *FakeGateway) RefundEscrow(ctx context.Context, jobRef int64) (string, error) {
	f.record("refund")
	if f.RefundErr != nil {
		return "", f.RefundErr
	}
	return fmt.Sprintf("0xrefund%d", jobRef), nil
}

func (f *FakeGateway) CreateJob(ctx context.Context, minScore int64, cid string) (*chain.OnchainJob, error) {
	f.record("create_job")
	return f.OnchainJob, f.CreateErr
}

func (f *FakeGateway) AssignWorker(ctx context.Context, onchainJobID int64, worker string) (string, error) {
	f.record("assign")
	return fmt.Sprintf("0xassign%d", onchainJobID), f.AssignErr
}

func (f *FakeGateway) ApproveJob(ctx context.Context, onchainJobID int64, rating int) (string, error) {
	f.record("approve")
	if f.ApproveErr != nil {
		return "", f.ApproveErr
	}
	return fmt.Sprintf("0xapprove%d", onchainJobID), nil
}

func (f *FakeGateway) UpdateBadge(ctx context.Context, tokenID int64, tier string, action chain.BadgeAction, owner string) (string, error) {
	f.record("badge_" + string(action))
	if f.BadgeErr != nil {
		return "", f.BadgeErr
	}
	return fmt.Sprintf("0xsbt-%s-%d", action, tokenID), nil
}

func (f *FakeGateway) VerifyProof(ctx context.Context, proof string, publicInputs []string) (bool, error) {
	f.record("verify")
	return f.Valid, f.VerifyErr
}
