package job

import (
	"context"
	"errors"
	"strings"
	"time"

	"trustmarket/pkg/chain"
	"trustmarket/pkg/config"
	"trustmarket/pkg/db/option"
	"trustmarket/pkg/errutil"
	"trustmarket/pkg/external"
	"trustmarket/pkg/metrics"
	"trustmarket/pkg/repository"
	"trustmarket/pkg/sequence"
	"trustmarket/services/escrow"
	"trustmarket/services/points"
	"trustmarket/services/proof"
	"trustmarket/services/trust"
	"trustmarket/services/user"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultCreateCost      int64 = 50
	DefaultApplyCost       int64 = 20
	DefaultCompletionDelta int64 = 100

	DefaultRating = 5

	defaultApplicationsLimit = 5
	maxApplicationsLimit     = 20
)

var tracer = otel.Tracer("trustmarket/services/job")

type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	jobs         repository.Repository[Job]
	applications repository.Repository[JobApplication]
	escrowRows   repository.Repository[escrow.JobEscrow]

	points   *points.Service
	escrow   *escrow.Service
	proofs   *proof.Service
	trust    *trust.Service
	chain    chain.Gateway
	sequence sequence.Generator
	notifier Notifier

	createCost      int64
	applyCost       int64
	completionDelta int64
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Config   *config.Config `optional:"true"`
	Points   *points.Service
	Escrow   *escrow.Service
	Proofs   *proof.Service
	Trust    *trust.Service
	Chain    chain.Gateway
	Sequence sequence.Generator
	Notifier Notifier `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:              p.DB,
		node:            p.Node,
		jobs:            repository.ProvideStore[Job](p.DB),
		applications:    repository.ProvideStore[JobApplication](p.DB),
		escrowRows:      repository.ProvideStore[escrow.JobEscrow](p.DB),
		points:          p.Points,
		escrow:          p.Escrow,
		proofs:          p.Proofs,
		trust:           p.Trust,
		chain:           p.Chain,
		sequence:        p.Sequence,
		notifier:        p.Notifier,
		createCost:      DefaultCreateCost,
		applyCost:       DefaultApplyCost,
		completionDelta: DefaultCompletionDelta,
	}

	if p.Config != nil {
		if p.Config.Jobs.CreateCost > 0 {
			s.createCost = p.Config.Jobs.CreateCost
		}
		if p.Config.Jobs.ApplyCost > 0 {
			s.applyCost = p.Config.Jobs.ApplyCost
		}
		if p.Config.Jobs.CompletionDelta > 0 {
			s.completionDelta = p.Config.Jobs.CompletionDelta
		}
	}

	return s
}

func logger(span trace.Span, fields ...zap.Field) *zap.Logger {
	sc := span.SpanContext()
	return zap.L().With(append([]zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}, fields...)...)
}

func finish(span trace.Span, step string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.JobSteps.WithLabelValues(step, metrics.Result(err)).Inc()
	span.End()
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	res := external.BestEffort(ctx, "notification.notify", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.notifier.Notify(ctx, userID, message)
	}, external.ID("user_id", userID))
	if res.Degraded() {
		metrics.SideEffectFailures.WithLabelValues("notify").Inc()
	}
}

// CreateJob gates on a proof, debits the creation cost, stores the job and locks the reward in
// escrow as one unit of work. An escrow lock failure rolls the whole creation back.
func (s *Service) CreateJob(ctx context.Context, creatorID string, req CreateJobRequest) (_ *Job, err error) {
	ctx, span := tracer.Start(ctx, "job.CreateJob")
	defer func() { finish(span, "create", err) }()
	zapLog := logger(span, zap.String("user_id", creatorID))

	if req.SalaryMin != nil && req.SalaryMax != nil && *req.SalaryMin > *req.SalaryMax {
		return nil, errutil.BadRequest("salaryMin cannot exceed salaryMax", nil)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, errutil.BadRequest("title is required", nil)
	}
	if req.Reward <= 0 {
		return nil, errutil.BadRequest("reward must be positive", nil)
	}
	if req.MinTrustScore < 0 {
		return nil, errutil.BadRequest("minTrustScore must not be negative", nil)
	}

	if _, err := s.proofs.AssertEligible(ctx, creatorID, req.MinTrustScore, req.ZkProofID); err != nil {
		return nil, err
	}

	jobID := s.node.Generate().String()
	var created *Job
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.points.WithTx(tx).Spend(ctx, creatorID, s.createCost, "job_create"); err != nil {
			return err
		}

		creator, err := user.Load(ctx, tx, creatorID)
		if err != nil {
			return err
		}

		chainRef, err := external.Fatal(ctx, "sequence.next_chain_ref", s.sequence.NextChainRef, external.ID("job_id", jobID))
		if err != nil {
			return err
		}

		onchain := external.BestEffort(ctx, "chain.create_job", func(ctx context.Context) (*chain.OnchainJob, error) {
			return s.chain.CreateJob(ctx, req.MinTrustScore, "job:"+jobID)
		}, external.ID("job_id", jobID))

		now := time.Now()
		created = &Job{
			ID:            jobID,
			CreatorID:     creatorID,
			ChainRef:      chainRef,
			Title:         strings.TrimSpace(req.Title),
			Description:   req.Description,
			CompanyName:   req.CompanyName,
			CompanyLogo:   req.CompanyLogo,
			Location:      req.Location,
			JobType:       req.JobType,
			Requirements:  jsonOf(normalize(req.Requirements)),
			SalaryMin:     req.SalaryMin,
			SalaryMax:     req.SalaryMax,
			CloseAt:       req.CloseAt,
			MinTrustScore: req.MinTrustScore,
			Reward:        req.Reward,
			Status:        StatusOpen,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if j := onchain.Value; j != nil {
			created.OnchainJobID = &j.JobID
			created.OnchainCreateTx = &j.TxHash
		}

		if err := s.jobs.WithTrx(tx).Create(ctx, created); err != nil {
			return err
		}

		wallet := creator.Wallet()
		_, err = s.escrow.WithTx(tx).Lock(ctx, jobID, chainRef, wallet, wallet, req.Reward)
		return err
	})
	if err != nil {
		zapLog.Warn("job creation aborted", zap.Error(err))
		return nil, err
	}

	s.notify(ctx, creatorID, "Job created and escrow locked")
	zapLog.Info("job created", zap.String("job_id", created.ID), zap.Int64("chain_ref", created.ChainRef))
	return created, nil
}

// Apply records a worker's application after proof gating and the application fee.
func (s *Service) Apply(ctx context.Context, jobID, workerID string, req ApplyRequest) (_ *JobApplication, err error) {
	ctx, span := tracer.Start(ctx, "job.Apply")
	defer func() { finish(span, "apply", err) }()
	zapLog := logger(span, zap.String("user_id", workerID), zap.String("job_id", jobID))

	details := errutil.WithDetails(external.ID("job_id", jobID), external.ID("user_id", workerID))

	j, err := s.jobs.FindOne(ctx, &Job{ID: jobID})
	if err != nil {
		return nil, err
	}
	if j == nil || j.Status != StatusOpen {
		return nil, errutil.NotFound("Job unavailable", nil, details)
	}
	if j.CreatorID == workerID {
		return nil, errutil.BadRequest("Cannot apply to your own job", nil, details)
	}

	if _, err := s.proofs.AssertEligible(ctx, workerID, j.MinTrustScore, req.ZkProofID); err != nil {
		return nil, err
	}

	var app *JobApplication
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.points.WithTx(tx).Spend(ctx, workerID, s.applyCost, "job_apply"); err != nil {
			return err
		}

		existing, err := s.applications.WithTrx(tx).FindOne(ctx, &JobApplication{JobID: jobID, WorkerID: workerID})
		if err != nil {
			return err
		}
		if existing != nil {
			return errutil.AlreadyApplied("Already applied", nil, details)
		}

		now := time.Now()
		app = &JobApplication{
			ID:             s.node.Generate().String(),
			JobID:          jobID,
			WorkerID:       workerID,
			Status:         ApplicationApplied,
			CvURL:          strings.TrimSpace(req.CvURL),
			PortfolioLinks: jsonOf(normalize(req.PortfolioLinks)),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if len(req.ExtraMetadata) > 0 {
			app.ExtraMetadata = jsonOf(req.ExtraMetadata)
		}

		if err := s.applications.WithTrx(tx).Create(ctx, app); err != nil {
			if isDuplicate(err) {
				return errutil.AlreadyApplied("Already applied", err, details)
			}
			return err
		}
		return nil
	})
	if err != nil {
		zapLog.Warn("application rejected", zap.Error(err))
		return nil, err
	}

	s.notify(ctx, j.CreatorID, "New job application received")
	zapLog.Info("application created", zap.String("application_id", app.ID))
	return app, nil
}

// Submit moves an application from APPLIED to SUBMITTED.
func (s *Service) Submit(ctx context.Context, applicationID, workerID string, req SubmitRequest) (_ *JobApplication, err error) {
	ctx, span := tracer.Start(ctx, "job.Submit")
	defer func() { finish(span, "submit", err) }()
	zapLog := logger(span, zap.String("user_id", workerID), zap.String("application_id", applicationID))

	details := errutil.WithDetails(external.ID("application_id", applicationID))

	app, err := s.applications.FindOne(ctx, &JobApplication{ID: applicationID})
	if err != nil {
		return nil, err
	}
	if app == nil || app.WorkerID != workerID {
		return nil, errutil.NotFound("Application missing", nil, details)
	}
	if app.Status != ApplicationApplied {
		return nil, errutil.InvalidState("Invalid state for submission", nil, details)
	}

	text := req.WorkSubmissionText
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&JobApplication{}).
		Where("id = ? AND status = ?", applicationID, ApplicationApplied).
		Updates(map[string]any{
			"status":               ApplicationSubmitted,
			"work_submission_text": text,
			"updated_at":           now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errutil.InvalidState("Invalid state for submission", nil, details)
	}

	app.Status = ApplicationSubmitted
	app.WorkSubmissionText = &text
	app.UpdatedAt = now

	if j, err := s.jobs.FindOne(ctx, &Job{ID: app.JobID}); err == nil && j != nil {
		s.notify(ctx, j.CreatorID, "Work submitted for review")
	}

	zapLog.Info("work submitted")
	return app, nil
}

// Confirm finalizes a submitted application: the on-chain approval is best-effort, the state
// writes and escrow release commit together, and the worker's trust event follows the release.
func (s *Service) Confirm(ctx context.Context, applicationID, posterID string, req ConfirmRequest) (_ *JobApplication, err error) {
	ctx, span := tracer.Start(ctx, "job.Confirm")
	defer func() { finish(span, "confirm", err) }()
	zapLog := logger(span, zap.String("user_id", posterID), zap.String("application_id", applicationID))

	details := errutil.WithDetails(external.ID("application_id", applicationID))

	app, err := s.applications.FindOne(ctx, &JobApplication{ID: applicationID})
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, errutil.NotFound("Application missing", nil, details)
	}
	j, err := s.jobs.FindOne(ctx, &Job{ID: app.JobID})
	if err != nil {
		return nil, err
	}
	if j == nil || j.CreatorID != posterID {
		return nil, errutil.NotFound("Job missing or unauthorized", nil, details)
	}
	if app.Status != ApplicationSubmitted {
		return nil, errutil.InvalidState("Work must be submitted before confirmation", nil, details)
	}

	rating := DefaultRating
	if req.Rating != nil {
		rating = *req.Rating
	}
	if rating < 1 || rating > 5 {
		return nil, errutil.BadRequest("rating must be between 1 and 5", nil, details)
	}

	worker, err := user.Find(ctx, s.db, app.WorkerID)
	if err != nil {
		return nil, err
	}
	if worker.Wallet() == "" {
		return nil, errutil.NotFound("Worker wallet missing", nil, errutil.WithDetails(external.ID("user_id", app.WorkerID)))
	}

	onchainID := j.ContractJobID()
	finalize := external.BestEffort(ctx, "chain.finalize_job", func(ctx context.Context) (string, error) {
		if _, err := s.chain.AssignWorker(ctx, onchainID, worker.Wallet()); err != nil {
			return "", err
		}
		return s.chain.ApproveJob(ctx, onchainID, rating)
	}, external.ID("job_id", j.ID))
	if finalize.Degraded() {
		metrics.SideEffectFailures.WithLabelValues("chain_finalize").Inc()
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     ApplicationConfirmed,
			"rating":     rating,
			"updated_at": now,
		}
		if req.TxHash != "" {
			updates["confirmation_tx_hash"] = req.TxHash
		}
		res := tx.Model(&JobApplication{}).
			Where("id = ? AND status = ?", applicationID, ApplicationSubmitted).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.InvalidState("Work must be submitted before confirmation", nil, details)
		}

		jobUpdates := map[string]any{"status": StatusCompleted, "updated_at": now}
		if finalize.Value != "" {
			jobUpdates["onchain_approve_tx"] = finalize.Value
		}
		if err := s.jobs.WithTrx(tx).Update(ctx, j.ID, jobUpdates); err != nil {
			return err
		}

		_, err := s.escrow.WithTx(tx).Release(ctx, j.ID)
		return err
	})
	if err != nil {
		zapLog.Warn("confirmation aborted", zap.Error(err))
		return nil, err
	}

	app.Status = ApplicationConfirmed
	app.Rating = &rating
	app.UpdatedAt = now
	if req.TxHash != "" {
		app.ConfirmationTxHash = &req.TxHash
	}

	s.notify(ctx, app.WorkerID, "Payment released for your job")

	if _, err := s.trust.RecordEvent(ctx, app.WorkerID, "job_completed", s.completionDelta); err != nil {
		zapLog.Error("failed to record completion trust event", zap.String("worker_id", app.WorkerID), zap.Error(err))
		return nil, err
	}

	zapLog.Info("application confirmed", zap.String("job_id", j.ID))
	return app, nil
}

// CancelJob refunds the escrow of an open job that has no confirmed application.
func (s *Service) CancelJob(ctx context.Context, jobID, posterID string) (_ *Job, err error) {
	ctx, span := tracer.Start(ctx, "job.CancelJob")
	defer func() { finish(span, "cancel", err) }()
	zapLog := logger(span, zap.String("user_id", posterID), zap.String("job_id", jobID))

	details := errutil.WithDetails(external.ID("job_id", jobID))

	var cancelled *Job
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		j, err := s.jobs.WithTrx(tx).FindOne(ctx, &Job{ID: jobID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if j == nil || j.CreatorID != posterID {
			return errutil.NotFound("Job missing or unauthorized", nil, details)
		}
		if j.Status != StatusOpen {
			return errutil.InvalidState("Only open jobs can be cancelled", nil, details)
		}

		confirmed, err := s.applications.WithTrx(tx).Count(ctx, &JobApplication{JobID: jobID, Status: ApplicationConfirmed})
		if err != nil {
			return err
		}
		if confirmed > 0 {
			return errutil.InvalidState("Job already has a confirmed application", nil, details)
		}

		now := time.Now()
		if err := s.jobs.WithTrx(tx).Update(ctx, jobID, map[string]any{"status": StatusCancelled, "updated_at": now}); err != nil {
			return err
		}
		if _, err := s.escrow.WithTx(tx).Refund(ctx, jobID); err != nil {
			return err
		}

		j.Status = StatusCancelled
		j.UpdatedAt = now
		cancelled = j
		return nil
	})
	if err != nil {
		zapLog.Warn("job cancellation aborted", zap.Error(err))
		return nil, err
	}

	s.notify(ctx, posterID, "Job cancelled and escrow refunded")
	zapLog.Info("job cancelled")
	return cancelled, nil
}

func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	j, err := s.jobs.FindOne(ctx, &Job{ID: jobID})
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errutil.NotFound("Job missing", nil, errutil.WithDetails(external.ID("job_id", jobID)))
	}
	return j, nil
}

func (s *Service) ListMyJobs(ctx context.Context, creatorID string) ([]*JobView, error) {
	jobs, err := s.jobs.Find(ctx, &Job{CreatorID: creatorID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return []*JobView{}, nil
	}

	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}

	apps, err := s.applications.Find(ctx, nil,
		option.ApplyOperator(option.Condition{Field: "job_id", Operator: option.IN, Value: ids}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
	if err != nil {
		return nil, err
	}
	escrows, err := s.escrowRows.Find(ctx, nil,
		option.ApplyOperator(option.Condition{Field: "job_id", Operator: option.IN, Value: ids}),
	)
	if err != nil {
		return nil, err
	}

	byJob := make(map[string][]*JobApplication, len(jobs))
	for _, a := range apps {
		byJob[a.JobID] = append(byJob[a.JobID], a)
	}
	escrowByJob := make(map[string]*escrow.JobEscrow, len(escrows))
	for _, e := range escrows {
		escrowByJob[e.JobID] = e
	}

	out := make([]*JobView, 0, len(jobs))
	for _, j := range jobs {
		apps := byJob[j.ID]
		if apps == nil {
			apps = []*JobApplication{}
		}
		out = append(out, &JobView{Job: j, Applications: apps, Escrow: escrowByJob[j.ID]})
	}
	return out, nil
}

// ListMyApplications returns the newest applications of a worker. limit is clamped to [1,20];
// zero selects the default of 5.
func (s *Service) ListMyApplications(ctx context.Context, workerID string, limit int) ([]*ApplicationView, error) {
	if limit == 0 {
		limit = defaultApplicationsLimit
	}
	limit = min(max(limit, 1), maxApplicationsLimit)

	apps, err := s.applications.Find(ctx, &JobApplication{WorkerID: workerID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return []*ApplicationView{}, nil
	}

	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.JobID)
	}
	jobs, err := s.jobs.Find(ctx, nil, option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: ids}))
	if err != nil {
		return nil, err
	}
	summaries := make(map[string]*JobSummary, len(jobs))
	for _, j := range jobs {
		summaries[j.ID] = &JobSummary{
			ID:          j.ID,
			Title:       j.Title,
			CompanyName: j.CompanyName,
			JobType:     j.JobType,
			Reward:      j.Reward,
			Status:      j.Status,
		}
	}

	out := make([]*ApplicationView, 0, len(apps))
	for _, a := range apps {
		out = append(out, &ApplicationView{JobApplication: a, Job: summaries[a.JobID]})
	}
	return out, nil
}

// ListApplicants is restricted to the job's creator.
func (s *Service) ListApplicants(ctx context.Context, jobID, requesterID string) ([]*ApplicantView, error) {
	j, err := s.jobs.FindOne(ctx, &Job{ID: jobID})
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, errutil.NotFound("Job missing", nil, errutil.WithDetails(external.ID("job_id", jobID)))
	}
	if j.CreatorID != requesterID {
		return nil, errutil.Unauthorized("Only job owner can view applicants", nil, errutil.WithDetails(external.ID("job_id", jobID)))
	}

	apps, err := s.applications.Find(ctx, &JobApplication{JobID: jobID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return []*ApplicantView{}, nil
	}

	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.WorkerID)
	}
	workers, err := repository.ProvideStore[user.User](s.db).Find(ctx, nil,
		option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: ids}),
	)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*WorkerSummary, len(workers))
	for _, w := range workers {
		byID[w.ID] = &WorkerSummary{ID: w.ID, WalletAddress: w.WalletAddress, Tier: w.Tier}
	}

	out := make([]*ApplicantView, 0, len(apps))
	for _, a := range apps {
		out = append(out, &ApplicantView{JobApplication: a, Worker: byID[a.WorkerID]})
	}
	return out, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry")
}
