package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AcceptanceService 验收子流程。验收单：draft → submitted_bod → approved|rejected；
// 任务：waiting_acceptance → submitted → approved|rejected。
// 批量审批对每个任务独立校验，整体返回成功/失败聚合结果。
type AcceptanceService struct {
	db          *gorm.DB
	repo        *repository.AcceptanceRepository
	projectRepo *repository.ProjectRepository
}

func NewAcceptanceService(db *gorm.DB, repos *repository.Repositories) *AcceptanceService {
	return &AcceptanceService{
		db:          db,
		repo:        repos.Acceptance,
		projectRepo: repos.Project,
	}
}

// CreateAcceptanceRequest 创建验收单请求
type CreateAcceptanceRequest struct {
	ProjectID  string            `json:"project_id" binding:"required"`
	ContractID string            `json:"contract_id" binding:"required"`
	JobIDs     []string          `json:"job_ids" binding:"required,min=1"`
	Comment    string            `json:"comment"`
	Evidence   []AttachmentInput `json:"evidence"`
}

// JobFailure 批量操作中单个任务的失败原因
type JobFailure struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

// BatchResult 批量审批结果聚合，失败项逐条上报而不是静默丢弃
type BatchResult struct {
	Requested  int          `json:"requested"`
	Succeeded  int          `json:"succeeded"`
	Failed     []JobFailure `json:"failed,omitempty"`
	Acceptance *entity.Acceptance `json:"acceptance"`
}

// CreateDraft 创建验收单草稿，所有关联任务必须处于 waiting_acceptance
func (s *AcceptanceService) CreateDraft(ctx context.Context, req CreateAcceptanceRequest, actor Actor) (*entity.Acceptance, error) {
	if len(req.JobIDs) == 0 {
		return nil, apperr.Validation("job_ids", "至少需要一个任务")
	}
	if _, err := s.projectRepo.FindProjectByID(ctx, req.ProjectID); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("项目")
		}
		return nil, apperr.Upstream("项目", err)
	}
	if _, err := s.projectRepo.FindContractByID(ctx, req.ContractID); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("合同")
		}
		return nil, apperr.Upstream("合同", err)
	}

	jobs, err := s.projectRepo.FindJobsByIDs(ctx, req.JobIDs)
	if err != nil {
		return nil, apperr.Upstream("任务", err)
	}
	found := make(map[string]entity.Job, len(jobs))
	for _, job := range jobs {
		found[job.ID] = job
	}
	for _, jobID := range req.JobIDs {
		job, ok := found[jobID]
		if !ok {
			return nil, apperr.NotFound("任务")
		}
		if job.Status != entity.JobStatusWaitingAcceptance {
			return nil, apperr.Precondition("验收单",
				fmt.Sprintf("任务 %s 不在待验收状态（当前: %s）", jobID, job.Status))
		}
	}

	acc := &entity.Acceptance{
		ID:         uuid.New().String(),
		Code:       generateCode("ACC"),
		ProjectID:  req.ProjectID,
		ContractID: req.ContractID,
		Status:     entity.AcceptanceStatusDraft,
		Comment:    req.Comment,
		CreatedBy:  actor.ID,
	}
	for _, ev := range req.Evidence {
		acc.Evidence = append(acc.Evidence, map[string]interface{}{
			"name": ev.Name,
			"url":  ev.URL,
		})
	}
	for i, jobID := range req.JobIDs {
		acc.Jobs = append(acc.Jobs, entity.AcceptanceJob{
			ID:           uuid.New().String(),
			AcceptanceID: acc.ID,
			JobID:        jobID,
			SortOrder:    i,
		})
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, apperr.Upstream("验收单", err)
	}
	return s.Get(ctx, acc.ID)
}

// Get 获取验收单详情
func (s *AcceptanceService) Get(ctx context.Context, id string) (*entity.Acceptance, error) {
	acc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("验收单")
		}
		return nil, apperr.Upstream("验收单", err)
	}
	return acc, nil
}

// List 查询验收单列表
func (s *AcceptanceService) List(ctx context.Context, params repository.AcceptanceListParams) ([]entity.Acceptance, int64, error) {
	items, total, err := s.repo.FindAll(ctx, params)
	if err != nil {
		return nil, 0, apperr.Upstream("验收单", err)
	}
	return items, total, nil
}

// Submit 提交BOD验收：draft → submitted_bod，关联任务同步进入 submitted
func (s *AcceptanceService) Submit(ctx context.Context, id string) (*entity.Acceptance, error) {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Acceptance{}).
			Where("id = ? AND status = ?", id, entity.AcceptanceStatusDraft).
			Updates(map[string]interface{}{
				"status":       entity.AcceptanceStatusSubmittedBOD,
				"submitted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidTransition("验收单", acc.Status, "submit")
		}
		for _, aj := range acc.Jobs {
			jres := tx.Model(&entity.Job{}).
				Where("id = ? AND status = ?", aj.JobID, entity.JobStatusWaitingAcceptance).
				Update("status", entity.JobStatusSubmitted)
			if jres.Error != nil {
				return jres.Error
			}
			if jres.RowsAffected == 0 {
				return apperr.Precondition("验收单",
					fmt.Sprintf("任务 %s 不在待验收状态", aj.JobID))
			}
		}
		return nil
	})
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.KindInvalidTransition || kind == apperr.KindPrecondition {
			return nil, err
		}
		return nil, apperr.Upstream("验收单", err)
	}
	return s.Get(ctx, id)
}

// ApproveJobs 批量验收通过任务：submitted → approved
func (s *AcceptanceService) ApproveJobs(ctx context.Context, id string, jobIDs []string, actor Actor) (*BatchResult, error) {
	return s.decideJobs(ctx, id, jobIDs, entity.JobStatusApproved, actor)
}

// RejectJobs 批量驳回任务：submitted → rejected
func (s *AcceptanceService) RejectJobs(ctx context.Context, id string, jobIDs []string, actor Actor) (*BatchResult, error) {
	return s.decideJobs(ctx, id, jobIDs, entity.JobStatusRejected, actor)
}

func (s *AcceptanceService) decideJobs(ctx context.Context, id string, jobIDs []string, target string, actor Actor) (*BatchResult, error) {
	if !actor.IsApprover() {
		return nil, apperr.Authorization("只有BOD或管理员可以验收任务")
	}
	if len(jobIDs) == 0 {
		return nil, apperr.Validation("job_ids", "至少需要一个任务")
	}

	acc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Status != entity.AcceptanceStatusSubmittedBOD {
		action := "approve_jobs"
		if target == entity.JobStatusRejected {
			action = "reject_jobs"
		}
		return nil, apperr.InvalidTransition("验收单", acc.Status, action)
	}

	member := make(map[string]bool, len(acc.Jobs))
	for _, aj := range acc.Jobs {
		member[aj.JobID] = true
	}

	result := &BatchResult{Requested: len(jobIDs)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 每个任务独立校验，失败的记入结果而不中断整批
		for _, jobID := range jobIDs {
			if !member[jobID] {
				result.Failed = append(result.Failed, JobFailure{
					JobID:  jobID,
					Reason: "任务不属于该验收单",
				})
				continue
			}
			res := tx.Model(&entity.Job{}).
				Where("id = ? AND status = ?", jobID, entity.JobStatusSubmitted).
				Update("status", target)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				result.Failed = append(result.Failed, JobFailure{
					JobID:  jobID,
					Reason: "任务不在已提交状态",
				})
				continue
			}
			result.Succeeded++
		}

		// 终态检测：所有任务离开 waiting_acceptance/submitted 后验收单收口，
		// 全部 approved 则 approved，否则 rejected
		allJobIDs := make([]string, 0, len(acc.Jobs))
		for _, aj := range acc.Jobs {
			allJobIDs = append(allJobIDs, aj.JobID)
		}
		var jobs []entity.Job
		if err := tx.Where("id IN ?", allJobIDs).Find(&jobs).Error; err != nil {
			return err
		}
		allTerminal := true
		allApproved := true
		for _, job := range jobs {
			if job.Status == entity.JobStatusWaitingAcceptance || job.Status == entity.JobStatusSubmitted {
				allTerminal = false
				break
			}
			if job.Status != entity.JobStatusApproved {
				allApproved = false
			}
		}
		if !allTerminal {
			return nil
		}

		finalStatus := entity.AcceptanceStatusApproved
		if !allApproved {
			finalStatus = entity.AcceptanceStatusRejected
		}
		now := time.Now()
		return tx.Model(&entity.Acceptance{}).
			Where("id = ? AND status = ?", id, entity.AcceptanceStatusSubmittedBOD).
			Updates(map[string]interface{}{
				"status":     finalStatus,
				"decided_at": now,
			}).Error
	})
	if err != nil {
		return nil, apperr.Upstream("验收单", err)
	}

	final, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Acceptance = final
	return result, nil
}
