package service

import (
	"context"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/google/uuid"
)

// ProjectService 合同后的交付侧：项目与任务管理。
// 任务流转到 waiting_acceptance 后交给验收流程处理。
type ProjectService struct {
	projectRepo *repository.ProjectRepository
}

func NewProjectService(projectRepo *repository.ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	ContractID string `json:"contract_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
}

// CreateProject 在合同下创建交付项目
func (s *ProjectService) CreateProject(ctx context.Context, req CreateProjectRequest, actor Actor) (*entity.Project, error) {
	if _, err := s.projectRepo.FindContractByID(ctx, req.ContractID); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("合同")
		}
		return nil, apperr.Upstream("数据库", err)
	}
	project := &entity.Project{
		ID:         uuid.New().String(),
		Code:       generateCode("PRJ"),
		ContractID: req.ContractID,
		Name:       req.Name,
		Status:     entity.ProjectStatusActive,
		CreatedBy:  actor.ID,
	}
	if err := s.projectRepo.CreateProject(ctx, project); err != nil {
		return nil, apperr.Upstream("数据库", err)
	}
	return project, nil
}

// GetProject 获取项目详情（含任务）
func (s *ProjectService) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	project, err := s.projectRepo.FindProjectByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("项目")
		}
		return nil, apperr.Upstream("数据库", err)
	}
	return project, nil
}

// ListProjects 查询项目列表，可按合同过滤
func (s *ProjectService) ListProjects(ctx context.Context, contractID string) ([]entity.Project, error) {
	items, err := s.projectRepo.FindAllProjects(ctx, contractID)
	if err != nil {
		return nil, apperr.Upstream("数据库", err)
	}
	return items, nil
}

// GetContract 获取合同详情
func (s *ProjectService) GetContract(ctx context.Context, id string) (*entity.Contract, error) {
	contract, err := s.projectRepo.FindContractByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("合同")
		}
		return nil, apperr.Upstream("数据库", err)
	}
	return contract, nil
}

// ListContracts 查询合同列表
func (s *ProjectService) ListContracts(ctx context.Context) ([]entity.Contract, error) {
	items, err := s.projectRepo.FindAllContracts(ctx)
	if err != nil {
		return nil, apperr.Upstream("数据库", err)
	}
	return items, nil
}

// CreateJobRequest 创建任务请求
type CreateJobRequest struct {
	Name  string `json:"name" binding:"required"`
	Notes string `json:"notes"`
}

// CreateJob 在项目下创建任务，初始状态 pending
func (s *ProjectService) CreateJob(ctx context.Context, projectID string, req CreateJobRequest) (*entity.Job, error) {
	if _, err := s.projectRepo.FindProjectByID(ctx, projectID); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("项目")
		}
		return nil, apperr.Upstream("数据库", err)
	}
	job := &entity.Job{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      req.Name,
		Status:    entity.JobStatusPending,
		Notes:     req.Notes,
	}
	if err := s.projectRepo.CreateJob(ctx, job); err != nil {
		return nil, apperr.Upstream("数据库", err)
	}
	return job, nil
}

// StartJob 开始任务：pending → in_progress
func (s *ProjectService) StartJob(ctx context.Context, jobID string) (*entity.Job, error) {
	return s.transitionJob(ctx, jobID, entity.JobStatusPending, entity.JobStatusInProgress, "开始任务")
}

// CompleteJob 完成任务并提交等待验收：in_progress → waiting_acceptance
func (s *ProjectService) CompleteJob(ctx context.Context, jobID string) (*entity.Job, error) {
	return s.transitionJob(ctx, jobID, entity.JobStatusInProgress, entity.JobStatusWaitingAcceptance, "完成任务")
}

func (s *ProjectService) transitionJob(ctx context.Context, jobID, from, to, action string) (*entity.Job, error) {
	job, err := s.projectRepo.FindJobByID(ctx, jobID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.NotFound("任务")
		}
		return nil, apperr.Upstream("数据库", err)
	}
	if job.Status != from {
		return nil, apperr.InvalidTransition("任务", job.Status, action)
	}
	rows, err := s.projectRepo.UpdateJobStatusGuarded(ctx, jobID, from, to)
	if err != nil {
		return nil, apperr.Upstream("数据库", err)
	}
	if rows == 0 {
		current, rerr := s.projectRepo.FindJobByID(ctx, jobID)
		if rerr != nil {
			return nil, apperr.Upstream("数据库", rerr)
		}
		return nil, apperr.InvalidTransition("任务", current.Status, action)
	}
	job.Status = to
	return job, nil
}
