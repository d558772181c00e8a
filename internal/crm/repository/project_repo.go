package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"gorm.io/gorm"
)

// ProjectRepository 合同/项目/任务仓库
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// --- Contract ---

// CreateContract 创建合同
func (r *ProjectRepository) CreateContract(ctx context.Context, contract *entity.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// FindContractByID 根据ID查找合同
func (r *ProjectRepository) FindContractByID(ctx context.Context, id string) (*entity.Contract, error) {
	var contract entity.Contract
	err := r.db.WithContext(ctx).
		Preload("Quote").
		Preload("Quote.Items").
		Where("id = ?", id).
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contract, nil
}

// FindAllContracts 查询合同列表
func (r *ProjectRepository) FindAllContracts(ctx context.Context) ([]entity.Contract, error) {
	var items []entity.Contract
	err := r.db.WithContext(ctx).
		Preload("Quote").
		Preload("Quote.Items").
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// --- Project ---

// CreateProject 创建项目
func (r *ProjectRepository) CreateProject(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// FindProjectByID 根据ID查找项目（含任务）
func (r *ProjectRepository) FindProjectByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Preload("Jobs").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// FindAllProjects 查询项目列表
func (r *ProjectRepository) FindAllProjects(ctx context.Context, contractID string) ([]entity.Project, error) {
	var items []entity.Project
	query := r.db.WithContext(ctx).Model(&entity.Project{})
	if contractID != "" {
		query = query.Where("contract_id = ?", contractID)
	}
	err := query.Preload("Jobs").Order("created_at DESC").Find(&items).Error
	return items, err
}

// --- Job ---

// CreateJob 创建任务
func (r *ProjectRepository) CreateJob(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// FindJobByID 根据ID查找任务
func (r *ProjectRepository) FindJobByID(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindJobsByIDs 批量查找任务
func (r *ProjectRepository) FindJobsByIDs(ctx context.Context, ids []string) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&jobs).Error
	return jobs, err
}

// UpdateJob 更新任务
func (r *ProjectRepository) UpdateJob(ctx context.Context, job *entity.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// UpdateJobStatusGuarded 任务状态守卫更新，返回受影响行数
func (r *ProjectRepository) UpdateJobStatusGuarded(ctx context.Context, id, from, to string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Job{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}
