package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories CRM仓库集合
type Repositories struct {
	User        *UserRepository
	Customer    *CustomerRepository
	Catalog     *CatalogRepository
	Opportunity *OpportunityRepository
	Quote       *QuoteRepository
	Project     *ProjectRepository
	Acceptance  *AcceptanceRepository
}

// NewRepositories 创建CRM仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Customer:    NewCustomerRepository(db),
		Catalog:     NewCatalogRepository(db),
		Opportunity: NewOpportunityRepository(db),
		Quote:       NewQuoteRepository(db),
		Project:     NewProjectRepository(db),
		Acceptance:  NewAcceptanceRepository(db),
	}
}
