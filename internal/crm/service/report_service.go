package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-crm/internal/crm/apperr"
	"github.com/bitfantasy/nimo-crm/internal/crm/entity"
	"github.com/bitfantasy/nimo-crm/internal/crm/repository"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const reportCacheTTL = 60 * time.Second

// ReportService 聚合报表，只读。读模型允许与并发写最终一致，
// 结果短期缓存在 Redis。
type ReportService struct {
	db          *gorm.DB
	oppRepo     *repository.OpportunityRepository
	projectRepo *repository.ProjectRepository
	catalogRepo *repository.CatalogRepository
	rdb         *redis.Client
}

func NewReportService(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client) *ReportService {
	return &ReportService{
		db:          db,
		oppRepo:     repos.Opportunity,
		projectRepo: repos.Project,
		catalogRepo: repos.Catalog,
		rdb:         rdb,
	}
}

// StatusCount 状态汇总行。Percent 保留原始值，展示层自行取整。
type StatusCount struct {
	Status  string  `json:"status"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// SummarizeStatus 按状态统计商机数量与占比（总数下限取1，避免除零）
func SummarizeStatus(opps []entity.Opportunity) []StatusCount {
	counts := make(map[string]int)
	for _, opp := range opps {
		counts[opp.Status]++
	}

	total := len(opps)
	if total < 1 {
		total = 1
	}

	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	result := make([]StatusCount, 0, len(statuses))
	for _, status := range statuses {
		result = append(result, StatusCount{
			Status:  status,
			Count:   counts[status],
			Percent: float64(counts[status]) / float64(total) * 100,
		})
	}
	return result
}

// DayBucket 按天统计行
type DayBucket struct {
	Date  string `json:"date"` // 2006-01-02
	Count int    `json:"count"`
}

// BucketByDay 统计最近 days 个自然日每天创建的商机数量。
// 缺失创建时间的记录被排除，不会默认算作当天。
func BucketByDay(opps []entity.Opportunity, days int, now time.Time) []DayBucket {
	if days < 1 {
		days = 1
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))

	counts := make(map[string]int, days)
	for _, opp := range opps {
		if opp.CreatedAt.IsZero() {
			continue
		}
		created := opp.CreatedAt.In(now.Location())
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, now.Location())
		if day.Before(start) || day.After(today) {
			continue
		}
		counts[day.Format("2006-01-02")]++
	}

	buckets := make([]DayBucket, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets = append(buckets, DayBucket{Date: date, Count: counts[date]})
	}
	return buckets
}

// ServiceUsage 热门服务统计行
type ServiceUsage struct {
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Quantity    int    `json:"quantity"`
}

// TallyPopularServices 按服务汇总商机行与合同报价行的数量，
// 按数量稳定降序。完全没有使用数据时回退展示整个目录（数量为0），
// 否则省略零使用的服务。
func TallyPopularServices(opps []entity.Opportunity, contracts []entity.Contract, catalog []entity.Service) []ServiceUsage {
	names := make(map[string]string, len(catalog))
	for _, svc := range catalog {
		names[svc.ID] = svc.Name
	}

	totals := make(map[string]int)
	for _, opp := range opps {
		for _, line := range opp.Services {
			totals[line.ServiceID] += line.Quantity
		}
	}
	for _, contract := range contracts {
		if contract.Quote == nil {
			continue
		}
		for _, item := range contract.Quote.Items {
			totals[item.ServiceID] += item.Quantity
		}
	}

	if len(totals) == 0 {
		// 无使用数据：整目录回退
		result := make([]ServiceUsage, 0, len(catalog))
		for _, svc := range catalog {
			result = append(result, ServiceUsage{ServiceID: svc.ID, ServiceName: svc.Name})
		}
		return result
	}

	result := make([]ServiceUsage, 0, len(totals))
	for serviceID, qty := range totals {
		result = append(result, ServiceUsage{
			ServiceID:   serviceID,
			ServiceName: names[serviceID],
			Quantity:    qty,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Quantity != result[j].Quantity {
			return result[i].Quantity > result[j].Quantity
		}
		return result[i].ServiceID < result[j].ServiceID
	})
	return result
}

// StatusSummary 商机状态汇总
func (s *ReportService) StatusSummary(ctx context.Context) ([]StatusCount, error) {
	var cached []StatusCount
	if s.fromCache(ctx, "crm:report:status_summary", &cached) {
		return cached, nil
	}

	opps, err := s.oppRepo.FindAllForReport(ctx)
	if err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	result := SummarizeStatus(opps)
	s.toCache(ctx, "crm:report:status_summary", result)
	return result, nil
}

// CreatedBuckets 最近N天商机创建趋势
func (s *ReportService) CreatedBuckets(ctx context.Context, days int) ([]DayBucket, error) {
	key := fmt.Sprintf("crm:report:created_buckets:%d", days)
	var cached []DayBucket
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	opps, err := s.oppRepo.FindAllForReport(ctx)
	if err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	result := BucketByDay(opps, days, time.Now())
	s.toCache(ctx, key, result)
	return result, nil
}

// PopularServices 热门服务排行
func (s *ReportService) PopularServices(ctx context.Context) ([]ServiceUsage, error) {
	var cached []ServiceUsage
	if s.fromCache(ctx, "crm:report:popular_services", &cached) {
		return cached, nil
	}

	opps, err := s.oppRepo.FindAllForReport(ctx)
	if err != nil {
		return nil, apperr.Upstream("商机", err)
	}
	contracts, err := s.projectRepo.FindAllContracts(ctx)
	if err != nil {
		return nil, apperr.Upstream("合同", err)
	}
	catalog, err := s.catalogRepo.FindAll(ctx, "")
	if err != nil {
		return nil, apperr.Upstream("服务目录", err)
	}

	result := TallyPopularServices(opps, contracts, catalog)
	s.toCache(ctx, "crm:report:popular_services", result)
	return result, nil
}

// ExportOpportunities 导出商机列表为Excel
func (s *ReportService) ExportOpportunities(ctx context.Context) (*excelize.File, string, error) {
	opps, err := s.oppRepo.FindAllForReport(ctx)
	if err != nil {
		return nil, "", apperr.Upstream("商机", err)
	}

	f := excelize.NewFile()
	sheet := "Opportunities"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"编码", "名称", "状态", "优先级", "业务领域", "预期价格", "预期收入", "成功率(%)", "创建时间"}
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, opp := range opps {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), opp.Code)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), opp.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), opp.Status)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), opp.Priority)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), opp.BusinessField)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), opp.ExpectedPrice)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), opp.ExpectedRevenue)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), opp.SuccessRate)
		if !opp.CreatedAt.IsZero() {
			f.SetCellValue(sheet, fmt.Sprintf("I%d", row), opp.CreatedAt.Format("2006-01-02 15:04"))
		}
	}

	filename := fmt.Sprintf("opportunities_%s.xlsx", time.Now().Format("20060102_150405"))
	return f, filename, nil
}

func (s *ReportService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (s *ReportService) toCache(ctx context.Context, key string, value interface{}) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.rdb.Set(ctx, key, raw, reportCacheTTL)
}
