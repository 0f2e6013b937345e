package service

import (
	"github.com/abushanisro/mithran-sub001/internal/cost/repository"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Rollup    *RollupService
	Report    *ReportService
	CostInput *CostInputService
}

// NewServices 创建服务集合（rdb可为nil，此时报表缓存关闭）
func NewServices(repos *repository.Repositories, rdb *redis.Client) *Services {
	cache := NewReportCache(rdb)
	rollup := NewRollupService(repos.Item, repos.CostRecord, repos.CostEntry, cache)
	return &Services{
		Rollup:    rollup,
		Report:    NewReportService(repos.Item, repos.CostRecord, cache),
		CostInput: NewCostInputService(repos.Item, repos.CostRecord, repos.CostEntry, rollup),
	}
}
