package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// reportCacheTTL BOM报表缓存时长
const reportCacheTTL = 5 * time.Minute

// ReportCache BOM报表的redis缓存，nil client时全部降级为直读
// 缓存只是读路径优化，redis故障不影响正确性
type ReportCache struct {
	rdb *redis.Client
}

func NewReportCache(rdb *redis.Client) *ReportCache {
	return &ReportCache{rdb: rdb}
}

func reportCacheKey(bomID, ownerID string) string {
	return fmt.Sprintf("costengine:report:%s:%s", bomID, ownerID)
}

// Get 读取缓存的报表，未命中或反序列化失败返回false
func (c *ReportCache) Get(ctx context.Context, bomID, ownerID string) (*BOMReport, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, reportCacheKey(bomID, ownerID)).Bytes()
	if err != nil {
		return nil, false
	}
	var report BOMReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false
	}
	return &report, true
}

// Set 写入报表缓存
func (c *ReportCache) Set(ctx context.Context, bomID, ownerID string, report *BOMReport) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, reportCacheKey(bomID, ownerID), data, reportCacheTTL)
}

// Invalidate 重算或输入变更后失效对应BOM的报表缓存
func (c *ReportCache) Invalidate(ctx context.Context, bomID, ownerID string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, reportCacheKey(bomID, ownerID))
}
