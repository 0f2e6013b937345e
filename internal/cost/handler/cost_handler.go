package handler

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/abushanisro/mithran-sub001/internal/cost/service"
	"github.com/gin-gonic/gin"
)

type CostHandler struct {
	rollup *service.RollupService
	report *service.ReportService
	input  *service.CostInputService
}

func NewCostHandler(rollup *service.RollupService, report *service.ReportService, input *service.CostInputService) *CostHandler {
	return &CostHandler{rollup: rollup, report: report, input: input}
}

// Recalculate POST /items/:id/recalculate
func (h *CostHandler) Recalculate(c *gin.Context) {
	itemID := c.Param("id")
	ownerID := GetUserID(c)

	rec, err := h.rollup.Recalculate(c.Request.Context(), itemID, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, rec)
}

// Propagate POST /items/:id/propagate
func (h *CostHandler) Propagate(c *gin.Context) {
	itemID := c.Param("id")
	ownerID := GetUserID(c)

	if err := h.rollup.PropagateToAncestors(c.Request.Context(), itemID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"item_id": itemID})
}

// RecalculateAll POST /boms/:id/recalculate
func (h *CostHandler) RecalculateAll(c *gin.Context) {
	bomID := c.Param("id")
	ownerID := GetUserID(c)

	processed, err := h.rollup.RecalculateAll(c.Request.Context(), bomID, ownerID)
	if err != nil {
		// 中途失败也回报已完成数量，调用方据此判断哪些totalCost可信
		status, code := 500, 50000
		if errors.Is(err, service.ErrCyclicHierarchy) {
			status, code = 422, 42200
		}
		c.JSON(status, Response{
			Code:    code,
			Message: err.Error(),
			Data:    gin.H{"items_processed": processed},
		})
		return
	}
	Success(c, gin.H{"items_processed": processed})
}

// GetHierarchy GET /items/:id/hierarchy
func (h *CostHandler) GetHierarchy(c *gin.Context) {
	itemID := c.Param("id")
	ownerID := GetUserID(c)

	node, err := h.report.GetHierarchy(c.Request.Context(), itemID, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, node)
}

// GetBOMReport GET /boms/:id/report
func (h *CostHandler) GetBOMReport(c *gin.Context) {
	bomID := c.Param("id")
	ownerID := GetUserID(c)

	report, err := h.report.GetBOMReport(c.Request.Context(), bomID, ownerID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, report)
}

// ExportBOMReport GET /boms/:id/report/export
func (h *CostHandler) ExportBOMReport(c *gin.Context) {
	bomID := c.Param("id")
	ownerID := GetUserID(c)

	f, filename, err := h.report.ExportBOMReport(c.Request.Context(), bomID, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.QueryEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write xlsx: "+err.Error())
	}
}

// ListStaleItems GET /boms/:id/stale-items
func (h *CostHandler) ListStaleItems(c *gin.Context) {
	bomID := c.Param("id")
	ownerID := GetUserID(c)

	items, err := h.report.ListStaleItems(c.Request.Context(), bomID, ownerID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": items})
}

// UpdateCostInputs PUT /items/:id/cost-inputs
func (h *CostHandler) UpdateCostInputs(c *gin.Context) {
	itemID := c.Param("id")
	ownerID := GetUserID(c)

	var req service.UpdateCostInputsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	rec, err := h.input.UpdateCostInputs(c.Request.Context(), itemID, ownerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, rec)
}

// AddPackagingEntry POST /items/:id/packaging-entries
func (h *CostHandler) AddPackagingEntry(c *gin.Context) {
	itemID := c.Param("id")
	ownerID := GetUserID(c)

	var req service.CostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	entry, err := h.input.AddPackagingEntry(c.Request.Context(), itemID, ownerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, entry)
}

// AddProcuredEntry POST /items/:id/procured-entries
func (h *CostHandler) AddProcuredEntry(c *gin.Context) {
	itemID := c.Param("id")
	ownerID := GetUserID(c)

	var req service.CostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	entry, err := h.input.AddProcuredEntry(c.Request.Context(), itemID, ownerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, entry)
}

// DeactivatePackagingEntry PATCH /packaging-entries/:entryId/deactivate
func (h *CostHandler) DeactivatePackagingEntry(c *gin.Context) {
	entryID := c.Param("entryId")
	ownerID := GetUserID(c)

	if err := h.input.DeactivatePackagingEntry(c.Request.Context(), entryID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"entry_id": entryID})
}

// DeactivateProcuredEntry PATCH /procured-entries/:entryId/deactivate
func (h *CostHandler) DeactivateProcuredEntry(c *gin.Context) {
	entryID := c.Param("entryId")
	ownerID := GetUserID(c)

	if err := h.input.DeactivateProcuredEntry(c.Request.Context(), entryID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"entry_id": entryID})
}
