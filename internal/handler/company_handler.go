package handler

import (
	"net/http"

	"expensehub/internal/middleware"
	"expensehub/internal/model"
	"expensehub/internal/service"
	"expensehub/pkg/pagination"
	"expensehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type CompanyHandler struct {
	companyService service.CompanyService
	auditService   service.AuditService
}

func NewCompanyHandler(companyService service.CompanyService, auditService service.AuditService) *CompanyHandler {
	return &CompanyHandler{companyService: companyService, auditService: auditService}
}

func (h *CompanyHandler) RegisterRoutes(router *gin.RouterGroup) {
	company := router.Group("/api/company")
	{
		company.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleEmployee), h.GetCompany)
		company.PUT("/settings", middleware.RequireRole(model.RoleAdmin), h.UpdateSettings)
		company.GET("/audit-logs", middleware.RequireRole(model.RoleAdmin), h.ListAuditLogs)
	}
}

// GetCompany returns the caller's company
// @Summary      Get company
// @Description  Retrieves the caller's company with its settings
// @Tags         company
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.Company}
// @Failure      404  {object}  response.Response
// @Router       /api/company [get]
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	company, err := h.companyService.GetCompany(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, company))
}

// UpdateSettings updates the company name and approval settings
// @Summary      Update company settings
// @Description  Updates company name and default approval rule settings
// @Tags         company
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpdateCompanySettingsRequest  true  "Settings Payload"
// @Success      200      {object}  response.Response{data=model.Company}
// @Failure      400      {object}  response.Response
// @Router       /api/company/settings [put]
func (h *CompanyHandler) UpdateSettings(c *gin.Context) {
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	var req service.UpdateCompanySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	company, err := h.companyService.UpdateSettings(c.Request.Context(), companyID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, company))
}

// ListAuditLogs returns the company audit trail
// @Summary      List audit logs
// @Description  Retrieves a paginated list of the company's audit log entries
// @Tags         company
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/company/audit-logs [get]
func (h *CompanyHandler) ListAuditLogs(c *gin.Context) {
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	params := pagination.Parse(c)
	logs, total, err := h.auditService.ListCompanyLogs(c.Request.Context(), companyID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
