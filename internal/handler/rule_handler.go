package handler

import (
	"net/http"

	"expensehub/internal/middleware"
	"expensehub/internal/model"
	"expensehub/internal/service"
	"expensehub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RuleHandler struct {
	ruleService service.ApprovalRuleService
}

func NewRuleHandler(ruleService service.ApprovalRuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// RegisterRoutes binds the approval rule endpoints. Rules are managed by
// admins and managers.
func (h *RuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/approval-rules")
	{
		rules.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.ListRules)
		rules.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.GetRule)
		rules.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.CreateRule)
		rules.PUT("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.UpdateRule)
		rules.DELETE("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.DeleteRule)
		rules.POST("/setup-default", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.SetupDefaultRule)
	}
}

// ListRules returns all approval rules of the company
// @Summary      List approval rules
// @Description  Retrieves all approval rules of the caller's company
// @Tags         approval-rules
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.ApprovalRule}
// @Failure      500  {object}  response.Response
// @Router       /api/approval-rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}

// GetRule returns one approval rule
// @Summary      Get approval rule
// @Description  Retrieves a single approval rule by ID
// @Tags         approval-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response{data=model.ApprovalRule}
// @Failure      404  {object}  response.Response
// @Router       /api/approval-rules/{id} [get]
func (h *RuleHandler) GetRule(c *gin.Context) {
	companyID, _ := middleware.CurrentCompanyID(c)
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid rule ID"))
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), companyID, ruleID)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// CreateRule creates a new approval rule
// @Summary      Create approval rule
// @Description  Creates an approval rule with amount threshold conditions and an ordered approver list
// @Tags         approval-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRuleRequest  true  "Create Rule Payload"
// @Success      201      {object}  response.Response{data=model.ApprovalRule}
// @Failure      400      {object}  response.Response
// @Router       /api/approval-rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), companyID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule updates an approval rule
// @Summary      Update approval rule
// @Description  Updates an approval rule's conditions, approvers, type, or active state
// @Tags         approval-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Rule ID"
// @Param        payload  body      service.UpdateRuleRequest  true  "Update Rule Payload"
// @Success      200      {object}  response.Response{data=model.ApprovalRule}
// @Failure      400      {object}  response.Response
// @Router       /api/approval-rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	companyID, _ := middleware.CurrentCompanyID(c)
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid rule ID"))
		return
	}

	var req service.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), companyID, ruleID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule removes an approval rule
// @Summary      Delete approval rule
// @Description  Deletes an approval rule. Expenses already routed keep their workflow.
// @Tags         approval-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/approval-rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	companyID, _ := middleware.CurrentCompanyID(c)
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid rule ID"))
		return
	}

	if err := h.ruleService.DeleteRule(c.Request.Context(), companyID, ruleID); err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Approval rule deleted"}))
}

// SetupDefaultRule creates the catch-all default rule
// @Summary      Setup default approval rule
// @Description  Creates the zero-threshold default rule routing every expense through the company's managers and admins
// @Tags         approval-rules
// @Security     BearerAuth
// @Produce      json
// @Success      201  {object}  response.Response{data=model.ApprovalRule}
// @Failure      400  {object}  response.Response
// @Router       /api/approval-rules/setup-default [post]
func (h *RuleHandler) SetupDefaultRule(c *gin.Context) {
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	rule, err := h.ruleService.SetupDefaultRule(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}
