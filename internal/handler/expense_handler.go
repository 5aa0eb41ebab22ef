package handler

import (
	"net/http"

	"expensehub/internal/middleware"
	"expensehub/internal/model"
	"expensehub/internal/service"
	"expensehub/pkg/pagination"
	"expensehub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExpenseHandler struct {
	expenseService service.ExpenseService
}

func NewExpenseHandler(expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses")
	{
		expenses.POST("", middleware.RequireAuth(), h.SubmitExpense)
		expenses.GET("/my", middleware.RequireAuth(), h.MyExpenses)
		expenses.GET("/pending", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.PendingApprovals)
		expenses.GET("/company", middleware.RequirePermission(func(p model.Permissions) bool { return p.CanViewAllExpenses }), h.CompanyExpenses)
		expenses.GET("/:id", middleware.RequireAuth(), h.GetExpense)
		expenses.PUT("/:id/approve", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.DecideExpense)
		expenses.PUT("/:id/paid", middleware.RequireRole(model.RoleAdmin), h.MarkPaid)
		expenses.POST("/fix-unassigned", middleware.RequireRole(model.RoleAdmin), h.FixUnassigned)
	}
}

// SubmitExpense creates and routes a new expense
// @Summary      Submit expense
// @Description  Creates an expense, converts its amount to the company currency, and routes it into approval
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitExpenseRequest  true  "Submit Expense Payload"
// @Success      201      {object}  response.Response{data=model.Expense}
// @Failure      400      {object}  response.Response
// @Router       /api/expenses [post]
func (h *ExpenseHandler) SubmitExpense(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	var req service.SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.Submit(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// MyExpenses returns the caller's submitted expenses
// @Summary      List my expenses
// @Description  Retrieves a paginated list of expenses submitted by the caller, optionally filtered by status
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/expenses/my [get]
func (h *ExpenseHandler) MyExpenses(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	params := pagination.Parse(c)
	expenses, total, err := h.expenseService.MyExpenses(c.Request.Context(), userID, service.ExpenseListFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// PendingApprovals returns expenses waiting on the caller
// @Summary      List pending approvals
// @Description  Retrieves expenses currently gated on the caller's decision
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/expenses/pending [get]
func (h *ExpenseHandler) PendingApprovals(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	params := pagination.Parse(c)
	expenses, total, err := h.expenseService.PendingApprovals(c.Request.Context(), userID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// CompanyExpenses returns all company expenses
// @Summary      List company expenses
// @Description  Retrieves a paginated list of all expenses across the company, optionally filtered by status
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/expenses/company [get]
func (h *ExpenseHandler) CompanyExpenses(c *gin.Context) {
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	params := pagination.Parse(c)
	expenses, total, err := h.expenseService.CompanyExpenses(c.Request.Context(), companyID, service.ExpenseListFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetExpense returns one expense with relations
// @Summary      Get expense
// @Description  Retrieves a single expense of the caller's company with its workflow state
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response{data=model.Expense}
// @Failure      404  {object}  response.Response
// @Router       /api/expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	companyID, _ := middleware.CurrentCompanyID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid expense ID"))
		return
	}

	expense, err := h.expenseService.GetExpense(c.Request.Context(), companyID, expenseID)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// DecideExpense records an approve or reject decision
// @Summary      Decide on expense
// @Description  Records an approve or reject decision and advances the approval workflow
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Expense ID"
// @Param        payload  body      service.DecideExpenseRequest  true  "Decision Payload"
// @Success      200      {object}  response.Response{data=model.Expense}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/expenses/{id}/approve [put]
func (h *ExpenseHandler) DecideExpense(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid expense ID"))
		return
	}

	var req service.DecideExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	expense, err := h.expenseService.Decide(c.Request.Context(), expenseID, userID, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// MarkPaid marks an approved expense as paid
// @Summary      Mark expense paid
// @Description  Moves an approved expense to paid status
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response{data=model.Expense}
// @Failure      400  {object}  response.Response
// @Router       /api/expenses/{id}/paid [put]
func (h *ExpenseHandler) MarkPaid(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	companyID, _ := middleware.CurrentCompanyID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid expense ID"))
		return
	}

	expense, err := h.expenseService.MarkPaid(c.Request.Context(), companyID, expenseID, userID)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// FixUnassigned reassigns stuck expenses
// @Summary      Fix unassigned expenses
// @Description  Re-runs workflow assignment for pending expenses that have no current approver
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.FixUnassignedResult}
// @Failure      500  {object}  response.Response
// @Router       /api/expenses/fix-unassigned [post]
func (h *ExpenseHandler) FixUnassigned(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)
	companyID, ok := middleware.CurrentCompanyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Company not found in context"))
		return
	}

	result, err := h.expenseService.FixUnassigned(c.Request.Context(), companyID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
