package handler

import (
	"net/http"

	"assetdesk/internal/middleware"
	"assetdesk/internal/model"
	"assetdesk/internal/service"
	"assetdesk/pkg/pagination"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
	queryService   service.RequestQueryService
}

func NewRequestHandler(requestService service.RequestService, queryService service.RequestQueryService) *RequestHandler {
	return &RequestHandler{requestService: requestService, queryService: queryService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff))
	{
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/summary", h.GetSummary)
		requests.GET("/:id", h.GetRequest)
		// The approve/reject paths keep the casing the dashboard client uses.
		requests.PUT("/Accepted/:id", h.AcceptRequest)
		requests.PUT("/Rejected/:id", h.RejectRequest)
		requests.DELETE("/:id", h.DeleteRequest)
	}
}

// CreateRequest submits a new asset request
// @Summary      Create request
// @Description  Creates a typed asset request in pending state
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestInput  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var input service.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests returns a filtered, paginated page of requests with the
// counts-by-type aggregate for the dashboard cards
// @Summary      List requests
// @Description  Paginated, filtered listing with counts by type
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        search       query  string  false  "Search by asset name or tag"
// @Param        requestedBy  query  string  false  "Filter by requester id"
// @Param        assignedTo   query  string  false  "Filter by assignee id"
// @Param        department   query  string  false  "Filter by department id"
// @Param        type         query  string  false  "Filter by request type"
// @Param        status       query  string  false  "Filter by status"
// @Success      200  {object}  service.RequestListResult
// @Failure      400  {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.RequestListFilter{
		RequestedBy:  c.Query("requestedBy"),
		RequestedTo:  c.Query("assignedTo"),
		DepartmentID: c.Query("department"),
		Type:         c.Query("type"),
		Status:       c.Query("status"),
		Search:       c.Query("search"),
		Page:         params.Page,
		Limit:        params.Limit,
	}

	result, err := h.queryService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSummary returns counts by type scoped to a user or department
// @Summary      Request summary
// @Description  Counts-by-type aggregate for dashboard summary cards
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        requestedBy  query  string  false  "Scope to requester id"
// @Param        department   query  string  false  "Scope to department id"
// @Success      200  {object}  response.Response{data=service.RequestCounts}
// @Router       /api/requests/summary [get]
func (h *RequestHandler) GetSummary(c *gin.Context) {
	filter := service.RequestListFilter{
		RequestedBy:  c.Query("requestedBy"),
		RequestedTo:  c.Query("assignedTo"),
		DepartmentID: c.Query("department"),
	}

	counts, err := h.queryService.Counts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}

// GetRequest returns a single request by id
// @Summary      Get request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AcceptRequest transitions a pending request to accepted and applies the
// asset side effect for its type
// @Summary      Accept request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Request ID"
// @Param        payload  body      service.TransitionInput  true  "Acting user"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/Accepted/{id} [put]
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	h.transition(c, model.RequestStatusAccepted)
}

// RejectRequest transitions a pending request to rejected; asset state is
// never touched
// @Summary      Reject request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Request ID"
// @Param        payload  body      service.TransitionInput  true  "Acting user"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/Rejected/{id} [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	h.transition(c, model.RequestStatusRejected)
}

func (h *RequestHandler) transition(c *gin.Context, newStatus string) {
	var input service.TransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		// Fall back to the authenticated user when the body omits UserId.
		input.UserID = c.GetString("userID")
	}
	if input.UserID == "" {
		input.UserID = c.GetString("userID")
	}

	result, err := h.requestService.Transition(c.Request.Context(), c.Param("id"), newStatus, input.UserID, input.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeleteRequest removes a pending request; only its creator may do this
// @Summary      Delete request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	byUser := c.GetString("userID")

	if err := h.requestService.Delete(c.Request.Context(), c.Param("id"), byUser); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
