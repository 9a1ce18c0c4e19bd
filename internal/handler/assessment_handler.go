package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathlight/assessment-backend/internal/bank"
	"github.com/pathlight/assessment-backend/internal/engine"
	"github.com/pathlight/assessment-backend/internal/middleware"
	"github.com/pathlight/assessment-backend/internal/model"
	"github.com/pathlight/assessment-backend/internal/response"
	"github.com/pathlight/assessment-backend/internal/store"
	"github.com/pathlight/assessment-backend/internal/validator"
)

// AssessmentHandler handles the test catalog and session lifecycle
// endpoints.
type AssessmentHandler struct {
	engine *engine.Engine
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(eng *engine.Engine) *AssessmentHandler {
	return &AssessmentHandler{engine: eng}
}

// ListTests godoc
// GET /api/v1/tests
// Lists the available test definitions.
func (h *AssessmentHandler) ListTests(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"tests": h.engine.ListTests()})
}

// StartSession godoc
// POST /api/v1/tests/:test_id/start
// Starts a session for the caller, or resumes their active one.
func (h *AssessmentHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	resp, err := h.engine.Start(c.Request.Context(), c.Param("test_id"), claims.OwnerID)
	if err != nil {
		failFromError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, resp)
}

// FetchPage godoc
// GET /api/v1/sessions/:session_id/questions?page=N
// Returns one page of questions with any answers already stored for it.
func (h *AssessmentHandler) FetchPage(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	view, err := h.engine.FetchPage(c.Request.Context(), sessionID, claims.OwnerID, page)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// SubmitAnswers godoc
// POST /api/v1/sessions/:session_id/answers
// Submits the answers for the session's current page. Accepting the last
// page scores the session in the same request.
func (h *AssessmentHandler) SubmitAnswers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitPageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.engine.SubmitPage(c.Request.Context(), sessionID, claims.OwnerID, &req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// AttachDemographics godoc
// POST /api/v1/sessions/:session_id/demographics
// Stores an opaque demographics payload on the session.
func (h *AssessmentHandler) AttachDemographics(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.DemographicsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.engine.AttachDemographics(c.Request.Context(), sessionID, claims.OwnerID, req.Payload); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stored": true})
}

// AbortSession godoc
// POST /api/v1/sessions/:session_id/abort
// Abandons an active session. No result will ever exist for it.
func (h *AssessmentHandler) AbortSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.engine.Abort(c.Request.Context(), sessionID, claims.OwnerID); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"aborted": true})
}

// GetResult godoc
// GET /api/v1/sessions/:session_id/result
// Returns the session's score result once it is settled.
func (h *AssessmentHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.engine.FinalizeResult(c.Request.Context(), sessionID, claims.OwnerID)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// failFromError maps engine and store errors onto HTTP statuses and typed
// error codes.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound), errors.Is(err, bank.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, bank.ErrPageOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrPageOutOfRange)
	case errors.Is(err, engine.ErrPageNotReady), errors.Is(err, engine.ErrWrongPage):
		response.Fail(c, http.StatusConflict, response.ErrPageNotReady)
	case errors.Is(err, engine.ErrIncompleteAnswers):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrIncompleteAnswers)
	case errors.Is(err, engine.ErrInvalidAnswer):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidAnswer)
	case errors.Is(err, engine.ErrSessionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, engine.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, engine.ErrResultNotReady):
		response.Fail(c, http.StatusTooEarly, response.ErrResultNotReady)
	case errors.Is(err, engine.ErrNoResult):
		response.Fail(c, http.StatusGone, response.ErrNoResult)
	case errors.Is(err, store.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
