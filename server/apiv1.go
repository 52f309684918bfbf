package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ayatoki/kiroku/analyzer"
	kerrors "github.com/ayatoki/kiroku/internal/errors"
	"github.com/ayatoki/kiroku/internal/profile"
	"github.com/ayatoki/kiroku/server/middleware"
	"github.com/ayatoki/kiroku/store"
)

// APIV1Service bundles the /api/v1 route handlers.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Engine  *analyzer.Engine

	rateLimiter *middleware.RateLimiter
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, engine *analyzer.Engine) *APIV1Service {
	return &APIV1Service{
		Profile:     profile,
		Store:       store,
		Engine:      engine,
		rateLimiter: middleware.NewRateLimiter(),
	}
}

// Register mounts the v1 routes on the echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	apiV1 := echoServer.Group("/api/v1", s.rateLimiter.Middleware())
	apiV1.POST("/analyze", s.handleAnalyze)
}

// AnalyzeRequest is the POST /api/v1/analyze payload.
type AnalyzeRequest struct {
	Content  string `json:"content"`
	Timezone string `json:"timezone,omitempty"`
	// Timestamp is when the note was captured, RFC 3339. Empty means now.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ErrorResponse is the error payload for non-200 responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorResponse(err error, defaultCode kerrors.ErrorCode) *ErrorResponse {
	response := &ErrorResponse{
		Code:    string(kerrors.GetCodeFromError(err, defaultCode)),
		Message: err.Error(),
	}
	var analysisErr *kerrors.AnalysisError
	if errors.As(err, &analysisErr) {
		response.Message = analysisErr.Message
	}
	return response
}

func (s *APIV1Service) handleAnalyze(c echo.Context) error {
	request := &AnalyzeRequest{}
	if err := c.Bind(request); err != nil {
		badRequest := kerrors.InvalidInput("リクエストの形式が正しくありません。")
		return c.JSON(http.StatusBadRequest, newErrorResponse(badRequest, kerrors.ErrCodeInvalidInput))
	}
	if request.Timezone == "" && s.Profile != nil {
		request.Timezone = s.Profile.Timezone
	}

	ctx := c.Request().Context()
	analyzeRequest := &analyzer.AnalyzeRequest{
		Input:    request.Content,
		Timezone: request.Timezone,
	}
	if request.Timestamp != nil {
		analyzeRequest.InputTimestamp = *request.Timestamp
	}
	if s.Store != nil {
		analyzeRequest.Context = s.Store.RecentContext(ctx)
	}

	result, err := s.Engine.Analyze(ctx, analyzeRequest)
	if err != nil {
		status := http.StatusInternalServerError
		if kerrors.IsCode(err, kerrors.ErrCodeTimezoneConversionFailed) || kerrors.IsCode(err, kerrors.ErrCodeInvalidInput) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, newErrorResponse(err, kerrors.ErrCodeValidationFailed))
	}

	return c.JSON(http.StatusOK, result)
}
