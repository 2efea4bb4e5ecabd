package response

import (
	"errors"
	"net/http"
	"time"

	"edu-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key the request-id middleware sets.
const RequestIDKey = "request_id"

// SuccessResponse wraps every 2xx body.
type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every failed request. error_code is the
// stable machine-readable code, e.g. LEDGER_001.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

func OK(c *gin.Context, data any)      { write(c, http.StatusOK, data) }
func Created(c *gin.Context, data any) { write(c, http.StatusCreated, data) }

// Accepted reports work that was only partly applied, such as a sync run
// where one store could not be reached.
func Accepted(c *gin.Context, data any) { write(c, http.StatusAccepted, data) }

// Error renders err. Anything that is not an *apperror.AppError becomes an
// opaque SYS_000 so internal details never reach the client.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = &apperror.AppError{Code: "SYS_000", Message: "Internal server error", HTTPStatus: http.StatusInternalServerError}
	}
	id, ts := stamp(c)
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		RequestID: id,
		Timestamp: ts,
	})
}

func write(c *gin.Context, status int, data any) {
	id, ts := stamp(c)
	c.JSON(status, SuccessResponse{Data: data, RequestID: id, Timestamp: ts})
}

func stamp(c *gin.Context) (requestID, timestamp string) {
	requestID = c.GetString(RequestIDKey)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return requestID, time.Now().UTC().Format(time.RFC3339)
}
