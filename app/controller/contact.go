package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-contact/app/dto"
	"github.com/vibast-solutions/ms-go-contact/app/service"
)

type validationResponse struct {
	Error   string           `json:"error"`
	Details []dto.FieldError `json:"details"`
}

type ContactController struct {
	delivery *service.DeliveryService
	reporter *service.Reporter
}

// NewContactController constructs the HTTP contact controller.
func NewContactController(delivery *service.DeliveryService, reporter *service.Reporter) *ContactController {
	return &ContactController{delivery: delivery, reporter: reporter}
}

// Submit validates a contact form submission and delivers it.
func (c *ContactController) Submit(ctx echo.Context) error {
	req, err := dto.FromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		var validationErr *dto.ValidationError
		if errors.As(err, &validationErr) {
			return ctx.JSON(http.StatusBadRequest, validationResponse{Error: "Validation failed", Details: validationErr.Fields})
		}
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	reqCtx := ctx.Request().Context()
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		reqCtx = service.WithSubmissionID(reqCtx, id)
	}

	outcome := c.delivery.Deliver(reqCtx, req)
	status, body := c.reporter.Report(outcome)
	return ctx.JSON(status, body)
}

// Health reports liveness.
func Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok", "message": "Server is running"})
}
