package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smoother-operators/memolith/internal/app"
	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/logging"
	"github.com/smoother-operators/memolith/internal/reporting"
)

type operatorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func operatorToResponse(operator domain.Operator) operatorResponse {
	return operatorResponse{
		ID:        operator.ID.String(),
		Name:      operator.Name,
		Email:     operator.Email,
		Phone:     operator.Phone,
		CreatedAt: operator.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: operator.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type operatorErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeOperatorJSON(ctx context.Context, w http.ResponseWriter, statusCode int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal response: %w", err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(response)
}

func writeOperatorError(ctx context.Context, w http.ResponseWriter, statusCode int, errorLabel, message string) {
	writeOperatorJSON(ctx, w, statusCode, operatorErrorResponse{
		Error:   errorLabel,
		Message: message,
	})
}

type listOperatorsResponse struct {
	Data  []operatorResponse `json:"data"`
	Count int                `json:"count"`
}

func MakeListOperatorsHandler(
	listOperators app.ListOperators,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("list_operators"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("list_operators"),
		trackingMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		operators, err := listOperators(ctx)
		if err != nil {
			// NOTE: Repository implementations handle their own error reporting
			writeOperatorError(ctx, w, http.StatusInternalServerError, "Internal server error", "Could not list operators")
			return
		}

		data := make([]operatorResponse, 0, len(operators))
		for _, operator := range operators {
			data = append(data, operatorToResponse(operator))
		}

		writeOperatorJSON(ctx, w, http.StatusOK, listOperatorsResponse{
			Data:  data,
			Count: len(data),
		})
	}

	return middleware(handler)
}

func MakeGetOperatorHandler(
	getOperator app.GetOperator,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("get_operator"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("get_operator"),
		trackingMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rawID := r.PathValue("id")

		ctx = logging.AddMetaToContext(ctx, slog.String("operatorId", rawID))
		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"operatorId": rawID,
			},
		)

		id, err := uuid.Parse(rawID)
		if err != nil {
			writeOperatorError(ctx, w, http.StatusBadRequest, "Invalid operator ID", fmt.Sprintf("%q is not a valid operator ID", rawID))
			return
		}

		operator, err := getOperator(ctx, id)
		if errors.Is(err, domain.ErrOperatorNotFound) {
			writeOperatorError(ctx, w, http.StatusNotFound, "Operator not found", fmt.Sprintf("no operator exists with ID %q", rawID))
			return
		}
		if err != nil {
			writeOperatorError(ctx, w, http.StatusInternalServerError, "Internal server error", "Could not get operator")
			return
		}

		writeOperatorJSON(ctx, w, http.StatusOK, operatorToResponse(operator))
	}

	return middleware(handler)
}

type createOperatorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type operatorMutationResponse struct {
	Message string           `json:"message"`
	Data    operatorResponse `json:"data"`
}

func MakeCreateOperatorHandler(
	createOperator app.CreateOperator,
	authMiddleware func(http.HandlerFunc) http.HandlerFunc,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("create_operator"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("create_operator"),
		trackingMiddleware,
		newMutationRateLimitMiddleware(),
		authMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()

		var request createOperatorRequest
		if err := decoder.Decode(&request); err != nil {
			writeOperatorError(ctx, w, http.StatusBadRequest, "Invalid request body", fmt.Sprintf("could not parse request body: %s", err.Error()))
			return
		}

		ctx = logging.AddMetaToContext(ctx, slog.String("email", request.Email))

		operator, err := createOperator(ctx, request.Name, request.Email, request.Phone)
		if errors.Is(err, domain.ErrInvalidInput) {
			writeOperatorError(ctx, w, http.StatusBadRequest, "Validation failed", invalidInputMessage(err))
			return
		} else if errors.Is(err, domain.ErrDuplicateEmail) {
			writeOperatorError(ctx, w, http.StatusConflict, "Email address already in use", fmt.Sprintf("an operator with email %q already exists", strings.TrimSpace(request.Email)))
			return
		}

		if err != nil {
			writeOperatorError(ctx, w, http.StatusInternalServerError, "Internal server error", "Could not create operator")
			return
		}

		writeOperatorJSON(ctx, w, http.StatusCreated, operatorMutationResponse{
			Message: "Operator created successfully",
			Data:    operatorToResponse(operator),
		})
	}

	return middleware(handler)
}

type updateOperatorRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func MakeUpdateOperatorHandler(
	updateOperator app.UpdateOperator,
	authMiddleware func(http.HandlerFunc) http.HandlerFunc,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("update_operator"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("update_operator"),
		trackingMiddleware,
		newMutationRateLimitMiddleware(),
		authMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rawID := r.PathValue("id")

		ctx = logging.AddMetaToContext(ctx, slog.String("operatorId", rawID))
		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"operatorId": rawID,
			},
		)

		id, err := uuid.Parse(rawID)
		if err != nil {
			writeOperatorError(ctx, w, http.StatusBadRequest, "Invalid operator ID", fmt.Sprintf("%q is not a valid operator ID", rawID))
			return
		}

		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()

		var request updateOperatorRequest
		if err := decoder.Decode(&request); err != nil {
			writeOperatorError(ctx, w, http.StatusBadRequest, "Invalid request body", fmt.Sprintf("could not parse request body: %s", err.Error()))
			return
		}

		operator, err := updateOperator(ctx, id, app.OperatorUpdate{
			Name:  request.Name,
			Email: request.Email,
			Phone: request.Phone,
		})
		if errors.Is(err, domain.ErrOperatorNotFound) {
			writeOperatorError(ctx, w, http.StatusNotFound, "Operator not found", fmt.Sprintf("no operator exists with ID %q", rawID))
			return
		} else if errors.Is(err, domain.ErrInvalidInput) {
			writeOperatorError(ctx, w, http.StatusBadRequest, "Validation failed", invalidInputMessage(err))
			return
		} else if errors.Is(err, domain.ErrDuplicateEmail) {
			writeOperatorError(ctx, w, http.StatusConflict, "Email address already in use", "another operator is already using this email address")
			return
		}

		if err != nil {
			writeOperatorError(ctx, w, http.StatusInternalServerError, "Internal server error", "Could not update operator")
			return
		}

		writeOperatorJSON(ctx, w, http.StatusOK, operatorMutationResponse{
			Message: "Operator updated successfully",
			Data:    operatorToResponse(operator),
		})
	}

	return middleware(handler)
}

type operatorDeletedResponse struct {
	Message string `json:"message"`
}

func MakeDeleteOperatorHandler(
	deleteOperator app.DeleteOperator,
	authMiddleware func(http.HandlerFunc) http.HandlerFunc,
	trackingMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := ComposeMiddlewares(
		buildMetricsMiddleware("delete_operator"),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware("delete_operator"),
		trackingMiddleware,
		newMutationRateLimitMiddleware(),
		authMiddleware,
	)

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rawID := r.PathValue("id")

		ctx = logging.AddMetaToContext(ctx, slog.String("operatorId", rawID))
		ctx = reporting.AddExtrasToContext(ctx,
			map[string]string{
				"operatorId": rawID,
			},
		)

		id, err := uuid.Parse(rawID)
		if err != nil {
			writeOperatorError(ctx, w, http.StatusBadRequest, "Invalid operator ID", fmt.Sprintf("%q is not a valid operator ID", rawID))
			return
		}

		err = deleteOperator(ctx, id)
		if errors.Is(err, domain.ErrOperatorNotFound) {
			writeOperatorError(ctx, w, http.StatusNotFound, "Operator not found", fmt.Sprintf("no operator exists with ID %q", rawID))
			return
		}

		if err != nil {
			writeOperatorError(ctx, w, http.StatusInternalServerError, "Internal server error", "Could not delete operator")
			return
		}

		writeOperatorJSON(ctx, w, http.StatusOK, operatorDeletedResponse{
			Message: "Operator deleted successfully",
		})
	}

	return middleware(handler)
}
