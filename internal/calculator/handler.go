// Package calculator exposes the BREAD endpoints for calculation records
// plus the ad-hoc expression endpoint.
package calculator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Knetic/govaluate"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"calculations-service/internal/auth"
	"calculations-service/internal/calculation"
	"calculations-service/internal/handlers"
	"calculations-service/internal/models"
	"calculations-service/internal/observability"
	"calculations-service/internal/storage"
)

var tracer = otel.Tracer("calculator")

type CreateRequest struct {
	Type   string    `json:"type"`
	Inputs []float64 `json:"inputs"`
}

type UpdateRequest struct {
	Type   *string   `json:"type"`
	Inputs []float64 `json:"inputs"`
}

// Response mirrors the stored record with the result recomputed at response
// time. Result is null when the stored state can no longer be computed.
type Response struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Inputs []float64 `json:"inputs"`
	UserID *string   `json:"user_id"`
	Result *float64  `json:"result"`
}

func toResponse(c *models.Calculation) Response {
	resp := Response{
		ID:     c.ID,
		Type:   c.Type,
		Inputs: c.Inputs,
		UserID: c.UserID,
	}
	if result, err := calculation.Result(c); err == nil {
		resp.Result = &result
	}
	return resp
}

// writeValidationError maps a calculation validation failure to a 422 with
// the rule-specific message.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *calculation.Error
	if errors.As(err, &verr) {
		observability.ValidationFailures.WithLabelValues(string(verr.Kind)).Inc()
		handlers.WriteError(w, http.StatusUnprocessableEntity, verr.Message)
		return true
	}
	return false
}

// CreateHandler handles POST /api/calculations.
func CreateHandler(calcs *storage.Calculations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		_, span := tracer.Start(r.Context(), "calculation.create",
			trace.WithAttributes(
				attribute.String("calculation.type", req.Type),
				attribute.Int("calculation.inputs", len(req.Inputs)),
			),
		)
		defer span.End()

		calc, err := calculation.New(req.Type, &userID, req.Inputs)
		if err != nil {
			if writeValidationError(w, err) {
				return
			}
			handlers.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := calcs.Create(calc); err != nil {
			logger.Error("failed to save calculation", zap.Error(err))
			handlers.WriteError(w, http.StatusInternalServerError, "failed to save calculation")
			return
		}

		observability.CalculationsTotal.WithLabelValues(calc.Type).Inc()
		logger.Info("calculation created",
			zap.String("calculation_id", calc.ID),
			zap.String("type", calc.Type),
			zap.String("user_id", userID),
		)
		handlers.WriteJSON(w, http.StatusCreated, toResponse(calc))
	}
}

// BrowseHandler handles GET /api/calculations with skip/limit pagination.
func BrowseHandler(calcs *storage.Calculations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		skip := queryInt(r, "skip", 0)
		limit := queryInt(r, "limit", 100)

		records, err := calcs.ByUser(userID, skip, limit)
		if err != nil {
			handlers.WriteError(w, http.StatusInternalServerError, "failed to list calculations")
			return
		}

		out := make([]Response, 0, len(records))
		for i := range records {
			out = append(out, toResponse(&records[i]))
		}
		handlers.WriteJSON(w, http.StatusOK, out)
	}
}

// ReadHandler handles GET /api/calculations/{id}.
func ReadHandler(calcs *storage.Calculations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calc, ok := ownedCalculation(w, r, calcs)
		if !ok {
			return
		}
		handlers.WriteJSON(w, http.StatusOK, toResponse(calc))
	}
}

// EditHandler handles PUT and PATCH /api/calculations/{id}. The merged
// state is re-validated as a whole; on failure the stored record is left
// untouched.
func EditHandler(calcs *storage.Calculations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calc, ok := ownedCalculation(w, r, calcs)
		if !ok {
			return
		}

		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := calculation.Update(calc, calculation.Patch{Type: req.Type, Inputs: req.Inputs}); err != nil {
			if writeValidationError(w, err) {
				return
			}
			handlers.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := calcs.Save(calc); err != nil {
			logger.Error("failed to update calculation", zap.String("calculation_id", calc.ID), zap.Error(err))
			handlers.WriteError(w, http.StatusInternalServerError, "failed to update calculation")
			return
		}
		handlers.WriteJSON(w, http.StatusOK, toResponse(calc))
	}
}

// DeleteHandler handles DELETE /api/calculations/{id}.
func DeleteHandler(calcs *storage.Calculations, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calc, ok := ownedCalculation(w, r, calcs)
		if !ok {
			return
		}
		if err := calcs.Delete(calc.ID); err != nil {
			logger.Error("failed to delete calculation", zap.String("calculation_id", calc.ID), zap.Error(err))
			handlers.WriteError(w, http.StatusInternalServerError, "failed to delete calculation")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type EvaluateRequest struct {
	Expression string `json:"expression"`
}

type EvaluateResponse struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
}

// EvaluateHandler handles POST /api/calculate: a one-off arithmetic
// expression evaluated without being persisted.
func EvaluateHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		_, span := tracer.Start(r.Context(), "calculation.evaluate")
		defer span.End()

		expression, err := govaluate.NewEvaluableExpression(req.Expression)
		if err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid expression")
			return
		}
		value, err := expression.Evaluate(nil)
		if err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "evaluation error")
			return
		}
		result, ok := value.(float64)
		if !ok {
			handlers.WriteError(w, http.StatusBadRequest, "expression is not numeric")
			return
		}

		logger.Info("expression evaluated",
			zap.String("expression", req.Expression),
			zap.Float64("result", result),
		)
		handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{Expression: req.Expression, Result: result})
	}
}

// ownedCalculation loads the record addressed by the URL and enforces
// ownership: 404 for an unknown id, 403 for somebody else's record.
func ownedCalculation(w http.ResponseWriter, r *http.Request, calcs *storage.Calculations) (*models.Calculation, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	calc, err := calcs.ByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			handlers.WriteError(w, http.StatusNotFound, "Calculation not found")
			return nil, false
		}
		handlers.WriteError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if calc.UserID == nil || *calc.UserID != userID {
		handlers.WriteError(w, http.StatusForbidden, "Not authorized to access this calculation")
		return nil, false
	}
	return calc, true
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
