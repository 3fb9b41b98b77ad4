package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

var clientKinds = []domain.Kind{
	domain.KindNotFound,
	domain.KindInvalidQuantity,
	domain.KindInsufficientStock,
	domain.KindCriticalInsufficientStock,
	domain.KindInvalidTransition,
	domain.KindAlreadyExists,
	domain.KindEmptyCart,
	domain.KindInvalidArgument,
}

func decodeErrorResponse(w *httptest.ResponseRecorder) (ErrorResponse, bool) {
	var response ErrorResponse
	if w.Header().Get("Content-Type") != "application/json" {
		return response, false
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		return response, false
	}
	_, err := time.Parse(time.RFC3339, response.Error.Timestamp)
	return response, err == nil
}

// Property: every classified error is written as an envelope keyed by its kind
func TestProperty_DomainErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("code is the kind and status follows it", prop.ForAll(
		func(idx int, message string) bool {
			kind := clientKinds[idx]
			w := httptest.NewRecorder()
			RespondWithDomainError(w, zap.NewNop(), &domain.Error{Kind: kind, Message: message})

			response, ok := decodeErrorResponse(w)
			if !ok {
				return false
			}
			if w.Code != StatusForKind(kind) || w.Code == http.StatusInternalServerError {
				t.Logf("FAIL: %s mapped to %d", kind, w.Code)
				return false
			}
			return response.Error.Code == string(kind) && response.Error.Message == message
		},
		gen.IntRange(0, len(clientKinds)-1),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: unclassified errors never leak their text
func TestProperty_InternalErrorsAreMasked(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("plain errors become a bare 500", prop.ForAll(
		func(message string) bool {
			w := httptest.NewRecorder()
			RespondWithDomainError(w, zap.NewNop(), fmt.Errorf("failed to query stock: %s", message))

			response, ok := decodeErrorResponse(w)
			if !ok || w.Code != http.StatusInternalServerError {
				return false
			}
			return response.Error.Message == "internal server error" && response.Error.Details == nil
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: stock shortfall details reach the client unchanged
func TestProperty_ShortfallDetailsAreIncluded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("available and requested survive encoding", prop.ForAll(
		func(available, extra int) bool {
			requested := available + extra
			w := httptest.NewRecorder()
			RespondWithDomainError(w, zap.NewNop(), domain.ErrInsufficientStock.WithDetails(map[string]interface{}{
				"available": available,
				"requested": requested,
			}))

			response, ok := decodeErrorResponse(w)
			if !ok || w.Code != http.StatusConflict {
				return false
			}
			return response.Error.Details["available"] == float64(available) &&
				response.Error.Details["requested"] == float64(requested)
		},
		gen.IntRange(0, 1000),
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "quantity", Message: "quantity is required"}})

	response, ok := decodeErrorResponse(w)
	if !ok {
		t.Fatalf("malformed envelope: %s", w.Body.String())
	}
	if w.Code != http.StatusBadRequest || response.Error.Code != http.StatusText(http.StatusBadRequest) {
		t.Errorf("expected 400 Bad Request, got %d %s", w.Code, response.Error.Code)
	}
	if _, ok := response.Error.Details["validation_errors"]; !ok {
		t.Errorf("validation_errors missing: %+v", response.Error.Details)
	}
}

func TestRespondWithDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"not found", domain.ErrProductNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid quantity", domain.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"empty cart", domain.ErrEmptyCart, http.StatusBadRequest, "EMPTY_CART"},
		{"insufficient stock", domain.ErrInsufficientStock.WithDetails(map[string]interface{}{"available": 1}), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"critical stock", domain.ErrCriticalInsufficientStock, http.StatusConflict, "CRITICAL_INSUFFICIENT_STOCK"},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"wrapped", fmt.Errorf("failed to add item: %w", domain.ErrItemNotInCart), http.StatusNotFound, "NOT_FOUND"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithDomainError(w, zap.NewNop(), tt.err)

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if response.Error.Code != tt.wantKind {
				t.Errorf("expected code %s, got %s", tt.wantKind, response.Error.Code)
			}
			if tt.wantCode == http.StatusInternalServerError && response.Error.Message != "internal server error" {
				t.Errorf("internal error leaked: %s", response.Error.Message)
			}
		})
	}
}

func TestRespondWithDomainErrorKeepsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, zap.NewNop(), domain.ErrInsufficientStock.WithDetails(map[string]interface{}{
		"product_name": "Widget",
		"available":    2,
	}))

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response.Error.Details["product_name"] != "Widget" || response.Error.Details["available"] != float64(2) {
		t.Errorf("details lost: %+v", response.Error.Details)
	}
}

func TestErrorHandlingMiddlewareRecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/cart", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
