package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type depositRequest struct {
	Amount            float64 `validate:"required,gt=0"`
	ExternalReference string  `validate:"omitempty,max=255"`
}

type investRequest struct {
	PropertyID int     `validate:"required"`
	Amount     float64 `validate:"required,gt=0"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid deposit body", func(t *testing.T) {
		err := vh.ValidateStruct(&depositRequest{
			Amount:            1000,
			ExternalReference: "PSP-001",
		})
		assert.NoError(t, err)
	})

	t.Run("zero and missing fields reported per field", func(t *testing.T) {
		err := vh.ValidateStruct(&investRequest{})
		require.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, validationErrors, 2) // PropertyID and Amount
	})

	t.Run("negative amount fails the gt tag", func(t *testing.T) {
		err := vh.ValidateStruct(&depositRequest{Amount: -50})
		require.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		require.True(t, ok)
		assert.Len(t, validationErrors, 1)
		assert.Equal(t, "Amount", validationErrors[0].Field())
		assert.Equal(t, "gt", validationErrors[0].Tag())
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Failed to fetch transactions", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		validationErr := vh.ValidateStruct(&depositRequest{Amount: -50})
		require.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Validation failed", response.Error)
		assert.Contains(t, response.Details, "Amount")
	})

	t.Run("plain error produces the envelope without details", func(t *testing.T) {
		w := httptest.NewRecorder()

		assert.NotPanics(t, func() {
			SendErrorResponse(w, "insufficient funds", http.StatusBadRequest, errors.New("available 100.00, requested 500.00"))
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "insufficient funds", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("domain error types carry no validation details", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "journal entries do not balance", http.StatusBadRequest, &UnbalancedTransactionError{Sum: 1})

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Nil(t, response.Details)
	})
}

func TestNewValidationHelper(t *testing.T) {
	vh := NewValidationHelper()
	assert.NotNil(t, vh)
	assert.NotNil(t, vh.validator)
}
