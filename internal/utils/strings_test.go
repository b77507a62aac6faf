package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrisentinel/agrisentinel/internal/domain"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  ,  , ", nil},
		{"single broker", "kafka:9092", []string{"kafka:9092"}},
		{"broker list", "k1:9092, k2:9092 ,k3:9092", []string{"k1:9092", "k2:9092", "k3:9092"}},
		{"trailing comma", "http://localhost:3000,", []string{"http://localhost:3000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.NewInputError("domain", "unsupported domain %q", "x"), http.StatusBadRequest},
		{fmt.Errorf("claim c1: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.NewComputationError("trend", "NaN in series"), http.StatusUnprocessableEntity},
		{fmt.Errorf("snapshot: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForError(tt.err), "%v", tt.err)
	}
}
