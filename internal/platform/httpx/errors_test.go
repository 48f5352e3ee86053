package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantTitle  string
	}{
		{"not found", shared.ErrNotFound, 404, "Not Found"},
		{"wrapped not found", fmt.Errorf("load member: %w", shared.ErrNotFound), 404, "Not Found"},
		{"tenant required", shared.ErrTenantRequired, 403, "Forbidden"},
		{"bad credentials", shared.ErrInvalidCredentials, 401, "Unauthorized"},
		{"expired session", shared.ErrSessionExpired, 401, "Unauthorized"},
		{"csrf mismatch", shared.ErrCSRFTokenMismatch, 403, "Forbidden"},
		{"unknown", errors.New("boom"), 500, "Internal Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			require.Equal(t, tc.wantStatus, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, tc.wantTitle, problem.Title)
			require.Equal(t, tc.wantStatus, problem.Status)
		})
	}
}
