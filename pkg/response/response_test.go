package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/charlesng35/cabinet/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"message": "ok"})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
	require.Nil(t, resp.Meta)
}

func TestSuccessWithMetaAlwaysSerialisesUnreadCount(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	SuccessWithMeta(ctx, http.StatusOK, []string{}, &Meta{Limit: 25})

	require.Contains(t, rec.Body.String(), `"unread_count":0`)
	resp := decode(t, rec)
	require.Equal(t, 25, resp.Meta.Limit)
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, appErrors.ErrNotFound)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "NOT_FOUND", resp.Error.Code)
	require.Empty(t, ctx.Errors)
}

func TestErrorWithGenericErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, errors.New("notification service: list notifications: disk I/O error"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.Equal(t, "INTERNAL_SERVER_ERROR", resp.Error.Code)
	require.NotContains(t, rec.Body.String(), "disk I/O")
	require.Len(t, ctx.Errors, 1)
	require.Contains(t, ctx.Errors.String(), "disk I/O error")
}

func TestErrorWithNil(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	Error(ctx, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
