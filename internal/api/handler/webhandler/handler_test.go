package webhandler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"scim/internal/api/handler/webhandler"
	mockprovisioning "scim/internal/provisioning/mock"
	"scim/pkg/domain"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestIndex_ListsUsers(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mockprovisioning.NewMockProvisioner(ctrl)
	p.EXPECT().All(gomock.Any()).Return([]domain.User{
		{
			ID: domain.NewUserID(),
			UserAttributes: domain.UserAttributes{
				UserName:  "jdoe",
				FirstName: "Jane",
				LastName:  "Doe",
				Email:     "jane@example.com",
			},
		},
		{
			ID: domain.NewUserID(),
			UserAttributes: domain.UserAttributes{
				UserName:  "<script>",
				FirstName: "Eve",
				LastName:  "Hacker",
				Email:     "eve@example.com",
			},
		},
	}, nil)

	rr := httptest.NewRecorder()
	webhandler.New(webhandler.Deps{Provisioner: p}).Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	require.Contains(t, body, "jdoe")
	require.Contains(t, body, "Jane Doe")
	require.Contains(t, body, "jane@example.com")
	require.Contains(t, body, "&lt;script&gt;")
	require.NotContains(t, body, "<script>")
}

func TestIndex_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mockprovisioning.NewMockProvisioner(ctrl)
	p.EXPECT().All(gomock.Any()).Return(nil, nil)

	rr := httptest.NewRecorder()
	webhandler.New(webhandler.Deps{Provisioner: p}).Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "No users have been provisioned yet.")
}

func TestIndex_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mockprovisioning.NewMockProvisioner(ctrl)
	p.EXPECT().All(gomock.Any()).Return(nil, errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	rr := httptest.NewRecorder()
	webhandler.New(webhandler.Deps{Provisioner: p}).Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "10.0.0.1")
}
