package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/clientpulse/backend/internal/models"
)

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/v1/clients", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/v1/clients", nil, a.token(t, uuid.New(), "consultant"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/v1/clients", nil, a.adminToken(t))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogCRUD(t *testing.T) {
	a := newTestAPI(t)
	token := a.adminToken(t)

	w := a.do(http.MethodPost, "/api/v1/clients", map[string]interface{}{"name": "Acme"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var client models.Client
	decode(t, w, &client)

	w = a.do(http.MethodPost, "/api/v1/questions", map[string]interface{}{
		"text": "How satisfied is the client?",
		"type": "multiple-choice",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "choice questions need options")

	w = a.do(http.MethodPost, "/api/v1/questions", map[string]interface{}{
		"text":    "How satisfied is the client?",
		"type":    "multiple-choice",
		"options": []string{"Low", "Medium", "High"},
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var question models.Question
	decode(t, w, &question)

	w = a.do(http.MethodPost, "/api/v1/templates", map[string]interface{}{
		"name":                "Weekly Check-in",
		"client_id":           client.ID,
		"recurrence_interval": 7,
		"start_date":          "2024-01-01",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tmpl models.Template
	decode(t, w, &tmpl)
	assert.Equal(t, 7, tmpl.RecurrenceInterval)

	w = a.do(http.MethodPut, "/api/v1/templates/"+tmpl.ID.String()+"/questions", map[string]interface{}{
		"questions": []map[string]interface{}{{"question_id": question.ID}},
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	consultant := a.token(t, uuid.New(), "consultant")
	w = a.do(http.MethodGet, "/api/v1/templates/"+tmpl.ID.String(), nil, consultant)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched models.Template
	decode(t, w, &fetched)
	require.Len(t, fetched.Questions, 1)

	w = a.do(http.MethodGet, "/api/v1/templates/"+uuid.NewString(), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/v1/templates/not-a-uuid", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodDelete, "/api/v1/clients/"+client.ID.String(), nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserDirectory(t *testing.T) {
	a := newTestAPI(t)
	token := a.adminToken(t)

	w := a.do(http.MethodPost, "/api/v1/users", map[string]interface{}{"name": "Una", "email": "Una@Example.com"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user models.User
	decode(t, w, &user)
	assert.Equal(t, "una@example.com", user.Email)

	w = a.do(http.MethodPost, "/api/v1/users", map[string]interface{}{"name": "Una", "email": "una@example.com"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/me", nil, a.token(t, user.ID, "consultant"))
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decode(t, w, &me)
	assert.Equal(t, user.ID, me.ID)
}
