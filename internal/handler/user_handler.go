package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-tasklist/internal/middleware"
	"go-tasklist/internal/model"
	"go-tasklist/internal/service"
	"go-tasklist/pkg/apierror"
)

type UserHandler struct {
	users  *service.UserService
	tasks  *service.TaskService
	access *service.AccessService
}

func NewUserHandler(users *service.UserService, tasks *service.TaskService, access *service.AccessService) *UserHandler {
	return &UserHandler{users: users, tasks: tasks, access: access}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.NewUserResponse(user))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	var payload model.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	user, err := h.users.Update(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.NewUserResponse(user))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *UserHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.GetAllByUserID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tasks)
}

func (h *UserHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	var payload model.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	task, err := h.tasks.Create(r.Context(), payload, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, task)
}

// guard parses the {id} path parameter and checks the self-or-admin rule.
// Writes the failure response itself when the request may not proceed.
func (h *UserHandler) guard(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return 0, false
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	if !h.access.CanAccessUser(principal, id) {
		writeForbidden(w)
		return 0, false
	}

	return id, true
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("invalid id", raw)
	}
	return id, nil
}
