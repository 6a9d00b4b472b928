package handler

import (
	"encoding/json"
	"net/http"

	"go-tasklist/internal/middleware"
	"go-tasklist/internal/model"
	"go-tasklist/internal/service"
	"go-tasklist/pkg/apierror"
)

const maxImageUploadBytes = 12 << 20

type TaskHandler struct {
	tasks  *service.TaskService
	access *service.AccessService
}

func NewTaskHandler(tasks *service.TaskService, access *service.AccessService) *TaskHandler {
	return &TaskHandler{tasks: tasks, access: access}
}

func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	task, err := h.tasks.Update(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *TaskHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, ok := h.guard(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		writeError(w, apierror.BadRequest("invalid multipart body", ""))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.BadRequest("file field is required", ""))
		return
	}
	defer file.Close()

	name, err := h.tasks.UploadImage(r.Context(), id, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{"image": name})
}

// guard parses {id} and checks ownership. Ownership is the only rule for
// tasks; admins get no shortcut here.
func (h *TaskHandler) guard(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return 0, false
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	allowed, err := h.access.CanAccessTask(r.Context(), principal, id)
	if err != nil {
		writeError(w, err)
		return 0, false
	}
	if !allowed {
		writeForbidden(w)
		return 0, false
	}

	return id, true
}
