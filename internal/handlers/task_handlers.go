package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/handlers/dto"
	"taskboard/internal/logger"
	"taskboard/internal/middleware"
	"taskboard/internal/models/task"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type TaskHandler struct {
	TaskService Service
}

func NewTaskHandler(taskService Service) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

// Routes mounts the task store API on r. mws wrap the /tasks routes only.
func (s *TaskHandler) Routes(r chi.Router, mws ...func(http.Handler) http.Handler) {
	r.Get("/health", s.HealthCheck)
	r.Route("/tasks", func(r chi.Router) {
		r.Use(mws...)
		r.Get("/", s.GetTasks)
		r.Post("/", s.PostTask)
		r.Put("/{id}", s.UpdateTaskByID)
		r.Delete("/{id}", s.DeleteTaskByID)
	})
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: health check")

	healthCheck(w, s.TaskService.HealthCheck(r.Context()))
}

// GetTasks lists every task, or only the owner's when ?email= is set.
func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	owner, ok := ownerScope(w, r, strings.TrimSpace(r.URL.Query().Get("email")))
	if !ok {
		return
	}

	tasks, err := s.TaskService.ListTasks(r.Context(), owner)
	if err != nil {
		logger.Error("HTTP: service error", err,
			zap.String("operation", "list_tasks"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	logger.Info("HTTP_OUT: tasks listed",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	request, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}
	if request.Email, ok = ownerScope(w, r, request.Email); !ok {
		return
	}

	created, err := s.TaskService.CreateTask(r.Context(), request.ToTask())
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}
		logger.Error("HTTP: service error", err,
			zap.String("operation", "create_task"),
			zap.String("client_ip", r.RemoteAddr),
			zap.Duration("ms", time.Since(start)))

		responseWithError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.String("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, dto.FromTask(created))
}

func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	request, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}
	if request.ID != "" && request.ID != id {
		logger.Warn("HTTP: id mismatch",
			zap.String("path_id", id),
			zap.String("body_id", request.ID),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "body id does not match path id")
		return
	}
	if request.Email, ok = ownerScope(w, r, request.Email); !ok {
		return
	}

	updated, err := s.TaskService.UpdateTask(r.Context(), id, request.ToTask())
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}
		logger.Error("HTTP: service error", err,
			zap.String("operation", "update_task"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	logger.Info("HTTP_OUT: task updated",
		zap.String("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTask(updated))
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	owner, ok := ownerScope(w, r, "")
	if !ok {
		return
	}

	if err := s.TaskService.DeleteTask(r.Context(), id, owner); err != nil {
		if handleBusinessError(w, err) {
			return
		}
		logger.Error("HTTP: service error", err,
			zap.String("operation", "delete_task"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	logger.Info("HTTP_OUT: task deleted",
		zap.String("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

// ownerScope returns the owner a request acts for. Behind a token, email defaults to the
// token's key and naming any other owner is refused.
func ownerScope(w http.ResponseWriter, r *http.Request, email string) (string, bool) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		return email, true
	}
	if email == "" {
		return id.Key, true
	}
	if email != id.Key {
		logger.Warn("HTTP: owner does not match token",
			zap.String("email", email),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusForbidden, "email does not match the token identity")
		return "", false
	}
	return email, true
}

func taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		logger.Warn("HTTP: empty id",
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "id must not be empty")
		return "", false
	}
	return id, true
}

func decodeTaskRequest(w http.ResponseWriter, r *http.Request) (dto.TaskRequest, bool) {
	var request dto.TaskRequest

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: wrong content type",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return request, false
	}

	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&request); err != nil {
		logger.Warn("HTTP: failed to read JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		var fe *task.FieldError
		if errors.As(err, &fe) {
			responseWithJSON(w, http.StatusBadRequest,
				toPayload("error", "VALIDATION_ERROR"),
				toPayload("message", fe.Error()),
				toPayload("details", map[string]any{"field": fe.Field, "reason": fe.Reason}),
			)
			return request, false
		}
		responseWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return request, false
	}
	return request, true
}
