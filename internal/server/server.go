package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"nretrack/internal/config"
	"nretrack/internal/domain"
	"nretrack/internal/netinfo"
	"nretrack/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Store    store.Store
	Settings *config.Manager
	BasePath string
	Log      *logrus.Logger
	Now      func() time.Time
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the task API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(corsMiddleware)
	router.Use(requestLogger(cfg.Log))
	hcfg := huma.DefaultConfig("NRE Task Tracker API", "1.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerTasks(group, cfg)
	registerLists(group, cfg.Settings)
	registerConfig(group, cfg.Settings)
	registerNetworkInfo(group, cfg.Settings)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

// corsMiddleware mirrors the permissive policy of the original server so
// a UI served from another origin on the LAN can reach the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/assets") {
				log.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Info("request")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", "task not found", nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var doc []byte
	r.Get(path.Join(basePath, "openapi.json"), func(w http.ResponseWriter, r *http.Request) {
		if doc == nil {
			doc, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	})
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

// normalizeTask applies the ingress coercions: id and createdAt are
// synthesized when the client did not supply them, empty status defaults
// to Pending, and workHours never goes negative.
func normalizeTask(t domain.Task, now func() time.Time) (domain.Task, huma.StatusError) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = now().UnixMilli()
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	if !domain.ValidStatus(t.Status) {
		return t, newAPIError(http.StatusBadRequest, "bad_request", "invalid status", map[string]any{"status": t.Status})
	}
	if t.WorkHours < 0 {
		t.WorkHours = 0
	}
	return t, nil
}

func registerTasks(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		tasks, err := cfg.Store.ListTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body domain.Task `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, verr := normalizeTask(input.Body, cfg.Now)
		if verr != nil {
			return nil, verr
		}
		if err := cfg.Store.InsertTask(ctx, t); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := cfg.Store.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		applyUpdate(&t, input.Body)
		if !domain.ValidStatus(t.Status) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid status", map[string]any{"status": t.Status})
		}
		if t.WorkHours < 0 {
			t.WorkHours = 0
		}
		if err := cfg.Store.UpdateTask(ctx, t); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		if err := cfg.Store.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Deleted"}}, nil
	})
}

// applyUpdate merges provided fields over the stored record; id and
// createdAt are immutable.
func applyUpdate(t *domain.Task, u UpdateTaskRequest) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Owner != nil {
		t.Owner = *u.Owner
	}
	if u.DeviceType != nil {
		t.DeviceType = *u.DeviceType
	}
	if u.Platform != nil {
		t.Platform = *u.Platform
	}
	if u.AndroidVersion != nil {
		t.AndroidVersion = *u.AndroidVersion
	}
	if u.NRENumber != nil {
		t.NRENumber = *u.NRENumber
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.TaskType != nil {
		t.TaskType = *u.TaskType
	}
	if u.StartDate != nil {
		t.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		t.EndDate = *u.EndDate
	}
	if u.WorkHours != nil {
		t.WorkHours = *u.WorkHours
	}
	if u.Content != nil {
		t.Content = *u.Content
	}
}

func registerLists(api huma.API, settings *config.Manager) {
	huma.Register(api, huma.Operation{
		OperationID: "get-lists",
		Method:      http.MethodGet,
		Path:        "/lists",
		Summary:     "Get dropdown option lists",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.DropdownOptions `json:"body"`
	}, error) {
		cfg, err := settings.Load()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DropdownOptions `json:"body"`
		}{Body: cfg.Lists}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-lists",
		Method:      http.MethodPost,
		Path:        "/lists",
		Summary:     "Replace dropdown option lists",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body domain.DropdownOptions `json:"body"`
	}) (*struct {
		Body domain.DropdownOptions `json:"body"`
	}, error) {
		if err := settings.SetLists(input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DropdownOptions `json:"body"`
		}{Body: input.Body}, nil
	})
}

func registerConfig(api huma.API, settings *config.Manager) {
	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/config",
		Summary:     "Get server config",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ConfigResponse `json:"body"`
	}, error) {
		cfg, err := settings.Load()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConfigResponse `json:"body"`
		}{Body: ConfigResponse{Port: cfg.Port}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-config",
		Method:      http.MethodPost,
		Path:        "/config",
		Summary:     "Set server config",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body SetConfigRequest `json:"body"`
	}) (*struct {
		Body SetConfigResponse `json:"body"`
	}, error) {
		if input.Body.Port < 1 || input.Body.Port > 65535 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid port", map[string]any{"port": input.Body.Port})
		}
		// Persisted only; the running listener keeps its port until restart.
		if err := settings.SetPort(input.Body.Port); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SetConfigResponse `json:"body"`
		}{Body: SetConfigResponse{Message: "Config saved", Port: input.Body.Port}}, nil
	})
}

func registerNetworkInfo(api huma.API, settings *config.Manager) {
	huma.Register(api, huma.Operation{
		OperationID: "network-info",
		Method:      http.MethodGet,
		Path:        "/network-info",
		Summary:     "LAN address for cross-device sharing",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body NetworkInfoResponse `json:"body"`
	}, error) {
		cfg, err := settings.Load()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NetworkInfoResponse `json:"body"`
		}{Body: NetworkInfoResponse{IP: netinfo.LanIP(), Port: cfg.Port}}, nil
	})
}
