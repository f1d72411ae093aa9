package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/iota-uz/portal/modules/core/presentation/controllers/dtos"
	"github.com/iota-uz/portal/modules/core/presentation/mappers"
	"github.com/iota-uz/portal/modules/core/presentation/viewmodels"
	"github.com/iota-uz/portal/modules/core/services"
	"github.com/iota-uz/portal/pkg/application"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/httpapi"
	"github.com/iota-uz/portal/pkg/middleware"
)

const multipartOverhead = 1 << 20

type AccountController struct {
	profileService *services.ProfileService
	avatarService  *services.AvatarService
	maxUploadSize  int64
	basePath       string
}

func NewAccountController(app application.Application, maxUploadSize int64) application.Controller {
	if maxUploadSize <= 0 {
		maxUploadSize = services.DefaultMaxAvatarSize
	}
	return &AccountController{
		profileService: app.Service(services.ProfileService{}).(*services.ProfileService),
		avatarService:  app.Service(services.AvatarService{}).(*services.AvatarService),
		maxUploadSize:  maxUploadSize,
		basePath:       "/account",
	}
}

func (c *AccountController) Key() string {
	return c.basePath
}

func (c *AccountController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireUser())
	router.HandleFunc("/profile", c.GetProfile).Methods(http.MethodGet)
	router.HandleFunc("/profile", c.PostProfile).Methods(http.MethodPost)
	router.HandleFunc("/settings", c.PostSettings).Methods(http.MethodPost)
	router.HandleFunc("/avatar", c.GetAvatar).Methods(http.MethodGet)
	router.HandleFunc("/avatar", c.PostAvatar).Methods(http.MethodPost)
}

func (c *AccountController) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := composables.UseUser(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "Not authenticated", nil)
		return
	}
	p, err := c.profileService.Get(r.Context(), user.ID)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to load profile")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "Error loading user data!", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ProfileToViewModel(p))
}

func (c *AccountController) PostProfile(w http.ResponseWriter, r *http.Request) {
	user, err := composables.UseUser(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "Not authenticated", nil)
		return
	}
	dto, err := decodeBody(r, &dtos.SaveProfileDTO{})
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationError(w, errs)
		return
	}

	p, err := c.profileService.Update(r.Context(), user.ID, services.ActionProfileUpdate, dto.Apply)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "Error updating the data!", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ProfileToViewModel(p))
}

func (c *AccountController) PostSettings(w http.ResponseWriter, r *http.Request) {
	user, err := composables.UseUser(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "Not authenticated", nil)
		return
	}
	dto, err := decodeBody(r, &dtos.SaveSettingsDTO{})
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationError(w, errs)
		return
	}

	p, err := c.profileService.Update(r.Context(), user.ID, services.ActionSettingsUpdate, dto.Apply)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "Error updating settings!", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ProfileToViewModel(p))
}

func (c *AccountController) PostAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := composables.UseUser(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "Not authenticated", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(c.maxUploadSize); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, services.ErrNoFile.Error(), nil)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	path, err := c.uploadAvatar(r, user.ID)
	switch {
	case errors.Is(err, services.ErrNoFile),
		errors.Is(err, services.ErrUnsupportedAvatarType),
		errors.Is(err, services.ErrAvatarTooLarge):
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
	case err != nil:
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "Error uploading avatar!", nil)
	default:
		_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.AvatarUploaded{AvatarURL: path})
	}
}

func (c *AccountController) uploadAvatar(r *http.Request, userID string) (string, error) {
	file, _, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return "", services.ErrNoFile
	}
	if err != nil {
		return "", err
	}
	defer file.Close()
	return c.avatarService.Upload(r.Context(), userID, file)
}

func (c *AccountController) GetAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := composables.UseUser(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusUnauthorized, httpapi.CodeUnauthorized, "Not authenticated", nil)
		return
	}
	obj, err := c.avatarService.Download(r.Context(), user.ID)
	if errors.Is(err, services.ErrNoAvatar) {
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "No avatar uploaded", nil)
		return
	}
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to download avatar")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "Error downloading image", nil)
		return
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}
