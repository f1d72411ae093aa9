package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
	"github.com/iota-uz/portal/modules/core/presentation/controllers/dtos"
	"github.com/iota-uz/portal/modules/core/presentation/mappers"
	"github.com/iota-uz/portal/modules/core/presentation/viewmodels"
	"github.com/iota-uz/portal/modules/core/services"
	"github.com/iota-uz/portal/pkg/application"
	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/httpapi"
	"github.com/iota-uz/portal/pkg/middleware"
)

type LoginControllerOptions struct {
	LoginPath string
	// Attempts per minute and IP on /login and /signup. Zero disables the limit.
	AuthRPM int
}

func NewLoginController(app application.Application, opts LoginControllerOptions) application.Controller {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	return &LoginController{
		authService:    app.Service(services.AuthService{}).(*services.AuthService),
		sessionService: app.Service(services.SessionService{}).(*services.SessionService),
		profileService: app.Service(services.ProfileService{}).(*services.ProfileService),
		opts:           opts,
	}
}

type LoginController struct {
	authService    *services.AuthService
	sessionService *services.SessionService
	profileService *services.ProfileService
	opts           LoginControllerOptions
}

func (c *LoginController) Key() string {
	return "/login"
}

func (c *LoginController) Register(r *mux.Router) {
	setRouter := r.NewRoute().Subrouter()
	if c.opts.AuthRPM > 0 {
		setRouter.Use(middleware.IPRateLimitPeriod(c.opts.AuthRPM, time.Minute))
	}
	setRouter.HandleFunc("/login", c.Post).Methods(http.MethodPost)
	setRouter.HandleFunc("/signup", c.SignUp).Methods(http.MethodPost)

	r.HandleFunc("/auth/signout", c.SignOut).Methods(http.MethodPost)
}

// userWithProfile falls back to the default profile when it cannot be read.
func (c *LoginController) userWithProfile(ctx context.Context, user *backend.User, accessToken string) *viewmodels.UserWithProfile {
	if accessToken == "" {
		return mappers.UserWithProfileToViewModel(user, nil)
	}
	p, err := c.profileService.Get(backend.WithAccessToken(ctx, accessToken), user.ID)
	if err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("failed to load profile")
		p = profile.New(user.ID)
	}
	return mappers.UserWithProfileToViewModel(user, p)
}

func (c *LoginController) Post(w http.ResponseWriter, r *http.Request) {
	dto, err := decodeBody(r, &dtos.LoginDTO{})
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationError(w, errs)
		return
	}

	sess, err := c.authService.SignIn(r.Context(), dto.Email, dto.Password)
	if err != nil {
		_ = httpapi.WriteJSON(w, http.StatusUnauthorized, &viewmodels.AuthResponse{Error: authErrorMessage(err)})
		return
	}
	c.sessionService.SetCookies(w, sess)
	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.AuthResponse{
		Success: true,
		User:    c.userWithProfile(r.Context(), sess.User, sess.AccessToken),
	})
}

func (c *LoginController) SignUp(w http.ResponseWriter, r *http.Request) {
	dto, err := decodeBody(r, &dtos.SignUpDTO{})
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "Invalid request body", nil)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationError(w, errs)
		return
	}

	sess, err := c.authService.SignUp(r.Context(), dto.Email, dto.Password)
	if err != nil {
		_ = httpapi.WriteJSON(w, http.StatusBadRequest, &viewmodels.AuthResponse{Error: authErrorMessage(err)})
		return
	}
	user := sess.User
	if user == nil {
		user = &backend.User{Email: dto.Email}
	}
	c.sessionService.SetCookies(w, sess)
	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.AuthResponse{
		Success: true,
		User:    c.userWithProfile(r.Context(), user, sess.AccessToken),
		Pending: sess.AccessToken == "",
	})
}

// SignOut always ends on the login page, even when the provider call fails.
func (c *LoginController) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := composables.UseUser(ctx)
	token, _ := backend.AccessToken(ctx)
	if token == "" {
		token = c.sessionService.Current(r).AccessToken
	}
	if err := c.authService.SignOut(ctx, user, token); err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("sign out failed")
	}
	c.sessionService.ClearCookies(w)
	http.Redirect(w, r, c.opts.LoginPath, http.StatusFound)
}
