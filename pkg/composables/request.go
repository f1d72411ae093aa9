package composables

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/form"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/portal/pkg/backend"
	"github.com/iota-uz/portal/pkg/constants"
)

var (
	ErrNoLogger = errors.New("logger not found")
	ErrNoUser   = errors.New("user not found in context")
)

var decoder = form.NewDecoder()

type Params struct {
	IP        string
	UserAgent string
	Referer   string
	RequestID string
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the request scoped logger, or a standard logger entry
// when ctx did not pass through the logging middleware.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithUser(ctx context.Context, user *backend.User) context.Context {
	return context.WithValue(ctx, constants.UserKey, user)
}

func UseUser(ctx context.Context) (*backend.User, error) {
	user, ok := ctx.Value(constants.UserKey).(*backend.User)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}

// UseIP returns the IP address from the context.
// If the IP address is not found, the second return value will be false.
func UseIP(ctx context.Context) (string, bool) {
	params, ok := UseParams(ctx)
	if !ok {
		return "", false
	}
	return params.IP, true
}

func UseQuery[T any](v T, r *http.Request) (T, error) {
	return v, decoder.Decode(v, r.URL.Query())
}

func UseForm[T any](v T, r *http.Request) (T, error) {
	if err := r.ParseForm(); err != nil {
		return v, err
	}
	return v, decoder.Decode(v, r.Form)
}
