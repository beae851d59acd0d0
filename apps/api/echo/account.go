package echoapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
	"github.com/trezcool/projex/core/user"
)

type authApi struct {
	deps ServerDeps
	auth *Auth
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps, auth *Auth) {
	api := authApi{deps: deps, auth: auth}

	ag := g.Group("/auth")

	// un-authed endpoints
	throttle := loginThrottle(deps.Limiter)
	ag.POST("/student/register", api.registerStudent)
	ag.POST("/student/login", api.loginStudent, throttle)
	ag.POST("/teacher/register", api.registerTeacher)
	ag.POST("/teacher/login", api.loginTeacher, throttle)
	ag.POST("/admin/login", api.loginAdmin, throttle)

	// authed endpoints
	ag.POST("/logout", api.logout, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

type (
	// LoginResponse is returned by the login and register endpoints.
	LoginResponse struct {
		Token   string        `json:"token"`
		User    user.Identity `json:"user"`
		Profile interface{}   `json:"profile,omitempty"`
	}

	AdminLogin struct {
		ID       string `json:"admin_id" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
)

func (al *AdminLogin) Validate(validate *validator.Validate) error {
	al.ID = core.CleanString(al.ID)
	return validate.Struct(al)
}

func (api *authApi) respondWithToken(ctx echo.Context, code int, id user.Identity, profile interface{}) error {
	token, err := api.auth.Token(id)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, LoginResponse{Token: token, User: id, Profile: profile})
}

// Handlers

func (api *authApi) registerStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Students); err != nil {
		return err
	}
	s, err := api.deps.Students.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return api.respondWithToken(ctx, http.StatusCreated, s.Identity(), s)
}

func (api *authApi) loginStudent(ctx echo.Context) error {
	var data student.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to student.Login")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	s, err := api.deps.Students.GetByRollNo(ctx.Request().Context(), data.RollNo)
	switch {
	case core.IsNotFound(err):
		return loginFailed(ctx, api.deps.Limiter)
	case err != nil:
		return errors.Wrap(err, "finding student by roll number")
	}
	if err := s.CheckPassword(data.Password); err != nil {
		return loginFailed(ctx, api.deps.Limiter)
	}
	if err := loginSucceeded(ctx, api.deps.Limiter); err != nil {
		return err
	}
	return api.respondWithToken(ctx, http.StatusOK, s.Identity(), s)
}

func (api *authApi) registerTeacher(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.deps.Validate, api.deps.Teachers); err != nil {
		return err
	}
	t, err := api.deps.Teachers.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return api.respondWithToken(ctx, http.StatusCreated, t.Identity(), t)
}

func (api *authApi) loginTeacher(ctx echo.Context) error {
	var data teacher.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to teacher.Login")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	t, err := api.deps.Teachers.GetByEmail(ctx.Request().Context(), data.Email)
	switch {
	case core.IsNotFound(err):
		return loginFailed(ctx, api.deps.Limiter)
	case err != nil:
		return errors.Wrap(err, "finding teacher by email")
	}
	if err := t.CheckPassword(data.Password); err != nil {
		return loginFailed(ctx, api.deps.Limiter)
	}
	if err := loginSucceeded(ctx, api.deps.Limiter); err != nil {
		return err
	}
	return api.respondWithToken(ctx, http.StatusOK, t.Identity(), t)
}

func adminIdentity(conf *core.Config) user.Identity {
	return user.Identity{ID: conf.Admin.ID, Role: user.Admin, Name: "Administrator", Identifier: conf.Admin.ID}
}

func (api *authApi) loginAdmin(ctx echo.Context) error {
	var data AdminLogin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminLogin")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	conf := api.deps.Conf
	// an empty admin password disables the admin login
	if conf.Admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(data.ID), []byte(conf.Admin.ID)) != 1 ||
		subtle.ConstantTimeCompare([]byte(data.Password), []byte(conf.Admin.Password)) != 1 {
		return loginFailed(ctx, api.deps.Limiter)
	}
	if err := loginSucceeded(ctx, api.deps.Limiter); err != nil {
		return err
	}
	return api.respondWithToken(ctx, http.StatusOK, adminIdentity(conf), nil)
}

func (api *authApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := api.auth.Revoke(ctx, claims); err != nil {
		return errors.Wrap(err, "revoking token")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Logged out successfully."})
}

// currentIdentity reloads the identity of the token owner; the account must still exist.
func (api *authApi) currentIdentity(ctx echo.Context) (user.Identity, error) {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return user.Identity{}, err
	}

	var current user.Identity
	switch id.Role {
	case user.Student:
		s, err := api.deps.Students.Get(ctx.Request().Context(), id.ID)
		if err != nil {
			return user.Identity{}, err
		}
		current = s.Identity()
	case user.Teacher:
		t, err := api.deps.Teachers.Get(ctx.Request().Context(), id.ID)
		if err != nil {
			return user.Identity{}, err
		}
		current = t.Identity()
	case user.Admin:
		current = adminIdentity(api.deps.Conf)
		if id.ID != current.ID {
			return user.Identity{}, errUnauthorized
		}
	default:
		return user.Identity{}, errUnauthorized
	}
	return current, nil
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	id, err := api.currentIdentity(ctx)
	if err != nil {
		if core.IsNotFound(err) {
			return errUnauthorized
		}
		return errors.Wrap(err, "getting context identity")
	}
	token, err := api.auth.Refresh(ctx, id)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: id})
}
