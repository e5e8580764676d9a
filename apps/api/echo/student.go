package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bestqrov/lahwla/core"
	"github.com/bestqrov/lahwla/core/student"
)

type studentApi struct {
	service *student.Service
	tokens  *TokenManager
}

func registerStudentAPI(g *echo.Group, svc *student.Service, tokens *TokenManager) {
	api := studentApi{service: svc, tokens: tokens}

	sg := g.Group("/students")

	sg.POST("/login", api.studentLogin)
	sg.POST("/enroll", api.studentEnroll)
	sg.GET("", api.studentQuery)
	sg.GET("/analytics", api.studentAnalytics)

	dg := sg.Group("/:id")
	dg.GET("", api.studentRetrieve)
	dg.GET("/login-info", api.studentLoginInfo)
	dg.PUT("/password", api.studentSetPassword)
}

// Handlers

func (api *studentApi) studentEnroll(ctx echo.Context) error {
	data := new(student.Enrollment)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	st, err := api.service.Enroll(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) studentLogin(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	st, err := api.service.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if err == student.ErrNotFound {
			return errAuthenticationFailed
		}
		return err
	}
	token, err := api.tokens.Generate(st)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *studentApi) studentQuery(ctx echo.Context) error {
	students, err := api.service.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) studentRetrieve(ctx echo.Context) error {
	st, err := api.service.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) studentAnalytics(ctx echo.Context) error {
	analytics, err := api.service.Analytics(ctx.Request().Context())
	if err != nil {
		// degrade instead of surfacing storage internals to the dashboard
		return errAnalyticsUnavailable
	}
	return ctx.JSON(http.StatusOK, analytics)
}

func (api *studentApi) studentLoginInfo(ctx echo.Context) error {
	info, err := api.service.LoginInfo(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *studentApi) studentSetPassword(ctx echo.Context) error {
	data := new(SetPasswordRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.service.SetPassword(ctx.Request().Context(), ctx.Param("id"), data.Password); err != nil {
		return err
	}
	// the plaintext is never echoed back
	return ctx.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Requests

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return core.Validate.Struct(r)
}

type SetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

func (r SetPasswordRequest) Validate() error { return core.Validate.Struct(r) }

type LoginResponse struct {
	Token string `json:"token"`
}
