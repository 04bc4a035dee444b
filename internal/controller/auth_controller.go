package controller

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/response"
	"github.com/unclebandit/churchcare-backend/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Me(ctx context.Context, p auth.Principal) (*service.AuthResult, error)
}

type AuthController struct {
	Auth AuthService
	Log  logrus.FieldLogger
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decode(w, r, &in); err != nil {
		response.Error(w, r, c.Log, err)
		return
	}
	res, err := c.Auth.Register(r.Context(), in)
	if err != nil {
		response.Error(w, r, c.Log, err)
		return
	}
	response.Created(w, res, "User registered successfully")
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decode(w, r, &in); err != nil {
		response.Error(w, r, c.Log, err)
		return
	}
	res, err := c.Auth.Login(r.Context(), in)
	if err != nil {
		response.Error(w, r, c.Log, err)
		return
	}
	response.OK(w, res, "Login successful")
}

func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		res, err := c.Auth.Me(r.Context(), p)
		if err != nil {
			return err
		}
		response.OK(w, res, "")
		return nil
	})(w, r)
}
