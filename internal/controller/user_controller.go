package controller

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/response"
	"github.com/unclebandit/churchcare-backend/internal/service"
)

type UserService interface {
	List(ctx context.Context, p auth.Principal, q service.UserQuery) (*service.List[*model.User], error)
	Get(ctx context.Context, p auth.Principal, id string) (*model.User, error)
	Create(ctx context.Context, p auth.Principal, in service.CreateUserInput) (*model.User, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	UpdateRole(ctx context.Context, p auth.Principal, id, role string) (*model.User, error)
}

type UserController struct {
	Users UserService
	Log   logrus.FieldLogger
}

func (c *UserController) List(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		q := r.URL.Query()
		res, err := c.Users.List(r.Context(), p, service.UserQuery{
			OrganizationID: q.Get("organizationId"),
			Search:         q.Get("search"),
			Role:           q.Get("role"),
			Page:           page(r),
		})
		if err != nil {
			return err
		}
		response.OK(w, paginated(res), "")
		return nil
	})(w, r)
}

func (c *UserController) Get(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		u, err := c.Users.Get(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, u, "")
		return nil
	})(w, r)
}

func (c *UserController) Create(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.CreateUserInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		u, err := c.Users.Create(r.Context(), p, in)
		if err != nil {
			return err
		}
		response.Created(w, u, "User created successfully")
		return nil
	})(w, r)
}

func (c *UserController) Update(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.UpdateUserInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		u, err := c.Users.Update(r.Context(), p, id(r), in)
		if err != nil {
			return err
		}
		response.OK(w, u, "User updated successfully")
		return nil
	})(w, r)
}

func (c *UserController) Delete(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		if err := c.Users.Delete(r.Context(), p, id(r)); err != nil {
			return err
		}
		response.OK(w, nil, "User deleted successfully")
		return nil
	})(w, r)
}

func (c *UserController) UpdateRole(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in struct {
			Role string `json:"role"`
		}
		if err := decode(w, r, &in); err != nil {
			return err
		}
		u, err := c.Users.UpdateRole(r.Context(), p, id(r), in.Role)
		if err != nil {
			return err
		}
		response.OK(w, u, "User role updated successfully")
		return nil
	})(w, r)
}
