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

type WelfareService interface {
	List(ctx context.Context, p auth.Principal, q service.WelfareQuery) (*service.List[*model.WelfareRequest], error)
	Get(ctx context.Context, p auth.Principal, id string) (*model.WelfareRequest, error)
	Create(ctx context.Context, p auth.Principal, in service.WelfareInput) (*model.WelfareRequest, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.WelfarePatch) (*model.WelfareRequest, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	Transition(ctx context.Context, p auth.Principal, id string, in service.TransitionInput) (*model.WelfareRequest, error)
}

type WelfareController struct {
	Welfare WelfareService
	Log     logrus.FieldLogger
}

func (c *WelfareController) List(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		q := r.URL.Query()
		mine := boolParam(r, "mine")
		res, err := c.Welfare.List(r.Context(), p, service.WelfareQuery{
			OrganizationID: q.Get("organizationId"),
			Status:         q.Get("status"),
			Category:       q.Get("category"),
			UrgencyLevel:   q.Get("urgencyLevel"),
			Mine:           mine != nil && *mine,
			Page:           page(r),
		})
		if err != nil {
			return err
		}
		response.OK(w, paginated(res), "")
		return nil
	})(w, r)
}

func (c *WelfareController) Get(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		req, err := c.Welfare.Get(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, req, "")
		return nil
	})(w, r)
}

func (c *WelfareController) Create(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.WelfareInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		req, err := c.Welfare.Create(r.Context(), p, in)
		if err != nil {
			return err
		}
		response.Created(w, req, "Welfare request submitted successfully")
		return nil
	})(w, r)
}

func (c *WelfareController) Update(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.WelfarePatch
		if err := decode(w, r, &in); err != nil {
			return err
		}
		req, err := c.Welfare.Update(r.Context(), p, id(r), in)
		if err != nil {
			return err
		}
		response.OK(w, req, "Welfare request updated successfully")
		return nil
	})(w, r)
}

func (c *WelfareController) Delete(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		if err := c.Welfare.Delete(r.Context(), p, id(r)); err != nil {
			return err
		}
		response.OK(w, nil, "Welfare request deleted successfully")
		return nil
	})(w, r)
}

func (c *WelfareController) Transition(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.TransitionInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		req, err := c.Welfare.Transition(r.Context(), p, id(r), in)
		if err != nil {
			return err
		}
		response.OK(w, req, "Welfare request status updated")
		return nil
	})(w, r)
}
