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

type AutomationService interface {
	List(ctx context.Context, p auth.Principal, q service.AutomationQuery) (*service.List[*model.AutomationRule], error)
	Get(ctx context.Context, p auth.Principal, id string) (*model.AutomationRule, error)
	Create(ctx context.Context, p auth.Principal, in service.AutomationInput) (*model.AutomationRule, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.AutomationPatch) (*model.AutomationRule, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	Run(ctx context.Context, p auth.Principal, id string) (*model.ExecutionResult, error)
	Logs(ctx context.Context, p auth.Principal, id string, page service.Page) (*service.List[*model.AutomationLog], error)
}

type AutomationController struct {
	Automation AutomationService
	Log        logrus.FieldLogger
}

func (c *AutomationController) List(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		q := r.URL.Query()
		res, err := c.Automation.List(r.Context(), p, service.AutomationQuery{
			OrganizationID: q.Get("organizationId"),
			TriggerType:    q.Get("triggerType"),
			IsActive:       boolParam(r, "isActive"),
			Page:           page(r),
		})
		if err != nil {
			return err
		}
		response.OK(w, paginated(res), "")
		return nil
	})(w, r)
}

func (c *AutomationController) Get(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		rule, err := c.Automation.Get(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, rule, "")
		return nil
	})(w, r)
}

func (c *AutomationController) Create(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.AutomationInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		rule, err := c.Automation.Create(r.Context(), p, in)
		if err != nil {
			return err
		}
		response.Created(w, rule, "Automation rule created successfully")
		return nil
	})(w, r)
}

func (c *AutomationController) Update(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.AutomationPatch
		if err := decode(w, r, &in); err != nil {
			return err
		}
		rule, err := c.Automation.Update(r.Context(), p, id(r), in)
		if err != nil {
			return err
		}
		response.OK(w, rule, "Automation rule updated successfully")
		return nil
	})(w, r)
}

func (c *AutomationController) Delete(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		if err := c.Automation.Delete(r.Context(), p, id(r)); err != nil {
			return err
		}
		response.OK(w, nil, "Automation rule deleted successfully")
		return nil
	})(w, r)
}

func (c *AutomationController) Run(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		res, err := c.Automation.Run(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, res, "Automation rule executed")
		return nil
	})(w, r)
}

func (c *AutomationController) Logs(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		res, err := c.Automation.Logs(r.Context(), p, id(r), page(r))
		if err != nil {
			return err
		}
		response.OK(w, paginated(res), "")
		return nil
	})(w, r)
}
