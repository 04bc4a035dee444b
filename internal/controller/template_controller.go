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

type TemplateService interface {
	List(ctx context.Context, p auth.Principal, q service.TemplateQuery) (*service.List[*model.MessageTemplate], error)
	Get(ctx context.Context, p auth.Principal, id string) (*model.MessageTemplate, error)
	Create(ctx context.Context, p auth.Principal, in service.TemplateInput) (*model.MessageTemplate, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.TemplatePatch) (*model.MessageTemplate, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	Preview(ctx context.Context, p auth.Principal, id, memberID string) (*service.Preview, error)
}

type TemplateController struct {
	Templates TemplateService
	Log       logrus.FieldLogger
}

func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		q := r.URL.Query()
		res, err := c.Templates.List(r.Context(), p, service.TemplateQuery{
			OrganizationID: q.Get("organizationId"),
			TemplateType:   q.Get("templateType"),
			Category:       q.Get("category"),
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

func (c *TemplateController) Get(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		t, err := c.Templates.Get(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, t, "")
		return nil
	})(w, r)
}

func (c *TemplateController) Create(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.TemplateInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		t, err := c.Templates.Create(r.Context(), p, in)
		if err != nil {
			return err
		}
		response.Created(w, t, "Template created successfully")
		return nil
	})(w, r)
}

func (c *TemplateController) Update(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.TemplatePatch
		if err := decode(w, r, &in); err != nil {
			return err
		}
		t, err := c.Templates.Update(r.Context(), p, id(r), in)
		if err != nil {
			return err
		}
		response.OK(w, t, "Template updated successfully")
		return nil
	})(w, r)
}

func (c *TemplateController) Delete(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		if err := c.Templates.Delete(r.Context(), p, id(r)); err != nil {
			return err
		}
		response.OK(w, nil, "Template deleted successfully")
		return nil
	})(w, r)
}

// Preview renders the template for the member named in the body.
func (c *TemplateController) Preview(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in struct {
			MemberID string `json:"memberId"`
		}
		if err := decode(w, r, &in); err != nil {
			return err
		}
		preview, err := c.Templates.Preview(r.Context(), p, id(r), in.MemberID)
		if err != nil {
			return err
		}
		response.OK(w, preview, "")
		return nil
	})(w, r)
}
