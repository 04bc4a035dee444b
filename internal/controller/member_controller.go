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

type MemberService interface {
	List(ctx context.Context, p auth.Principal, q service.MemberQuery) (*service.List[*model.Member], error)
	Get(ctx context.Context, p auth.Principal, id string) (*model.Member, error)
	Create(ctx context.Context, p auth.Principal, in service.MemberInput) (*model.Member, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.MemberPatch) (*model.Member, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
}

type MemberController struct {
	Members MemberService
	Log     logrus.FieldLogger
}

func (c *MemberController) List(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		q := r.URL.Query()
		res, err := c.Members.List(r.Context(), p, service.MemberQuery{
			OrganizationID: q.Get("organizationId"),
			Search:         q.Get("search"),
			Status:         q.Get("status"),
			MemberType:     q.Get("memberType"),
			Gender:         q.Get("gender"),
			Page:           page(r),
		})
		if err != nil {
			return err
		}
		response.OK(w, paginated(res), "")
		return nil
	})(w, r)
}

func (c *MemberController) Get(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		m, err := c.Members.Get(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, m, "")
		return nil
	})(w, r)
}

func (c *MemberController) Create(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.MemberInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		m, err := c.Members.Create(r.Context(), p, in)
		if err != nil {
			return err
		}
		response.Created(w, m, "Member created successfully")
		return nil
	})(w, r)
}

func (c *MemberController) Update(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.MemberPatch
		if err := decode(w, r, &in); err != nil {
			return err
		}
		m, err := c.Members.Update(r.Context(), p, id(r), in)
		if err != nil {
			return err
		}
		response.OK(w, m, "Member updated successfully")
		return nil
	})(w, r)
}

func (c *MemberController) Delete(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		if err := c.Members.Delete(r.Context(), p, id(r)); err != nil {
			return err
		}
		response.OK(w, nil, "Member deleted successfully")
		return nil
	})(w, r)
}
