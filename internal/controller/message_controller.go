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

type MessageService interface {
	List(ctx context.Context, p auth.Principal, q service.MessageQuery) (*service.List[*model.Message], error)
	Get(ctx context.Context, p auth.Principal, id string) (*model.Message, error)
	Recipients(ctx context.Context, p auth.Principal, id string) ([]*model.MessageRecipient, error)
	Create(ctx context.Context, p auth.Principal, in service.MessageInput) (*model.Message, error)
	Update(ctx context.Context, p auth.Principal, id string, in service.MessagePatch) (*model.Message, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
	Send(ctx context.Context, p auth.Principal, id string) (*model.Message, error)
}

type MessageController struct {
	Messages MessageService
	Log      logrus.FieldLogger
}

func (c *MessageController) List(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		q := r.URL.Query()
		res, err := c.Messages.List(r.Context(), p, service.MessageQuery{
			OrganizationID: q.Get("organizationId"),
			Status:         q.Get("status"),
			MessageType:    q.Get("messageType"),
			Page:           page(r),
		})
		if err != nil {
			return err
		}
		response.OK(w, paginated(res), "")
		return nil
	})(w, r)
}

func (c *MessageController) Get(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		m, err := c.Messages.Get(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, m, "")
		return nil
	})(w, r)
}

func (c *MessageController) Recipients(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		rs, err := c.Messages.Recipients(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		if rs == nil {
			rs = []*model.MessageRecipient{}
		}
		response.OK(w, rs, "")
		return nil
	})(w, r)
}

func (c *MessageController) Create(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.MessageInput
		if err := decode(w, r, &in); err != nil {
			return err
		}
		m, err := c.Messages.Create(r.Context(), p, in)
		if err != nil {
			return err
		}
		response.Created(w, m, "Message created successfully")
		return nil
	})(w, r)
}

func (c *MessageController) Update(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		var in service.MessagePatch
		if err := decode(w, r, &in); err != nil {
			return err
		}
		m, err := c.Messages.Update(r.Context(), p, id(r), in)
		if err != nil {
			return err
		}
		response.OK(w, m, "Message updated successfully")
		return nil
	})(w, r)
}

func (c *MessageController) Delete(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		if err := c.Messages.Delete(r.Context(), p, id(r)); err != nil {
			return err
		}
		response.OK(w, nil, "Message deleted successfully")
		return nil
	})(w, r)
}

func (c *MessageController) Send(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		m, err := c.Messages.Send(r.Context(), p, id(r))
		if err != nil {
			return err
		}
		response.OK(w, m, "Message queued for delivery")
		return nil
	})(w, r)
}
