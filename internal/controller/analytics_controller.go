package controller

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/response"
	"github.com/unclebandit/churchcare-backend/internal/service"
)

type AnalyticsService interface {
	Report(ctx context.Context, p auth.Principal, q service.AnalyticsQuery) (any, error)
}

type AnalyticsController struct {
	Analytics AnalyticsService
	Log       logrus.FieldLogger
}

func (c *AnalyticsController) Report(w http.ResponseWriter, r *http.Request) {
	handle(c.Log, func(w http.ResponseWriter, r *http.Request, p auth.Principal) error {
		q := r.URL.Query()
		data, err := c.Analytics.Report(r.Context(), p, service.AnalyticsQuery{
			Type:           q.Get("type"),
			OrganizationID: q.Get("organizationId"),
			StartDate:      q.Get("startDate"),
			EndDate:        q.Get("endDate"),
		})
		if err != nil {
			return err
		}
		response.OK(w, data, "")
		return nil
	})(w, r)
}
