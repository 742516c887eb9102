// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/handler"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Logger          *zap.Logger

	validate *validator.Validate
}

func NewCampaignController(svc *service.CampaignService, logger *zap.Logger) *CampaignController {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CampaignController{CampaignService: svc, Logger: logging.OrNop(logger), validate: v}
}

// NewRouter wires every campaign route plus health and metrics.
func NewRouter(c *CampaignController, h *handler.CampaignHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", c.CreateCampaign)
		r.Get("/", c.ListCampaigns)
		r.Get("/{id}", h.GetCampaignHandlerWithStats)
		r.Get("/{id}/deliveries", h.ListDeliveriesHandler)
		r.Post("/{id}/send", c.SendCampaign)
		r.Post("/{id}/personalized-preview", c.PersonalizedPreview)
	})
	return r
}

// decode reads a JSON body into dst and runs its validate tags. An empty
// body is accepted when allowEmpty is set.
func (c *CampaignController) decode(r *http.Request, dst any, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return appErrors.NewValidation("body", "is not valid JSON")
		}
	}
	if err := c.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return appErrors.NewValidation(ve[0].Field(), "failed "+ve[0].Tag()+" check")
		}
		return appErrors.NewValidation("body", err.Error())
	}
	return nil
}

type previewRequest struct {
	MemberID         int     `json:"member_id" validate:"required,gt=0"`
	OverrideTemplate *string `json:"override_template"`
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := handler.CampaignID(w, r)
	if !ok {
		return
	}

	var body previewRequest
	if err := c.decode(r, &body, false); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	preview, err := c.CampaignService.RenderPreview(r.Context(), campaignID, body.MemberID, body.OverrideTemplate)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"rendered_message": preview,
		"used_template":    body.OverrideTemplate,
		"member_id":        body.MemberID,
	})
}

type createCampaignRequest struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Body        string               `json:"body"`
	ImageURL    *string              `json:"image_url" validate:"omitempty,url"`
	Channel     model.Channel        `json:"channel" validate:"required,oneof=email sms facebook instagram linkedin whatsapp"`
	Audience    model.TargetAudience `json:"audience"`
	ScheduledAt *string              `json:"scheduled_at"`
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body createCampaignRequest
	if err := c.decode(r, &body, false); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), service.CreateCampaignInput{
		Title:       body.Title,
		Body:        body.Body,
		ImageURL:    body.ImageURL,
		Channel:     body.Channel,
		Audience:    body.Audience,
		ScheduledAt: body.ScheduledAt,
	})
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	channel := r.URL.Query().Get("channel")
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize, channel, status)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

type sendRequest struct {
	SendText   bool   `json:"send_text"`
	SendVisual bool   `json:"send_visual"`
	SenderID   string `json:"sender_id" validate:"omitempty,max=32"`
	ReplyTo    string `json:"reply_to" validate:"omitempty,email"`
	Async      bool   `json:"async"`
}

// SendCampaign dispatches now and returns the summary, or with async set
// queues the campaign and answers 202.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := handler.CampaignID(w, r)
	if !ok {
		return
	}

	var body sendRequest
	if err := c.decode(r, &body, true); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	if body.Async {
		if err := c.CampaignService.EnqueueCampaign(r.Context(), id); err != nil {
			handler.WriteError(w, c.Logger, err)
			return
		}
		handler.WriteJSON(w, http.StatusAccepted, map[string]any{"campaign_id": id, "status": "queued"})
		return
	}

	summary, err := c.CampaignService.SendCampaign(r.Context(), id, service.SendOptions{
		SendText:   body.SendText,
		SendVisual: body.SendVisual,
		SenderID:   body.SenderID,
		ReplyTo:    body.ReplyTo,
	})
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, summary)
}
