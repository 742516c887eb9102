// internal/service/dispatcher.go
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/audience"
	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/format"
	"github.com/unclebandit/campaign-dispatch/internal/ledger"
	"github.com/unclebandit/campaign-dispatch/internal/logging"
	"github.com/unclebandit/campaign-dispatch/internal/metrics"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/personalize"
	"github.com/unclebandit/campaign-dispatch/internal/provider/email"
	"github.com/unclebandit/campaign-dispatch/internal/provider/social"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
	"github.com/unclebandit/campaign-dispatch/internal/sender"
)

const (
	MissingEmail  = "Email address is missing"
	MissingMobile = "Mobile number is missing"
)

const recoverTimeout = 5 * time.Second

// SendOptions controls what a dispatch delivers and as whom.
type SendOptions struct {
	SendText   bool   `json:"send_text"`
	SendVisual bool   `json:"send_visual"`
	SenderID   string `json:"sender_id,omitempty"`
	From       string `json:"from,omitempty"`
	ReplyTo    string `json:"reply_to,omitempty"`
}

// DispatchRequest carries either an explicit recipient list or relies on
// the campaign's audience.
type DispatchRequest struct {
	Campaign   *model.Campaign
	Recipients []model.Member
	Options    SendOptions
}

type EmailDelivery interface {
	Send(ctx context.Context, items []sender.EmailItem) sender.BatchResult
}

type SMSDelivery interface {
	SendBulk(ctx context.Context, senderID string, items []sender.SMSItem, onResult func(sender.SMSItem, sender.SMSResult)) sender.BatchResult
}

type SocialDelivery interface {
	Publish(ctx context.Context, channel model.Channel, post social.Post) sender.BatchResult
	Message(ctx context.Context, items []sender.SocialItem) sender.BatchResult
}

// Dispatcher runs one campaign end to end: resolve, validate, claim,
// send, record, finalize.
type Dispatcher struct {
	CampaignRepo repository.CampaignRepositoryInterface
	MemberRepo   repository.MemberRepositoryInterface
	Ledger       *ledger.Ledger
	Email        EmailDelivery
	SMS          SMSDelivery
	Social       SocialDelivery
	Signature    format.Signature
	Defaults     SendOptions
	Logger       *zap.Logger
	Now          func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch runs to completion even if ctx is cancelled; callers that need
// a deadline must bound the call themselves.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*model.DispatchSummary, error) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.OrNop(d.Logger)

	c := req.Campaign
	if c == nil {
		return nil, appErrors.NewValidation("campaign", "is required")
	}
	// An empty audience is reported ahead of content errors.
	var recipients []model.Member
	if !c.Channel.IsPost() {
		var err error
		if recipients, err = d.resolve(ctx, c, req.Recipients); err != nil {
			return nil, err
		}
	}

	opts := d.withDefaults(req.Options)
	if err := validate(c, opts); err != nil {
		return nil, err
	}

	logger = logger.With(zap.Int("campaign_id", c.ID), zap.String("channel", string(c.Channel)))

	if c.ScheduledAt != nil && c.ScheduledAt.After(d.now()) {
		if err := d.schedule(ctx, c); err != nil {
			return nil, err
		}
		logger.Info("campaign scheduled", zap.Time("scheduled_at", *c.ScheduledAt))
		return &model.DispatchSummary{
			CampaignID: c.ID,
			Channel:    c.Channel,
			Total:      len(recipients),
			Success:    true,
			Scheduled:  true,
			Results:    []model.RecipientResult{},
		}, nil
	}

	if err := d.claim(ctx, c); err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Info("dispatch started", zap.Int("recipients", len(recipients)))

	summary := &model.DispatchSummary{CampaignID: c.ID, Channel: c.Channel, Results: []model.RecipientResult{}}
	switch {
	case c.Channel == model.ChannelEmail:
		d.sendEmail(ctx, c, recipients, opts, summary)
	case c.Channel == model.ChannelSMS:
		d.sendSMS(ctx, c, recipients, opts, summary)
	case c.Channel == model.ChannelWhatsApp:
		d.sendWhatsApp(ctx, c, recipients, opts, summary)
	case c.Channel.IsPost():
		d.publish(ctx, c, opts, summary)
	}

	summary.Success = summary.Sent > 0
	if summary.Success && (summary.Failed > 0 || summary.Skipped > 0) {
		summary.Warning = fmt.Sprintf("%d of %d deliveries did not go through", summary.Failed+summary.Skipped, summary.Total)
	}
	metrics.RecordDispatchDuration(string(c.Channel), time.Since(start).Seconds())

	if err := d.finalize(ctx, c, summary); err != nil {
		if summary.Sent == 0 || !d.recoverSent(c, logger) {
			logger.Error("failed to finalize campaign", zap.Error(err))
			return summary, err
		}
		logger.Warn("sent_at not recorded, campaign marked sent", zap.Error(err))
	}

	logger.Info("dispatch finished",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", time.Since(start)))
	return summary, nil
}

// DispatchByID loads a stored campaign and dispatches it to its audience.
// Options selecting neither text nor visual fall back to DefaultOptions.
func (d *Dispatcher) DispatchByID(ctx context.Context, campaignID int, opts SendOptions) (*model.DispatchSummary, error) {
	c, err := d.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !opts.SendText && !opts.SendVisual {
		def := DefaultOptions(c)
		opts.SendText, opts.SendVisual = def.SendText, def.SendVisual
	}
	return d.Dispatch(ctx, DispatchRequest{Campaign: c, Options: opts})
}

// DefaultOptions sends the body, and the image when the campaign has one.
func DefaultOptions(c *model.Campaign) SendOptions {
	return SendOptions{
		SendText:   strings.TrimSpace(c.Body) != "",
		SendVisual: c.HasImage(),
	}
}

func (d *Dispatcher) withDefaults(o SendOptions) SendOptions {
	if o.SenderID == "" {
		o.SenderID = d.Defaults.SenderID
	}
	if o.From == "" {
		o.From = d.Defaults.From
	}
	if o.ReplyTo == "" {
		o.ReplyTo = d.Defaults.ReplyTo
	}
	return o
}

func validate(c *model.Campaign, opts SendOptions) error {
	if strings.TrimSpace(c.Title) == "" {
		return appErrors.NewValidation("title", "is required")
	}
	if !c.Channel.Valid() {
		return appErrors.NewValidation("channel", fmt.Sprintf("%q is not supported", c.Channel))
	}
	if !opts.SendText && !opts.SendVisual {
		return appErrors.NewValidation("", "select text, visual, or both")
	}
	if opts.SendText && strings.TrimSpace(c.Body) == "" {
		return appErrors.NewValidation("body", "is required when sending text")
	}
	if opts.SendVisual && !c.HasImage() {
		return appErrors.NewValidation("image_url", "is required when sending a visual")
	}
	if c.Channel == model.ChannelSMS && utf8.RuneCountInString(c.Body) > sender.MaxSMSLength {
		return appErrors.NewValidation("body", fmt.Sprintf("exceeds %d characters for SMS", sender.MaxSMSLength))
	}
	if c.Channel == model.ChannelInstagram && !opts.SendVisual {
		return appErrors.NewValidation("image_url", "is required for instagram")
	}
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, c *model.Campaign, explicit []model.Member) ([]model.Member, error) {
	if len(explicit) > 0 {
		return audience.Resolve(model.AllMembers(), explicit)
	}

	var (
		pool []model.Member
		err  error
	)
	switch spec := c.Audience; {
	case len(spec.IDs) > 0 && (spec.Kind == model.AudienceExplicit || spec.Kind == model.AudienceBatch):
		pool, err = d.MemberRepo.ListByIDs(ctx, spec.IDs)
	default:
		pool, err = d.MemberRepo.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	return audience.Resolve(c.Audience, pool)
}

func (d *Dispatcher) schedule(ctx context.Context, c *model.Campaign) error {
	switch c.Status {
	case model.StatusSending:
		return appErrors.ErrDispatchInProgress
	case model.StatusSent:
		return appErrors.ErrCampaignAlreadySent
	}
	c.Status = model.StatusScheduled
	if c.ID == 0 {
		return d.CampaignRepo.Create(ctx, c)
	}
	return d.CampaignRepo.Update(ctx, c)
}

// claim moves the campaign into sending, so at most one dispatch owns it.
func (d *Dispatcher) claim(ctx context.Context, c *model.Campaign) error {
	if c.ID == 0 {
		c.Status = model.StatusSending
		return d.CampaignRepo.Create(ctx, c)
	}

	ok, err := d.CampaignRepo.ClaimForDispatch(ctx, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		if c.Status == model.StatusSent {
			return fmt.Errorf("campaign %d: %w", c.ID, appErrors.ErrCampaignAlreadySent)
		}
		return fmt.Errorf("campaign %d: %w", c.ID, appErrors.ErrDispatchInProgress)
	}
	c.Status = model.StatusSending
	return nil
}

// finalize marks the campaign sent, or releases it back to draft when
// nothing went out so it can be retried.
func (d *Dispatcher) finalize(ctx context.Context, c *model.Campaign, summary *model.DispatchSummary) error {
	if summary.Sent == 0 {
		c.Status = model.StatusDraft
		return d.CampaignRepo.UpdateStatus(ctx, c.ID, model.StatusDraft)
	}
	now := d.now()
	c.Status, c.SentAt = model.StatusSent, &now
	return d.CampaignRepo.MarkSent(ctx, c.ID, now)
}

// recoverSent retries the sent transition on a fresh context after MarkSent
// failed, so a campaign that delivered does not stay in sending. A campaign
// left in sending after both attempts needs its status set by hand.
func (d *Dispatcher) recoverSent(c *model.Campaign, logger *zap.Logger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), recoverTimeout)
	defer cancel()
	if err := d.CampaignRepo.UpdateStatus(ctx, c.ID, model.StatusSent); err != nil {
		logger.Error("campaign left in sending", zap.Error(err))
		return false
	}
	return true
}

func (d *Dispatcher) record(ctx context.Context, c *model.Campaign, summary *model.DispatchSummary, r model.RecipientResult) {
	summary.Add(r)
	if d.Ledger != nil {
		d.Ledger.Record(ctx, c.ID, r, c.Channel)
	}
}

func (d *Dispatcher) recordAll(ctx context.Context, c *model.Campaign, summary *model.DispatchSummary, results []model.RecipientResult) {
	for _, r := range results {
		summary.Add(r)
	}
	if d.Ledger != nil {
		d.Ledger.RecordAll(ctx, c.ID, results, c.Channel)
	}
}

func skipped(m model.Member, reason string) model.RecipientResult {
	return model.RecipientResult{RecipientID: m.ID, Status: model.ResultSkipped, Error: reason}
}

func imageURL(c *model.Campaign, opts SendOptions) string {
	if opts.SendVisual && c.HasImage() {
		return *c.ImageURL
	}
	return ""
}

func textBody(c *model.Campaign, opts SendOptions) string {
	if opts.SendText {
		return c.Body
	}
	return ""
}

func (d *Dispatcher) sendEmail(ctx context.Context, c *model.Campaign, recipients []model.Member, opts SendOptions, summary *model.DispatchSummary) {
	body := textBody(c, opts)
	img := imageURL(c, opts)

	items := make([]sender.EmailItem, 0, len(recipients))
	var missing []model.RecipientResult
	for _, m := range recipients {
		if strings.TrimSpace(m.Email) == "" {
			missing = append(missing, skipped(m, MissingEmail))
			continue
		}
		msg := personalize.RenderMessage(model.ChannelEmail, c.Title, body, m)
		items = append(items, sender.EmailItem{
			RecipientID: m.ID,
			Message: email.Message{
				From:    opts.From,
				To:      msg.To,
				Subject: msg.Subject,
				HTML:    format.EmailHTML(msg.Text, img, d.Signature),
				Text:    format.EmailText(msg.Text, d.Signature),
				ReplyTo: opts.ReplyTo,
				Headers: map[string]string{"X-Campaign-ID": strconv.Itoa(c.ID)},
			},
		})
	}
	// Ledger rows for email, skips included, are written once every chunk
	// has resolved.
	var results []model.RecipientResult
	if len(items) > 0 {
		results = d.Email.Send(ctx, items).Results
	}
	d.recordAll(ctx, c, summary, append(results, missing...))
}

func (d *Dispatcher) sendSMS(ctx context.Context, c *model.Campaign, recipients []model.Member, opts SendOptions, summary *model.DispatchSummary) {
	items := make([]sender.SMSItem, 0, len(recipients))
	for _, m := range recipients {
		if strings.TrimSpace(m.Mobile) == "" {
			d.record(ctx, c, summary, skipped(m, MissingMobile))
			continue
		}
		text := personalize.Render(textBody(c, opts), m)
		if img := imageURL(c, opts); img != "" {
			text = strings.TrimSpace(text + "\n" + img)
		}
		if utf8.RuneCountInString(text) > sender.MaxSMSLength {
			d.record(ctx, c, summary, model.RecipientResult{
				RecipientID: m.ID,
				To:          m.Mobile,
				Status:      model.ResultFailed,
				Error:       fmt.Sprintf("Message exceeds %d characters", sender.MaxSMSLength),
			})
			continue
		}
		items = append(items, sender.SMSItem{RecipientID: m.ID, Number: m.Mobile, Message: text})
	}
	if len(items) == 0 {
		return
	}

	d.SMS.SendBulk(ctx, opts.SenderID, items, func(it sender.SMSItem, r sender.SMSResult) {
		res := model.RecipientResult{RecipientID: it.RecipientID, To: r.To, Status: model.ResultSent}
		if !r.Success {
			res.Status, res.Error = model.ResultFailed, r.Error
		}
		d.record(ctx, c, summary, res)
	})
}

func (d *Dispatcher) sendWhatsApp(ctx context.Context, c *model.Campaign, recipients []model.Member, opts SendOptions, summary *model.DispatchSummary) {
	items := make([]sender.SocialItem, 0, len(recipients))
	for _, m := range recipients {
		if strings.TrimSpace(m.Mobile) == "" {
			d.record(ctx, c, summary, skipped(m, MissingMobile))
			continue
		}
		text := personalize.Render(textBody(c, opts), m)
		if img := imageURL(c, opts); img != "" {
			text = strings.TrimSpace(text + "\n" + img)
		}
		items = append(items, sender.SocialItem{RecipientID: m.ID, To: m.Mobile, Text: text})
	}
	if len(items) == 0 {
		return
	}

	res := d.Social.Message(ctx, items)
	d.recordAll(ctx, c, summary, res.Results)
}

func (d *Dispatcher) publish(ctx context.Context, c *model.Campaign, opts SendOptions, summary *model.DispatchSummary) {
	post := social.Post{Text: format.PlainText(textBody(c, opts)), ImageURL: imageURL(c, opts)}
	res := d.Social.Publish(ctx, c.Channel, post)
	d.recordAll(ctx, c, summary, res.Results)
}
