// internal/service/template_service.go
package service

import (
	"context"
	"strings"

	appErrors "github.com/unclebandit/campaign-dispatch/internal/errors"
	"github.com/unclebandit/campaign-dispatch/internal/format"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/personalize"
)

// Preview is what one member would receive.
type Preview struct {
	MemberID int           `json:"member_id"`
	Channel  model.Channel `json:"channel"`
	To       string        `json:"to,omitempty"`
	Subject  string        `json:"subject,omitempty"`
	Text     string        `json:"text"`
	HTML     string        `json:"html,omitempty"`
}

// RenderPreview personalizes the campaign, or overrideTemplate when set,
// for one member without sending anything.
func (s *CampaignService) RenderPreview(ctx context.Context, campaignID, memberID int, overrideTemplate *string) (*Preview, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	member, err := s.MemberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, appErrors.NewValidation("member_id", "does not exist")
	}

	template := campaign.Body
	if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
		template = *overrideTemplate
	}
	if strings.TrimSpace(template) == "" {
		return nil, appErrors.NewValidation("template", "cannot be empty")
	}

	return RenderFor(campaign, template, *member, s.Signature), nil
}

// RenderFor builds the channel-specific output for one member.
func RenderFor(c *model.Campaign, template string, m model.Member, sig format.Signature) *Preview {
	msg := personalize.RenderMessage(c.Channel, c.Title, template, m)
	p := &Preview{MemberID: m.ID, Channel: c.Channel, To: msg.To, Text: format.PlainText(msg.Text)}

	if c.Channel == model.ChannelEmail {
		img := ""
		if c.HasImage() {
			img = *c.ImageURL
		}
		p.Subject = msg.Subject
		p.Text = format.EmailText(msg.Text, sig)
		p.HTML = format.EmailHTML(msg.Text, img, sig)
	}
	return p
}
