// Package app assembles the dispatch pipeline from configuration. The
// server and the worker share it.
package app

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/config"
	"github.com/unclebandit/campaign-dispatch/internal/format"
	"github.com/unclebandit/campaign-dispatch/internal/ledger"
	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/provider/email"
	"github.com/unclebandit/campaign-dispatch/internal/provider/sms"
	"github.com/unclebandit/campaign-dispatch/internal/provider/social"
	"github.com/unclebandit/campaign-dispatch/internal/repository"
	"github.com/unclebandit/campaign-dispatch/internal/retry"
	"github.com/unclebandit/campaign-dispatch/internal/sender"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

// Pipeline holds the wired repositories and the dispatcher.
type Pipeline struct {
	CampaignRepo *repository.CampaignRepository
	MemberRepo   *repository.MemberRepository
	LogRepo      *repository.DeliveryLogRepository
	Ledger       *ledger.Ledger
	Signature    format.Signature
	Dispatcher   *service.Dispatcher
}

// Build wires repositories, provider clients, senders and the dispatcher.
// Social platforms without credentials are left out and report
// "not configured" when targeted.
func Build(cfg *config.Config, conn *sqlx.DB, logger *zap.Logger) *Pipeline {
	p := &Pipeline{
		CampaignRepo: &repository.CampaignRepository{DB: conn},
		MemberRepo:   &repository.MemberRepository{DB: conn},
		LogRepo:      &repository.DeliveryLogRepository{DB: conn},
		Signature: format.Signature{
			Organization: cfg.App.Organization,
			Tagline:      cfg.App.Tagline,
			Website:      cfg.App.Website,
		},
	}
	p.Ledger = ledger.New(p.LogRepo, logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	p.Dispatcher = &service.Dispatcher{
		CampaignRepo: p.CampaignRepo,
		MemberRepo:   p.MemberRepo,
		Ledger:       p.Ledger,
		Email:        sender.NewEmailSender(EmailProvider(cfg.Email, httpClient, logger), logger),
		SMS:          sender.NewSMSSender(sms.NewClient(cfg.SMS.APIURL, cfg.SMS.APIKey, cfg.SMS.Timeout, logger), logger, retry.Sleep),
		Social:       socialSender(cfg.Social, httpClient, logger),
		Signature:    p.Signature,
		Defaults: service.SendOptions{
			SenderID: cfg.SMS.SenderID,
			From:     cfg.Email.From,
			ReplyTo:  cfg.Email.ReplyTo,
		},
		Logger: logger,
	}
	return p
}

// EmailProvider picks the HTTP API or SMTP relay.
func EmailProvider(cfg config.EmailConfig, client *http.Client, logger *zap.Logger) email.Provider {
	if cfg.Provider == "smtp" {
		return email.NewSMTPClient(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			UseSSL:   cfg.SMTPUseSSL,
		}, logger)
	}
	return email.NewHTTPClient(cfg.APIURL, cfg.APIKey, client, logger)
}

func socialSender(cfg config.SocialConfig, client *http.Client, logger *zap.Logger) *sender.SocialSender {
	publishers := map[model.Channel]social.Publisher{}
	if cfg.FacebookPageID != "" && cfg.FacebookToken != "" {
		publishers[model.ChannelFacebook] = social.NewFacebook(cfg.GraphURL, cfg.FacebookPageID, cfg.FacebookToken, client)
	}
	if cfg.InstagramUserID != "" && cfg.InstagramToken != "" {
		publishers[model.ChannelInstagram] = social.NewInstagram(cfg.GraphURL, cfg.InstagramUserID, cfg.InstagramToken, client)
	}
	if cfg.LinkedInAuthor != "" && cfg.LinkedInToken != "" {
		publishers[model.ChannelLinkedIn] = social.NewLinkedIn(cfg.LinkedInURL, cfg.LinkedInAuthor, cfg.LinkedInToken, client)
	}

	var messenger social.Messenger
	if cfg.WhatsAppPhoneID != "" && cfg.WhatsAppToken != "" {
		messenger = social.NewWhatsApp(cfg.GraphURL, cfg.WhatsAppPhoneID, cfg.WhatsAppToken, client)
	}
	return sender.NewSocialSender(publishers, messenger, cfg.RatePerSecond, cfg.MaxConcurrentSend, logger)
}
