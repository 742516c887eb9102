package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Facebook struct {
	graphURL string
	pageID   string
	token    string
	doer     httpDoer
}

func NewFacebook(graphURL, pageID, token string, client *http.Client) *Facebook {
	return &Facebook{graphURL: strings.TrimRight(graphURL, "/"), pageID: pageID, token: token, doer: newDoer("facebook", client)}
}

// Publish posts to the page feed, or to the photo endpoint when an image is attached.
func (f *Facebook) Publish(ctx context.Context, post Post) (string, error) {
	form := url.Values{"access_token": {f.token}}
	endpoint := fmt.Sprintf("%s/%s/feed", f.graphURL, f.pageID)
	if post.ImageURL != "" {
		endpoint = fmt.Sprintf("%s/%s/photos", f.graphURL, f.pageID)
		form.Set("url", post.ImageURL)
		form.Set("caption", post.Text)
	} else {
		form.Set("message", post.Text)
	}

	var out idResponse
	if _, err := f.doer.postForm(ctx, endpoint, form, &out); err != nil {
		return "", err
	}
	if out.PostID != "" {
		return out.PostID, nil
	}
	return out.ID, nil
}

type Instagram struct {
	graphURL string
	userID   string
	token    string
	doer     httpDoer
}

func NewInstagram(graphURL, userID, token string, client *http.Client) *Instagram {
	return &Instagram{graphURL: strings.TrimRight(graphURL, "/"), userID: userID, token: token, doer: newDoer("instagram", client)}
}

var ErrImageRequired = errors.New("instagram posts require an image")

// Publish creates a media container and publishes it.
func (i *Instagram) Publish(ctx context.Context, post Post) (string, error) {
	if post.ImageURL == "" {
		return "", ErrImageRequired
	}
	var container idResponse
	form := url.Values{"image_url": {post.ImageURL}, "caption": {post.Text}, "access_token": {i.token}}
	if _, err := i.doer.postForm(ctx, fmt.Sprintf("%s/%s/media", i.graphURL, i.userID), form, &container); err != nil {
		return "", err
	}

	var published idResponse
	form = url.Values{"creation_id": {container.ID}, "access_token": {i.token}}
	if _, err := i.doer.postForm(ctx, fmt.Sprintf("%s/%s/media_publish", i.graphURL, i.userID), form, &published); err != nil {
		return "", err
	}
	return published.ID, nil
}

type LinkedIn struct {
	apiURL string
	author string
	token  string
	doer   httpDoer
}

func NewLinkedIn(apiURL, author, token string, client *http.Client) *LinkedIn {
	return &LinkedIn{apiURL: strings.TrimRight(apiURL, "/"), author: author, token: token, doer: newDoer("linkedin", client)}
}

func (l *LinkedIn) Publish(ctx context.Context, post Post) (string, error) {
	payload := map[string]any{
		"author":         l.author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": post.Text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	var out idResponse
	header, err := l.doer.postJSON(ctx, l.apiURL+"/ugcPosts", l.token, payload, &out)
	if err != nil {
		return "", err
	}
	if id := header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	return out.ID, nil
}

type WhatsApp struct {
	graphURL string
	phoneID  string
	token    string
	doer     httpDoer
}

func NewWhatsApp(graphURL, phoneID, token string, client *http.Client) *WhatsApp {
	return &WhatsApp{graphURL: strings.TrimRight(graphURL, "/"), phoneID: phoneID, token: token, doer: newDoer("whatsapp", client)}
}

func (w *WhatsApp) Message(ctx context.Context, to, text string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if _, err := w.doer.postJSON(ctx, fmt.Sprintf("%s/%s/messages", w.graphURL, w.phoneID), w.token, payload, &out); err != nil {
		return "", err
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}

var (
	_ Publisher = (*Facebook)(nil)
	_ Publisher = (*Instagram)(nil)
	_ Publisher = (*LinkedIn)(nil)
	_ Messenger = (*WhatsApp)(nil)
)
