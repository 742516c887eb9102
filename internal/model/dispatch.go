// internal/model/dispatch.go
package model

// PersonalizedMessage is built per recipient and never stored on its own.
type PersonalizedMessage struct {
	RecipientID int
	To          string
	Subject     string
	Text        string
	HTML        string
}

const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

type RecipientResult struct {
	RecipientID int    `json:"recipient_id"`
	To          string `json:"to,omitempty"`
	Status      string `json:"status"`
	ProviderID  string `json:"provider_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type DispatchSummary struct {
	CampaignID int               `json:"campaign_id"`
	Channel    Channel           `json:"channel"`
	Total      int               `json:"total"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Success    bool              `json:"success"`
	Scheduled  bool              `json:"scheduled,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	Results    []RecipientResult `json:"results"`
}

func (s *DispatchSummary) Add(r RecipientResult) {
	s.Results = append(s.Results, r)
	s.Total++
	switch r.Status {
	case ResultSent:
		s.Sent++
	case ResultFailed:
		s.Failed++
	case ResultSkipped:
		s.Skipped++
	}
}
