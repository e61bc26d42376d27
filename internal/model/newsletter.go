package model

// NewsletterContent carries the dual-format body of an issue.
type NewsletterContent struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// NewsletterIssue represents a newsletter issue to fan out to every confirmed
// subscriber.
type NewsletterIssue struct {
	Title   string            `json:"title"`
	Content NewsletterContent `json:"content"`
}

// Validate validates the newsletter issue payload.
func (i *NewsletterIssue) Validate() error {
	if i.Title == "" {
		return ErrMissingTitle
	}

	if i.Content.Text == "" || i.Content.HTML == "" {
		return ErrMissingContent
	}

	return nil
}
