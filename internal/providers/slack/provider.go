package slack

import (
	"context"
	"fmt"

	alertdomain "github.com/smallbiznis/opsalert/internal/alert/domain"
)

type Provider interface {
	PostMessage(ctx context.Context, channelID string, message string) error
}

// NoOpProvider is used when SLACK_WEBHOOK_URL is unset.
type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return nil
}

// AlertMessage renders the single line posted for an alert.
func AlertMessage(a *alertdomain.Alert) string {
	return fmt.Sprintf("[%s] %s: %s", a.Deployment, a.Title, a.Description)
}
