package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rentalshop/internal/search"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Service sends operational notifications via SendGrid
type Service struct {
	apiKey        string
	operatorEmail string
}

// NewService creates an email service. An empty API key disables sending;
// callers get an error instead of a silent no-op.
func NewService(apiKey, operatorEmail string) *Service {
	if operatorEmail == "" {
		operatorEmail = "ops@aocuoihong.vn"
	}
	return &Service{
		apiKey:        apiKey,
		operatorEmail: operatorEmail,
	}
}

// SendReindexReport mails the per-backend outcome of a full reindex run
// to the shop operator.
func (s *Service) SendReindexReport(ctx context.Context, reports []search.ReindexReport) error {
	if s.apiKey == "" {
		return fmt.Errorf("SendGrid API key not configured")
	}

	from := mail.NewEmail("Rental Shop Search", "noreply@aocuoihong.vn")
	to := mail.NewEmail("Shop Operator", s.operatorEmail)

	failed := 0
	var lines []string
	for _, r := range reports {
		failed += r.Failed
		lines = append(lines, fmt.Sprintf("%-14s indexed %d/%d, %d failed, took %s",
			r.Backend, r.Indexed, r.Total, r.Failed, r.Duration.Round(time.Millisecond)))
	}

	subject := "Search reindex complete"
	if failed > 0 {
		subject = fmt.Sprintf("Search reindex complete with %d failures", failed)
	}

	body := fmt.Sprintf(`Full search reindex finished at %s.

%s`, time.Now().Format(time.RFC3339), strings.Join(lines, "\n"))

	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
