package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/yashrajoria/storefront/logger"
	"github.com/yashrajoria/storefront/models"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
	"github.com/yashrajoria/storefront/repository"
	"github.com/yashrajoria/storefront/sender"
	"go.uber.org/zap"
)

//go:embed templates/order_created.html
var templateFS embed.FS

const maxSendAttempts = 3

// NotificationService tells the store admin about new orders.
type NotificationService interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order) error
}

type notificationService struct {
	repo        repository.NotificationRepository
	emailSender sender.EmailSender
	adminEmail  string
	tmpl        *template.Template
	metrics     MetricsRecorder
	backoff     func(attempt int) time.Duration
	logger      *zap.Logger
}

// NewNotificationService parses the embedded templates. A nil emailSender
// disables email delivery; notifications are then only logged.
func NewNotificationService(
	repo repository.NotificationRepository,
	emailSender sender.EmailSender,
	adminEmail string,
	metrics MetricsRecorder,
	logger *zap.Logger,
) (NotificationService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/order_created.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse order email template: %w", err)
	}
	if repo == nil {
		repo = repository.NopNotificationRepository{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &notificationService{
		repo:        repo,
		emailSender: emailSender,
		adminEmail:  adminEmail,
		tmpl:        tmpl,
		metrics:     metrics,
		backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
		logger:      logger,
	}, nil
}

type emailLine struct {
	Name     string
	Variant  string
	Quantity int
	Price    string
}

type orderEmailData struct {
	OrderID  string
	Date     string
	Shipping models.ShippingInfo
	Items    []emailLine
	Total    string
}

func (s *notificationService) NotifyOrderCreated(ctx context.Context, order *models.Order) error {
	log := logger.For(ctx, s.logger).With(zap.String("order_id", order.ID.Hex()))

	if s.emailSender == nil || s.adminEmail == "" {
		log.Info("Email delivery not configured, skipping order notification")
		return nil
	}

	body, err := s.renderOrderCreated(order)
	if err != nil {
		return err
	}
	subject := "طلب جديد #" + order.ID.Hex()

	return s.sendWithRetry(ctx, log, order.ID.Hex(), subject, body)
}

func (s *notificationService) renderOrderCreated(order *models.Order) (string, error) {
	data := orderEmailData{
		OrderID:  order.ID.Hex(),
		Date:     arabicDate(order.CreatedAt),
		Shipping: order.ShippingInfo,
		Total:    fmt.Sprintf("%.2f", order.Total),
	}
	for _, item := range order.Items {
		var variant []string
		if item.Size != "" {
			variant = append(variant, item.Size)
		}
		if item.Color != "" {
			variant = append(variant, item.Color)
		}
		data.Items = append(data.Items, emailLine{
			Name:     item.Product.Name,
			Variant:  strings.Join(variant, " / "),
			Quantity: item.Quantity,
			Price:    fmt.Sprintf("%.2f", item.Product.UnitPrice()),
		})
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template render failed: %w", err)
	}
	return buf.String(), nil
}

func (s *notificationService) sendWithRetry(ctx context.Context, log *zap.Logger, orderID, subject, body string) error {
	var lastErr error
	var messageID string
	attempts := 0

	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
			if ctx.Err() != nil {
				break
			}
		}

		attempts++
		var result sender.SendResult
		result, lastErr = s.emailSender.SendEmail(ctx, s.adminEmail, subject, body)
		if lastErr == nil {
			messageID = result.MessageID
			break
		}

		log.Warn("Order email attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	entry := &models.NotificationLog{
		OrderID:   orderID,
		Recipient: s.adminEmail,
		Channel:   models.ChannelEmail,
		Status:    models.NotificationSent,
		MessageID: messageID,
		Attempts:  attempts,
	}
	if lastErr != nil {
		entry.Status = models.NotificationFailed
		entry.Error = lastErr.Error()
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricNotificationFailures, map[string]string{"Channel": models.ChannelEmail})
	}

	// detached from ctx so the outcome is recorded even past the notify deadline
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveLog(saveCtx, entry); err != nil {
		log.Error("Failed to save notification log", zap.Error(err))
	}

	if lastErr != nil {
		return fmt.Errorf("order email failed after %d attempts: %w", attempts, lastErr)
	}
	log.Info("Order email sent", zap.String("message_id", messageID), zap.Int("attempts", attempts))
	return nil
}

var arabicDigits = strings.NewReplacer(
	"0", "٠", "1", "١", "2", "٢", "3", "٣", "4", "٤",
	"5", "٥", "6", "٦", "7", "٧", "8", "٨", "9", "٩",
)

// arabicDate renders t as day/month/year in Arabic-Indic digits, Cairo time.
func arabicDate(t time.Time) string {
	if loc, err := time.LoadLocation("Africa/Cairo"); err == nil {
		t = t.In(loc)
	}
	return arabicDigits.Replace(t.Format("2/1/2006"))
}
