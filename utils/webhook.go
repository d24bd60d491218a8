package utils

import (
	"lms/config"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// NotifyCertificateIssued posts a certificate-issued event to the configured
// webhook URL. Delivery is best effort; a failed post is logged and dropped.
func NotifyCertificateIssued(userID, courseID uint, certificateNumber string, grade float64, issuedAt time.Time) {
	webhookURL := config.AppConfig.CertWebhookURL
	if webhookURL == "" {
		return
	}

	client := resty.New().SetTimeout(10 * time.Second)

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"event":              "certificate.issued",
			"user_id":            userID,
			"course_id":          courseID,
			"certificate_number": certificateNumber,
			"overall_grade":      grade,
			"issued_at":          issuedAt.Format(time.RFC3339),
		}).
		Post(webhookURL)

	if err != nil {
		log.Printf("[WEBHOOK] Failed to deliver certificate event: %v", err)
		return
	}
	if resp.StatusCode() >= 300 {
		log.Printf("[WEBHOOK] Certificate event rejected with status %d", resp.StatusCode())
	}
}
