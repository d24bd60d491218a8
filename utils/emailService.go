package utils

import (
	"fmt"
	"lms/config"
	"net/smtp"
	"strings"
	"time"
)

// Generic Send Email
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: Learning Platform <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
	if err != nil {
		fmt.Println("Error sending email:", err)
		return err
	}
	return nil
}

// SendCertificateIssuedEmail notifies a learner that their course
// certificate has been issued.
func SendCertificateIssuedEmail(email, name, courseTitle, certificateNumber string, grade float64, issuedAt time.Time) {
	subject := "Your Course Completion Certificate is Ready!"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Certificate Issued</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Congratulations, %s!</h2>
        <p>You have successfully completed <strong>%s</strong> with an overall grade of <strong>%.2f%%</strong>.</p>
        <div style="background: #E8F0FE; padding: 15px; border-radius: 4px; margin: 20px 0;">
            <p style="margin: 0;">Certificate Number:</p>
            <p style="margin: 0; font-family: monospace; font-weight: bold;">%s</p>
        </div>
        <p>Issued on %s. You can verify this certificate at any time using its number.</p>
        <hr style="border: 1px solid #eee; margin: 20px 0;">
        <p style="font-size: 12px; color: #666;">This is an automated notification from the Learning Platform.</p>
    </div>
</body>
</html>`, name, courseTitle, grade, certificateNumber, issuedAt.Format("January 2, 2006"))

	go SendEmail([]string{email}, subject, body)
}
