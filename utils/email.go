package utils

import (
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendMail delivers a transactional HTML email through the configured SMTP
// relay. Returns false without error when SMTP is not configured, so callers
// can report "not sent" instead of failing the request.
func SendMail(to string, subject string, html string) (bool, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return false, nil
	}

	port, portErr := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if portErr != nil {
		port = 587
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USERNAME")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	dialer := gomail.NewDialer(host, port, os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"))
	if err := dialer.DialAndSend(msg); err != nil {
		return false, err
	}

	return true, nil
}
