package email

import (
	"fmt"
	"net/smtp"
	"strconv"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port int
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(host string, port int, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
		send: smtp.SendMail,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to string, c OrderConfirmation) error {
	subject := fmt.Sprintf("Order confirmed: %s", c.TrackingNumber)
	body := BuildOrderConfirmationBody(c)
	return s.deliver(to, subject, body)
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := s.host + ":" + strconv.Itoa(s.port)
	return s.send(addr, nil, s.from, []string{to}, []byte(msg))
}
