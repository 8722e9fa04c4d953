// Package smtp provides the SMTP transport used for outbound mail.
package smtp

import "io"

// Client is the subset of the smtp client used by the sender service.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface is the connection factory the sender service depends on.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
