package accounts

import (
	"context"
	"fmt"
)

// MailJob is a fire-and-forget dispatch request handed to the delivery
// transport. The core only needs the transport to accept the job; it
// never waits on a delivery confirmation.
type MailJob struct {
	Subject    string         `json:"subject"`
	Recipients []string       `json:"recipients"`
	Template   string         `json:"template"`
	Data       map[string]any `json:"data,omitempty"`
}

// Mailer accepts outbound notification jobs.
type Mailer interface {
	Enqueue(ctx context.Context, job MailJob) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, job MailJob) error

// Enqueue implements Mailer.
func (f MailerFunc) Enqueue(ctx context.Context, job MailJob) error {
	if f == nil {
		return nil
	}
	return f(ctx, job)
}

type noopMailer struct{}

func (noopMailer) Enqueue(context.Context, MailJob) error { return nil }

// ConsoleMailer prints jobs to stdout, useful in development where no
// real transport is configured.
type ConsoleMailer struct{}

// Enqueue implements Mailer.
func (ConsoleMailer) Enqueue(_ context.Context, job MailJob) error {
	fmt.Println("====== SENDING EMAIL NOTIFICATION =======")
	fmt.Printf("to: %v\n", job.Recipients)
	fmt.Printf("subject: %s\n", job.Subject)
	fmt.Printf("template: %s\n", job.Template)
	for k, v := range job.Data {
		fmt.Printf("%s: %v\n", k, v)
	}
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}
