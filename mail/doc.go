// Package mail provides [pinreset.Mailer] implementations.
//
// [SMTPMailer] delivers over SMTP with implicit TLS, STARTTLS or, for local
// relays only, plaintext. [LogMailer] writes an envelope summary to a zap
// logger and is meant for development; it never logs message bodies, which
// carry reset links.
package mail
