package pinreset

import "github.com/MrEthical07/pinreset/internal/security"

// SecurityReport is a read-only summary of the engine's security posture,
// returned by [Engine.SecurityReport]. It never contains key material.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: e.config.Token.SigningMethod,
		TokenTTL:         e.config.Token.TTL,
		Issuer:           e.config.Token.Issuer,
		Audience:         e.config.Token.Audience,
		PINHash: security.HashReport{
			Memory:      e.config.PIN.Memory,
			Time:        e.config.PIN.Time,
			Parallelism: e.config.PIN.Parallelism,
			SaltLength:  e.config.PIN.SaltLength,
			KeyLength:   e.config.PIN.KeyLength,
		},
		PINMinDigits:            e.config.PIN.MinDigits,
		PINMaxDigits:            e.config.PIN.MaxDigits,
		MaxAttempts:             e.config.RateLimit.MaxAttempts,
		RateWindow:              e.config.RateLimit.Window,
		EnableIPThrottle:        e.config.Security.EnableIPThrottle,
		MaxInvalidConfirmsPerIP: e.config.Security.MaxInvalidConfirmsPerIP,
		InvalidConfirmWindow:    e.config.Security.InvalidConfirmWindow,
		EnumerationDelayMax:     e.config.Security.EnumerationDelayMax,
		IssueLockTTL:            e.config.IssueLock.TTL,
		MailSendTimeout:         e.config.Mail.SendTimeout,
	})
}
