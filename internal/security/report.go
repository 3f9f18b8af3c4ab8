package security

import "time"

type HashReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	SigningAlgorithm       string
	TokenTTL               time.Duration
	AudienceBound          bool
	PINHash                HashReport
	PINDigits              [2]int
	RateLimitingActive     bool
	MaxAttempts            int
	RateWindow             time.Duration
	IPThrottleActive       bool
	EnumerationDelayActive bool
	IssueLockTTL           time.Duration
	MailTimeoutBounded     bool
}

type ReportInput struct {
	SigningAlgorithm        string
	TokenTTL                time.Duration
	Issuer                  string
	Audience                string
	PINHash                 HashReport
	PINMinDigits            int
	PINMaxDigits            int
	MaxAttempts             int
	RateWindow              time.Duration
	EnableIPThrottle        bool
	MaxInvalidConfirmsPerIP int
	InvalidConfirmWindow    time.Duration
	EnumerationDelayMax     time.Duration
	IssueLockTTL            time.Duration
	MailSendTimeout         time.Duration
}

// BuildReport derives the posture flags from raw configuration values.
func BuildReport(input ReportInput) Report {
	return Report{
		SigningAlgorithm:   input.SigningAlgorithm,
		TokenTTL:           input.TokenTTL,
		AudienceBound:      input.Issuer != "" && input.Audience != "",
		PINHash:            input.PINHash,
		PINDigits:          [2]int{input.PINMinDigits, input.PINMaxDigits},
		RateLimitingActive: input.MaxAttempts > 0 && input.RateWindow > 0,
		MaxAttempts:        input.MaxAttempts,
		RateWindow:         input.RateWindow,
		IPThrottleActive: input.EnableIPThrottle &&
			input.MaxInvalidConfirmsPerIP > 0 &&
			input.InvalidConfirmWindow > 0,
		EnumerationDelayActive: input.EnumerationDelayMax > 0,
		IssueLockTTL:           input.IssueLockTTL,
		MailTimeoutBounded:     input.MailSendTimeout > 0,
	}
}
