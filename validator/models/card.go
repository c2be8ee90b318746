package models

import "time"

// RawCardRecord is one entry of the input container.
type RawCardRecord struct {
	Number     string `json:"CreditCardNumber"`
	Expiration string `json:"ExpDate"`
	CVV        string `json:"CVV"`
}

type Brand string

const (
	BrandVisa            Brand = "Visa"
	BrandMastercard      Brand = "Mastercard"
	BrandAmericanExpress Brand = "American Express"
	BrandMaestro         Brand = "Maestro"
	BrandDiscover        Brand = "Discover"
	BrandUnknown         Brand = "Unknown"
)

// Reason names the check that rejected a card. It is kept for logs and
// summaries only and never written to the batch output.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonLength     Reason = "invalid_length"
	ReasonChecksum   Reason = "invalid_checksum"
	ReasonExpiration Reason = "invalid_expiration"
	ReasonExpired    Reason = "expired"
	ReasonCVV        Reason = "invalid_cvv"
	ReasonBrand      Reason = "unknown_brand"
)

// ValidationResult is the enriched form of a record after validation.
type ValidationResult struct {
	Number     string `json:"card_number"`
	Expiration string `json:"exp_date"`
	CVV        string `json:"cvv"`
	Brand      Brand  `json:"brand"`
	Valid      bool   `json:"valid"`
	Reason     Reason `json:"-"`
}

// Run is the stored summary of one batch validation.
type Run struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Total      int            `json:"total"`
	Accepted   int            `json:"accepted"`
	Rejections map[Reason]int `json:"rejections,omitempty"`
	Cards      []RunCard      `json:"cards,omitempty"`
}

// RunCard is what is kept about an accepted card. The raw PAN is never stored.
type RunCard struct {
	MaskedPAN string `json:"masked_pan"`
	Last4     string `json:"last4"`
	PANHash   string `json:"pan_hash"`
	Brand     Brand  `json:"brand"`
}
