package validator

import (
	"time"

	"github.com/alovak/cardflow-validator/internal/cardgen"
	"github.com/alovak/cardflow-validator/internal/expiry"
	"github.com/alovak/cardflow-validator/validator/models"
)

// Result is the outcome of Validate. Brand is filled even when Valid is false.
type Result struct {
	Valid  bool
	Brand  models.Brand
	Reason models.Reason
}

// Validate decides whether a card is well formed as of today. Checks run in
// order and the first failure decides: digit count, Luhn, expiration format,
// expiration freshness, CVV length, brand.
func Validate(number, expiration, cvv string, today time.Time) Result {
	brand := Classify(number)
	reject := func(reason models.Reason) Result {
		return Result{Brand: brand, Reason: reason}
	}

	digits := cardgen.Digits(number)
	if len(digits) < 15 || len(digits) > 16 {
		return reject(models.ReasonLength)
	}
	if !cardgen.LuhnValid(digits) {
		return reject(models.ReasonChecksum)
	}

	year, month, err := expiry.ParseCardFace(expiration)
	if err != nil {
		return reject(models.ReasonExpiration)
	}
	if expiry.IsExpired(year, month, today) {
		return reject(models.ReasonExpired)
	}

	if len(cvv) != 3 {
		return reject(models.ReasonCVV)
	}
	if brand == models.BrandUnknown {
		return reject(models.ReasonBrand)
	}

	return Result{Valid: true, Brand: brand}
}

// ValidateRecord runs Validate on rec and returns the enriched record.
func ValidateRecord(rec models.RawCardRecord, today time.Time) models.ValidationResult {
	res := Validate(rec.Number, rec.Expiration, rec.CVV, today)
	return models.ValidationResult{
		Number:     rec.Number,
		Expiration: rec.Expiration,
		CVV:        rec.CVV,
		Brand:      res.Brand,
		Valid:      res.Valid,
		Reason:     res.Reason,
	}
}
