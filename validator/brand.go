package validator

import (
	"strings"

	"github.com/alovak/cardflow-validator/validator/models"
)

type brandRule struct {
	prefixes []string
	brand    models.Brand
}

// Two-digit prefixes sharing a first digit with a one-digit rule must come first.
var brandRules = []brandRule{
	{[]string{"34", "37"}, models.BrandAmericanExpress},
	{[]string{"4"}, models.BrandVisa},
	{[]string{"5"}, models.BrandMastercard},
	{[]string{"67"}, models.BrandMaestro},
	{[]string{"65", "64"}, models.BrandDiscover},
}

// Classify maps a raw card number to its brand by prefix. It never fails;
// numbers matching no rule are BrandUnknown.
func Classify(number string) models.Brand {
	for _, rule := range brandRules {
		for _, p := range rule.prefixes {
			if strings.HasPrefix(number, p) {
				return rule.brand
			}
		}
	}
	return models.BrandUnknown
}
