package validator

import (
	"testing"

	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		number string
		brand  models.Brand
	}{
		{"4111111111111111", models.BrandVisa},
		{"5500000000000004", models.BrandMastercard},
		{"340000000000009", models.BrandAmericanExpress},
		{"370000000000002", models.BrandAmericanExpress},
		{"6700000000000000", models.BrandMaestro},
		{"6500000000000000", models.BrandDiscover},
		{"6400000000000000", models.BrandDiscover},
		{"1234567890123456", models.BrandUnknown},
		{"3500000000000000", models.BrandUnknown},
		{"6011000000000000", models.BrandUnknown},
		{" 4111111111111111", models.BrandUnknown}, // prefix is taken from the raw string
		{"", models.BrandUnknown},
	}
	for _, c := range cases {
		require.Equal(t, c.brand, Classify(c.number), c.number)
		require.Equal(t, Classify(c.number), Classify(c.number))
	}
}
