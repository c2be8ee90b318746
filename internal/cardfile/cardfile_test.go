package cardfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	in := `{"credit_cards":[
		{"CreditCardNumber":"4111111111111111","ExpDate":"12/30","CVV":"123"},
		{"CreditCardNumber":"5500 0000 0000 0004","ExpDate":"01/25","CVV":"12","Extra":1}
	]}`
	records, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []models.RawCardRecord{
		{Number: "4111111111111111", Expiration: "12/30", CVV: "123"},
		{Number: "5500 0000 0000 0004", Expiration: "01/25", CVV: "12"},
	}, records)
}

func TestDecode_StructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		err  error
	}{
		{"missing key", `{"cards":[]}`, ErrMissingKey},
		{"not an array", `{"credit_cards":{}}`, ErrShape},
		{"null array", `{"credit_cards":null}`, ErrShape},
		{"record not object", `{"credit_cards":["x"]}`, ErrShape},
		{"missing field", `{"credit_cards":[{"CreditCardNumber":"4","ExpDate":"12/30"}]}`, ErrMissingField},
		{"number field", `{"credit_cards":[{"CreditCardNumber":4,"ExpDate":"12/30","CVV":"123"}]}`, ErrFieldType},
		{"null field", `{"credit_cards":[{"CreditCardNumber":"4","ExpDate":null,"CVV":"123"}]}`, ErrFieldType},
		{"trailing data", `{"credit_cards":[]} garbage{`, ErrTrailingData},
		{"second value", `{"credit_cards":[]} {}`, ErrTrailingData},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(c.in))
			require.ErrorIs(t, err, c.err)
		})
	}

	_, err := Decode(strings.NewReader(`{not json`))
	require.Error(t, err)
}

func TestDecode_ErrorNamesRecord(t *testing.T) {
	in := `{"credit_cards":[
		{"CreditCardNumber":"4111111111111111","ExpDate":"12/30","CVV":"123"},
		{"CreditCardNumber":"4111111111111111","CVV":"123"}
	]}`
	_, err := Decode(strings.NewReader(in))
	require.ErrorContains(t, err, "credit_cards[1]")
	require.ErrorContains(t, err, "ExpDate")
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, []models.ValidationResult{{
		Number:     "4111111111111111",
		Expiration: "12/30",
		CVV:        "123",
		Brand:      models.BrandVisa,
		Valid:      true,
		Reason:     models.ReasonNone,
	}})
	require.NoError(t, err)

	var out map[string][]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, []map[string]any{{
		"card_number": "4111111111111111",
		"exp_date":    "12/30",
		"cvv":         "123",
		"brand":       "Visa",
		"valid":       true,
	}}, out["validated_credit_cards"])
	require.Contains(t, buf.String(), "\n  \"validated_credit_cards\"")
}

func TestEncode_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))
	require.JSONEq(t, `{"validated_credit_cards":[]}`, buf.String())
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"credit_cards":[{"CreditCardNumber":"1","ExpDate":"2","CVV":"3"}]}`), 0o600))

	records, err := ReadFile(in)
	require.NoError(t, err)
	require.Len(t, records, 1)

	out := filepath.Join(dir, "out.json")
	require.NoError(t, WriteFile(out, nil))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"validated_credit_cards":[]}`, string(data))
	require.NoFileExists(t, out+".tmp")

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord(strings.NewReader(`{"CreditCardNumber":"4111111111111111","ExpDate":"12/30","CVV":"123"}`))
	require.NoError(t, err)
	require.Equal(t, models.RawCardRecord{Number: "4111111111111111", Expiration: "12/30", CVV: "123"}, rec)

	_, err = DecodeRecord(strings.NewReader(`{"CreditCardNumber":"4111111111111111"}`))
	require.ErrorIs(t, err, ErrMissingField)

	_, err = DecodeRecord(strings.NewReader(`{"CreditCardNumber":"4111111111111111","ExpDate":"12/30","CVV":"123"} x`))
	require.ErrorIs(t, err, ErrTrailingData)

	_, err = DecodeRecord(strings.NewReader("{\"CreditCardNumber\":\"4111111111111111\",\"ExpDate\":\"12/30\",\"CVV\":\"123\"}\n"))
	require.NoError(t, err)
}

func TestEncodeInput_RoundTrip(t *testing.T) {
	records := []models.RawCardRecord{
		{Number: "4111111111111111", Expiration: "12/30", CVV: "123"},
		{Number: "340000000000009", Expiration: "01/27", CVV: "999"},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeInput(&buf, records))
	require.Contains(t, buf.String(), `"CreditCardNumber": "4111111111111111"`)

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, records, got)
}
