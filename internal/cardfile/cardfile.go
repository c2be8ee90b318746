// Package cardfile reads the credit_cards input container and writes the
// validated_credit_cards output container.
package cardfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alovak/cardflow-validator/validator/models"
)

var (
	ErrMissingKey   = errors.New("missing key")
	ErrMissingField = errors.New("missing field")
	ErrFieldType    = errors.New("field is not a string")
	ErrShape        = errors.New("unexpected shape")
	ErrTrailingData = errors.New("unexpected data after JSON value")
)

const (
	inputKey  = "credit_cards"
	outputKey = "validated_credit_cards"
)

var recordFields = [...]string{"CreditCardNumber", "ExpDate", "CVV"}

// Decode parses an input container. Any structural problem fails the whole
// batch; there is no partial result.
func Decode(r io.Reader) ([]models.RawCardRecord, error) {
	var root map[string]json.RawMessage
	if err := decodeOne(r, &root); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	raw, ok := root[inputKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, inputKey)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, fmt.Errorf("%w: %s must be an array", ErrShape, inputKey)
	}

	records := make([]models.RawCardRecord, 0, len(entries))
	for i, entry := range entries {
		rec, err := decodeRecord(entry)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", inputKey, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeRecord reads a single record object with the same field rules as Decode.
func DecodeRecord(r io.Reader) (models.RawCardRecord, error) {
	var entry json.RawMessage
	if err := decodeOne(r, &entry); err != nil {
		return models.RawCardRecord{}, fmt.Errorf("decoding record: %w", err)
	}
	return decodeRecord(entry)
}

// decodeOne reads exactly one JSON value; anything but whitespace after it is
// an error.
func decodeOne(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}

func decodeRecord(entry json.RawMessage) (models.RawCardRecord, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(entry, &obj); err != nil || obj == nil {
		return models.RawCardRecord{}, fmt.Errorf("%w: record must be an object", ErrShape)
	}
	var values [len(recordFields)]string
	for i, name := range recordFields {
		raw, ok := obj[name]
		if !ok {
			return models.RawCardRecord{}, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
		if err := json.Unmarshal(raw, &values[i]); err != nil || string(raw) == "null" {
			return models.RawCardRecord{}, fmt.Errorf("%w: %s", ErrFieldType, name)
		}
	}
	return models.RawCardRecord{Number: values[0], Expiration: values[1], CVV: values[2]}, nil
}

// Encode writes the accepted records as a pretty printed output container.
func Encode(w io.Writer, accepted []models.ValidationResult) error {
	if accepted == nil {
		accepted = []models.ValidationResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string][]models.ValidationResult{outputKey: accepted}); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// EncodeInput writes records as an input container, the shape Decode reads.
func EncodeInput(w io.Writer, records []models.RawCardRecord) error {
	if records == nil {
		records = []models.RawCardRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string][]models.RawCardRecord{inputKey: records}); err != nil {
		return fmt.Errorf("encoding input: %w", err)
	}
	return nil
}

func ReadFile(path string) ([]models.RawCardRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile writes to a temporary sibling first so a failed run never leaves
// a truncated output behind.
func WriteFile(path string, accepted []models.ValidationResult) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := Encode(f, accepted); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming output: %w", err)
	}
	return nil
}
