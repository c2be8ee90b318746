package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alovak/cardflow-validator/internal/cardfile"
	"github.com/alovak/cardflow-validator/internal/cardgen"
	"github.com/alovak/cardflow-validator/internal/expiry"
	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/spf13/cobra"
)

var (
	genBINs   []string
	genCount  int
	genLength int
	genYears  int
	genCVV    string
	genOut    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a sample credit_cards input file with Luhn-valid numbers",
	Long: `Generate test card records. Each BIN gets --count records whose numbers carry a
correct Luhn check digit and whose expiration is --years from now (MM/YY).
Use a negative --years to produce expired cards.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceVar(&genBINs, "bin", []string{"4", "51", "34", "67", "65"}, "Issuer prefixes (1-8 digits)")
	generateCmd.Flags().IntVar(&genCount, "count", 2, "Records per BIN")
	generateCmd.Flags().IntVar(&genLength, "length", 16, "PAN length; 34/37 prefixes always use 15")
	generateCmd.Flags().IntVar(&genYears, "years", 3, "Validity years from today")
	generateCmd.Flags().StringVar(&genCVV, "cvv", "123", "CVV written on every record")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "-", "Output file, - for stdout")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genCount <= 0 {
		return fmt.Errorf("--count must be positive")
	}
	records, err := generateRecords(genBINs, genCount, genLength, expiry.CardFace(time.Now(), genYears), genCVV)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if genOut != "-" {
		f, err := os.Create(genOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", genOut, err)
		}
		defer f.Close()
		w = f
	}
	return cardfile.EncodeInput(w, records)
}

func generateRecords(bins []string, count, length int, face, cvv string) ([]models.RawCardRecord, error) {
	records := make([]models.RawCardRecord, 0, len(bins)*count)
	for _, bin := range bins {
		bin = strings.TrimSpace(bin)
		n := length
		if strings.HasPrefix(bin, "34") || strings.HasPrefix(bin, "37") {
			n = 15
		}
		for i := 0; i < count; i++ {
			pan, err := cardgen.GeneratePAN(bin, n, "")
			if err != nil {
				return nil, fmt.Errorf("bin %s: %w", bin, err)
			}
			records = append(records, models.RawCardRecord{Number: pan, Expiration: face, CVV: cvv})
		}
	}
	return records, nil
}
