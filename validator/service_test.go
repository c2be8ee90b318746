package validator

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/alovak/cardflow-validator/internal/cardgen"
	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newTestService(t *testing.T, workers int) (*Service, *Repository) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = workers
	cfg.ExpiryTZ = "UTC"
	repo := NewRepository()
	svc := NewService(repo, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return jan2024 }
	return svc, repo
}

func sampleBatch() []models.RawCardRecord {
	return []models.RawCardRecord{
		{Number: "4539578763621486", Expiration: "12/30", CVV: "123"},
		{Number: "4111111111111112", Expiration: "12/30", CVV: "123"},
		{Number: "340000000000009", Expiration: "01/24", CVV: "999"},
		{Number: "4111111111111111", Expiration: "12/23", CVV: "123"},
		{Number: "5500000000000004", Expiration: "11/27", CVV: "12"},
		{Number: "1234567890123452", Expiration: "12/30", CVV: "123"},
		{Number: "6700000000000000", Expiration: "02/26", CVV: "321"},
		{Number: "4111111111111111", Expiration: "1230", CVV: "123"},
	}
}

func TestService_ValidateBatch(t *testing.T) {
	svc, repo := newTestService(t, 1)
	ctx := context.Background()

	batch, err := svc.ValidateBatch(ctx, sampleBatch(), jan2024)
	require.NoError(t, err)

	require.Equal(t, []models.ValidationResult{
		{Number: "4539578763621486", Expiration: "12/30", CVV: "123", Brand: models.BrandVisa, Valid: true},
		{Number: "340000000000009", Expiration: "01/24", CVV: "999", Brand: models.BrandAmericanExpress, Valid: true},
		{Number: "6700000000000000", Expiration: "02/26", CVV: "321", Brand: models.BrandMaestro, Valid: true},
	}, batch.Accepted)

	run := batch.Run
	require.NotEmpty(t, run.ID)
	require.Equal(t, 8, run.Total)
	require.Equal(t, 3, run.Accepted)
	require.Equal(t, map[models.Reason]int{
		models.ReasonChecksum:   1,
		models.ReasonExpired:    1,
		models.ReasonCVV:        1,
		models.ReasonBrand:      1,
		models.ReasonExpiration: 1,
	}, run.Rejections)
	require.Len(t, run.Cards, 3)
	require.Equal(t, "453957******1486", run.Cards[0].MaskedPAN)
	require.Equal(t, "1486", run.Cards[0].Last4)
	require.Equal(t, cardgen.HashPANHex("4539578763621486", []byte(DefaultConfig().PANHashKey)), run.Cards[0].PANHash)

	stored, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, run.Accepted, stored.Accepted)
	require.Equal(t, run.Cards, stored.Cards)
}

func TestService_ValidateBatch_RunCardsUseDigits(t *testing.T) {
	svc, _ := newTestService(t, 1)

	batch, err := svc.ValidateBatch(context.Background(), []models.RawCardRecord{
		{Number: "4111.1111.1111.1111", Expiration: "12/30", CVV: "123"},
		{Number: "4111111111111111", Expiration: "12/30", CVV: "123"},
		{Number: "4111111111111111x", Expiration: "12/30", CVV: "123"},
	}, jan2024)
	require.NoError(t, err)
	require.Equal(t, 3, batch.Run.Accepted)

	cards := batch.Run.Cards
	require.Len(t, cards, 3)
	for _, c := range cards {
		require.Equal(t, cards[0].PANHash, c.PANHash)
		require.Equal(t, "1111", c.Last4)
		require.Equal(t, "411111******1111", c.MaskedPAN)
	}
}

func TestService_ValidateBatch_Empty(t *testing.T) {
	svc, _ := newTestService(t, 4)
	batch, err := svc.ValidateBatch(context.Background(), nil, jan2024)
	require.NoError(t, err)
	require.Empty(t, batch.Accepted)
	require.Zero(t, batch.Run.Total)
}

func TestService_ValidateBatch_ParallelKeepsOrder(t *testing.T) {
	var records []models.RawCardRecord
	for i := 0; i < 500; i++ {
		pan, err := cardgen.GeneratePAN("4", 16, fmt.Sprintf("%06d", i))
		require.NoError(t, err)
		exp := "12/30"
		if i%3 == 0 {
			exp = "12/20"
		}
		records = append(records, models.RawCardRecord{Number: pan, Expiration: exp, CVV: "123"})
	}

	seq, _ := newTestService(t, 1)
	par, _ := newTestService(t, 8)

	want, err := seq.ValidateBatch(context.Background(), records, jan2024)
	require.NoError(t, err)
	got, err := par.ValidateBatch(context.Background(), records, jan2024)
	require.NoError(t, err)

	require.Equal(t, want.Accepted, got.Accepted)
	require.Len(t, got.Accepted, 333)
}

func TestService_ValidateCard_UsesConfiguredZone(t *testing.T) {
	svc, _ := newTestService(t, 1)
	// 2024-01-31 23:30 UTC is already February in Tokyo.
	svc.now = func() time.Time { return time.Date(2024, time.January, 31, 23, 30, 0, 0, time.UTC) }
	rec := models.RawCardRecord{Number: "4111111111111111", Expiration: "01/24", CVV: "123"}

	require.True(t, svc.ValidateCard(context.Background(), rec).Valid)

	svc.cfg.ExpiryTZ = "Asia/Tokyo"
	res := svc.ValidateCard(context.Background(), rec)
	require.False(t, res.Valid)
	require.Equal(t, models.ReasonExpired, res.Reason)
}

func TestService_GetRun_NotFound(t *testing.T) {
	svc, _ := newTestService(t, 1)
	_, err := svc.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
