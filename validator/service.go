package validator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alovak/cardflow-validator/internal/cardgen"
	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type Service struct {
	repo   *Repository
	cfg    *Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo *Repository, cfg *Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Today is the current date in the configured expiry zone.
func (s *Service) Today() time.Time {
	loc, err := s.cfg.Location()
	if err != nil {
		loc = time.Local
	}
	return s.now().In(loc)
}

// ValidateCard checks a single record against today's date.
func (s *Service) ValidateCard(ctx context.Context, rec models.RawCardRecord) models.ValidationResult {
	res := ValidateRecord(rec, s.Today())
	s.logResult(ctx, res)
	return res
}

// BatchResult holds the accepted records of a batch in input order.
type BatchResult struct {
	Run      *models.Run
	Accepted []models.ValidationResult
}

// ValidateBatch validates every record as of today, keeps only the accepted
// ones and records the run. Rejected records are dropped without error.
func (s *Service) ValidateBatch(ctx context.Context, records []models.RawCardRecord, today time.Time) (*BatchResult, error) {
	results := s.validateAll(records, today)

	run := &models.Run{
		ID:         uuid.New().String(),
		CreatedAt:  s.now().UTC(),
		Total:      len(records),
		Rejections: make(map[models.Reason]int),
	}
	accepted := make([]models.ValidationResult, 0, len(results))
	hashKey := []byte(s.cfg.PANHashKey)
	for _, res := range results {
		s.logResult(ctx, res)
		if !res.Valid {
			run.Rejections[res.Reason]++
			continue
		}
		accepted = append(accepted, res)
		pan := cardgen.DigitString(res.Number)
		run.Cards = append(run.Cards, models.RunCard{
			MaskedPAN: cardgen.MaskPAN(pan),
			Last4:     cardgen.LastN(pan, 4),
			PANHash:   cardgen.HashPANHex(pan, hashKey),
			Brand:     res.Brand,
		})
	}
	run.Accepted = len(accepted)

	if s.repo != nil {
		if err := s.repo.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
	}

	s.logger.Info("batch validated",
		slog.String("run_id", run.ID),
		slog.Int("total", run.Total),
		slog.Int("accepted", run.Accepted),
	)

	return &BatchResult{Run: run, Accepted: accepted}, nil
}

// validateAll fans the records out to at most cfg.Workers goroutines.
// Each result is stored at its record's index so order is kept.
func (s *Service) validateAll(records []models.RawCardRecord, today time.Time) []models.ValidationResult {
	results := make([]models.ValidationResult, len(records))
	workers := s.cfg.Workers
	if workers <= 1 || len(records) < 2 {
		for i, rec := range records {
			results[i] = ValidateRecord(rec, today)
		}
		return results
	}
	if workers > len(records) {
		workers = len(records)
	}

	idx := make(chan int)
	wg := &sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i] = ValidateRecord(records[i], today)
			}
		}()
	}
	for i := range records {
		idx <- i
	}
	close(idx)
	wg.Wait()

	return results
}

func (s *Service) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("finding run: %w", err)
	}
	return run, nil
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	runs, err := s.repo.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (s *Service) logResult(ctx context.Context, res models.ValidationResult) {
	if res.Valid {
		return
	}
	s.logger.Log(ctx, slog.LevelDebug, "card rejected",
		slog.String("pan", cardgen.MaskPAN(res.Number)),
		slog.String("reason", string(res.Reason)),
	)
}
