package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hbgo/capture/internal/dates"
	"github.com/hbgo/capture/internal/homebank"
	"github.com/hbgo/capture/internal/matching"
	"github.com/hbgo/capture/internal/scanning"
)

// Extractor runs one extraction request. Satisfied by scanning.Orchestrator.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string, opts scanning.Options) (*scanning.Result, error)
}

// IDGenerator generates unique IDs for transactions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles the capture flow: extract, reconcile against known lists,
// apply defaults, persist.
type Service struct {
	db          DB
	extractor   Extractor
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with the default ID generator and clock.
func NewService(db DB, extractor Extractor) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(db DB, extractor Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// CaptureReceipt extracts fields from a receipt image or PDF, reconciles the
// merchant and category guesses against the imported entity lists, formats the
// memo, and stores the resulting transaction.
//
// The raw document is never persisted; it exists only for this call.
func (s *Service) CaptureReceipt(ctx context.Context, data []byte, contentType string, notes string, progress scanning.ProgressFunc) (*Transaction, error) {
	settings, err := s.db.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	result, err := s.extractor.Extract(ctx, data, contentType, scanning.Options{
		Mode:         settings.EngineMode,
		AutoFallback: settings.AutoFallback,
		DateFormat:   settings.DateFormat,
		LocalModel:   settings.LocalModel,
		Progress:     progress,
	})
	if err != nil {
		slog.Error("Extraction failed", "content_type", contentType, "size", len(data), "error", err)
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}

	cache, err := s.db.GetCache()
	if err != nil {
		return nil, fmt.Errorf("loading entity cache: %w", err)
	}

	// A failed match keeps the raw guess; the matcher never substitutes an
	// unrelated entry.
	payee := result.Merchant
	if match := matching.FindBestMatch(payee, cache.Payees); match != "" {
		payee = match
	}

	category := result.CategoryGuess
	if match := matching.FindBestMatch(category, cache.Categories); match != "" {
		category = match
	}
	if category == "" {
		category = settings.DefaultCategory
	}

	tags := make([]string, 0, len(result.TagsGuess)+1)
	for _, guess := range result.TagsGuess {
		if match := matching.FindBestMatch(guess, cache.Tags); match != "" {
			guess = match
		}
		tags = append(tags, guess)
	}
	if settings.DefaultTag != "" && !slices.Contains(tags, settings.DefaultTag) {
		tags = append(tags, settings.DefaultTag)
	}

	now := s.timeSource.Now()
	date := result.Date
	if date == "" {
		date = dates.Today(now)
	}
	timeOfDay := result.Time
	if timeOfDay == "" {
		timeOfDay = dates.CurrentTime(now)
	}

	txn := &Transaction{
		ID:     s.idGenerator.Generate(),
		Date:   date,
		Time:   timeOfDay,
		Amount: toCents(result.Amount),
		Type:   "expense",
		Payee:  payee,
		Memo: FormatMemo(MemoParts{
			Time:          result.Time,
			Method:        result.PaymentMethod,
			Summary:       result.ItemsSummary,
			Notes:         notes,
			DefaultMethod: settings.DefaultMethod,
		}),
		Category:  category,
		Tags:      tags,
		Source:    string(result.Source),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.SaveTransaction(txn); err != nil {
		return nil, fmt.Errorf("saving transaction: %w", err)
	}

	return txn, nil
}

// GetTransaction retrieves a transaction by ID.
func (s *Service) GetTransaction(id string) (*Transaction, error) {
	txn, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns all pending transactions.
func (s *Service) ListTransactions() ([]*Transaction, error) {
	txns, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, nil
}

// UpdateTransaction applies caller edits to a stored transaction.
func (s *Service) UpdateTransaction(txn *Transaction) (*Transaction, error) {
	existing, err := s.db.GetTransaction(txn.ID)
	if err != nil {
		return nil, fmt.Errorf("getting transaction for update: %w", err)
	}
	txn.CreatedAt = existing.CreatedAt
	txn.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveTransaction(txn); err != nil {
		return nil, fmt.Errorf("updating transaction: %w", err)
	}
	return txn, nil
}

// DeleteTransaction removes a transaction.
func (s *Service) DeleteTransaction(id string) error {
	if err := s.db.DeleteTransaction(id); err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	return nil
}

// ExportCSV renders all pending transactions in HomeBank CSV form and, when
// clear is set, removes them afterwards.
func (s *Service) ExportCSV(clear bool) (string, error) {
	txns, err := s.db.ListTransactions()
	if err != nil {
		return "", fmt.Errorf("listing transactions for export: %w", err)
	}

	rows := make([]homebank.CSVRow, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, homebank.CSVRow{
			Date:     t.Date,
			Payee:    t.Payee,
			Memo:     t.Memo,
			Amount:   float64(t.Amount) / 100,
			Expense:  t.Type != "income",
			Category: t.Category,
			Tags:     t.Tags,
		})
	}

	csv, err := homebank.GenerateCSV(rows)
	if err != nil {
		return "", fmt.Errorf("generating csv: %w", err)
	}

	if clear {
		if err := s.db.ClearTransactions(); err != nil {
			return "", fmt.Errorf("clearing exported transactions: %w", err)
		}
	}
	return csv, nil
}

// ImportEntities parses a HomeBank XHB file and replaces the known-entity
// cache with its categories, payees and tags.
func (s *Service) ImportEntities(xhb []byte) (*EntityCache, error) {
	parsed, err := homebank.ParseXHB(xhb)
	if err != nil {
		return nil, fmt.Errorf("parsing xhb file: %w", err)
	}

	cache := &EntityCache{
		Payees:     parsed.Payees,
		Categories: parsed.Categories,
		Tags:       parsed.Tags,
	}
	if err := s.db.SaveCache(cache); err != nil {
		return nil, fmt.Errorf("saving entity cache: %w", err)
	}
	return cache, nil
}

// Cache returns the imported entity lists.
func (s *Service) Cache() (*EntityCache, error) {
	return s.db.GetCache()
}

// Settings returns the stored settings.
func (s *Service) Settings() (Settings, error) {
	return s.db.GetSettings()
}

// UpdateSettings stores new settings.
func (s *Service) UpdateSettings(settings Settings) error {
	return s.db.SaveSettings(settings)
}

// toCents converts a two-decimal magnitude string to integer cents.
func toCents(amount string) int {
	if amount == "" {
		return 0
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(math.Abs(v) * 100))
}
