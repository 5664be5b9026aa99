package sheets

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kanji-quiz-bot/internal/domain/entities"
)

// ErrInvalidSheetURL is returned for URLs that do not point at a Google
// spreadsheet.
var ErrInvalidSheetURL = errors.New("not a valid Google Sheets URL")

// readRange covers the Kanji | Reading | Meaning columns.
const readRange = "A:C"

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID extracts the spreadsheet ID from a full sheet URL.
func SpreadsheetID(url string) (string, error) {
	m := spreadsheetIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", ErrInvalidSheetURL
	}
	return m[1], nil
}

type cachedSheet struct {
	items     []entities.QuizItem
	fetchedAt time.Time
}

// Source supplies quiz items from users' linked Google Sheets. Rows are
// cached per spreadsheet with a TTL so the tick loop does not hammer the
// Sheets API; draws are uniform random avoiding the immediately previous
// row per user.
type Source struct {
	svc      *sheets.Service
	logger   *zap.Logger
	cacheTTL time.Duration

	mu       sync.Mutex
	cache    map[string]cachedSheet
	lastDraw map[int64]int
}

// New creates a Source authenticated with a service account credentials
// file.
func New(ctx context.Context, credentialsFile string, cacheTTL time.Duration, logger *zap.Logger) (*Source, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Source{
		svc:      svc,
		logger:   logger,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cachedSheet),
		lastDraw: make(map[int64]int),
	}, nil
}

// Validate checks that the URL points at a readable, non-empty sheet.
// Used by the /setup flow before the link is persisted.
func (s *Source) Validate(ctx context.Context, url string) error {
	id, err := SpreadsheetID(url)
	if err != nil {
		return err
	}

	items, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("sheet has no quiz rows")
	}

	return nil
}

// NextItem draws a quiz item for the user's linked sheet. ok=false means
// no content is available this cycle (unlinked or empty sheet).
func (s *Source) NextItem(ctx context.Context, cfg *entities.UserConfig) (entities.QuizItem, bool, error) {
	if cfg.SheetURL == "" {
		return entities.QuizItem{}, false, nil
	}

	id, err := SpreadsheetID(cfg.SheetURL)
	if err != nil {
		return entities.QuizItem{}, false, err
	}

	items, err := s.load(ctx, id)
	if err != nil {
		return entities.QuizItem{}, false, err
	}
	if len(items) == 0 {
		return entities.QuizItem{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := rand.Intn(len(items))
	if last, ok := s.lastDraw[cfg.UserID]; ok && len(items) > 1 && idx == last {
		idx = (idx + 1 + rand.Intn(len(items)-1)) % len(items)
	}
	s.lastDraw[cfg.UserID] = idx

	return items[idx], true, nil
}

// ForgetUser drops the user's draw history when their data is deleted.
func (s *Source) ForgetUser(userID int64) {
	s.mu.Lock()
	delete(s.lastDraw, userID)
	s.mu.Unlock()
}

// load returns the parsed rows for a spreadsheet, fetching through the
// cache.
func (s *Source) load(ctx context.Context, spreadsheetID string) ([]entities.QuizItem, error) {
	s.mu.Lock()
	cached, ok := s.cache[spreadsheetID]
	s.mu.Unlock()

	if ok && time.Since(cached.fetchedAt) < s.cacheTTL {
		return cached.items, nil
	}

	items, err := s.fetch(ctx, spreadsheetID)
	if err != nil {
		// Serve stale rows over nothing while the API is unreachable.
		if ok {
			s.logger.Warn("serving stale sheet rows", zap.String("spreadsheet_id", spreadsheetID), zap.Error(err))
			return cached.items, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[spreadsheetID] = cachedSheet{items: items, fetchedAt: time.Now()}
	s.mu.Unlock()

	return items, nil
}

func (s *Source) fetch(ctx context.Context, spreadsheetID string) ([]entities.QuizItem, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch sheet values: %w", err)
	}

	return parseRows(resp.Values), nil
}

// parseRows converts raw sheet rows to quiz items. The first row is
// skipped when it looks like a header; rows without a kanji or without at
// least one reading and one meaning are dropped.
func parseRows(rows [][]any) []entities.QuizItem {
	items := make([]entities.QuizItem, 0, len(rows))

	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}

		item := entities.QuizItem{
			Kanji:    cellString(row, 0),
			Readings: splitAccepted(cellString(row, 1)),
			Meanings: splitAccepted(cellString(row, 2)),
		}
		if item.Kanji == "" || len(item.Readings) == 0 || len(item.Meanings) == 0 {
			continue
		}

		items = append(items, item)
	}

	return items
}

func isHeaderRow(row []any) bool {
	return strings.EqualFold(cellString(row, 0), "kanji")
}

func cellString(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return strings.TrimSpace(s)
}

// splitAccepted splits a cell of comma-separated accepted answers.
// Japanese enumeration commas are treated the same as ASCII ones.
func splitAccepted(cell string) []string {
	cell = strings.NewReplacer("、", ",", "，", ",").Replace(cell)

	var out []string
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
