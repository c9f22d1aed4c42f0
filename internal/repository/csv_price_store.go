package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/util"
)

// ErrUnknownSymbol is returned when a CSV store has no bars for a symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// CSVPriceStore serves daily bars loaded from CSV files. It backs the offline CLI.
type CSVPriceStore struct {
	mu   sync.RWMutex
	bars map[string]models.PriceSeries
}

func NewCSVPriceStore() *CSVPriceStore {
	return &CSVPriceStore{bars: make(map[string]models.PriceSeries)}
}

// LoadFile parses path and registers its bars under symbol.
func (s *CSVPriceStore) LoadFile(symbol, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	bars, err := ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return s.StoreBars(context.Background(), symbol, bars)
}

func (s *CSVPriceStore) StoreBars(_ context.Context, symbol string, bars models.PriceSeries) error {
	sorted := append(models.PriceSeries(nil), bars...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	s.mu.Lock()
	s.bars[strings.ToUpper(symbol)] = sorted
	s.mu.Unlock()
	return nil
}

func (s *CSVPriceStore) series(symbol string) (models.PriceSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars, ok := s.bars[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return bars, nil
}

func (s *CSVPriceStore) GetDailyBars(_ context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	bars, err := s.series(symbol)
	if err != nil {
		return nil, err
	}
	from, to = util.Day(from), util.Day(to)
	var out models.PriceSeries
	for _, b := range bars {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *CSVPriceStore) GetLatestNBars(_ context.Context, symbol string, n int) (models.PriceSeries, error) {
	bars, err := s.series(symbol)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(bars) {
		return append(models.PriceSeries(nil), bars...), nil
	}
	return append(models.PriceSeries(nil), bars[len(bars)-n:]...), nil
}

// ReadCSV parses a header-led CSV with Date and Close columns; Open, High,
// Low and Volume are optional. Rows with an empty or null close are skipped.
func ReadCSV(r io.Reader) (models.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}
	dateCol, ok := idx["date"]
	if !ok {
		return nil, errors.New("missing date column")
	}
	closeCol, ok := idx["close"]
	if !ok {
		return nil, errors.New("missing close column")
	}

	var out models.PriceSeries
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell := func(name string) string {
			if i, ok := idx[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		if closeCol >= len(rec) || isNull(rec[closeCol]) {
			continue
		}
		date, ok := util.ParseDate(strings.TrimSpace(rec[dateCol]))
		if !ok {
			return nil, fmt.Errorf("line %d: bad date %q", line, rec[dateCol])
		}
		cl, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad close: %w", line, err)
		}
		bar := models.PriceBar{Date: date, Open: cl, High: cl, Low: cl, Close: cl}
		for name, dst := range map[string]*float64{"open": &bar.Open, "high": &bar.High, "low": &bar.Low, "volume": &bar.Volume} {
			v := cell(name)
			if isNull(v) {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad %s: %w", line, name, err)
			}
			*dst = f
		}
		out = append(out, bar)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func isNull(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "nan", "n/a":
		return true
	}
	return false
}

var (
	_ domrepo.PriceStore  = (*CSVPriceStore)(nil)
	_ domrepo.PriceWriter = (*CSVPriceStore)(nil)
)
