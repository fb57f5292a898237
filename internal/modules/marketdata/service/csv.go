package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"pivot_backtest/internal/helper"
	"pivot_backtest/internal/models"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006.01.02",
}

// CSVProvider читает <dir>/<PAIR>_<TF>.csv, заголовок time,open,high,low,close[,volume].
type CSVProvider struct {
	dir string
}

func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) Name() string { return "csv" }

func (p *CSVProvider) Path(pair string, tf models.Timeframe) string {
	return filepath.Join(p.dir, helper.NormPair(pair)+"_"+string(tf)+".csv")
}

func (p *CSVProvider) Load(ctx context.Context, pair string, tf models.Timeframe) (*models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := p.Path(pair, tf)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(models.ErrDataUnavailable, "%s %s: %s not found", pair, tf, path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		_ = f.Close()
	}()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: read %s", pair, tf, path)
	}
	return models.NewSeries(helper.NormPair(pair), tf, bars)
}

// ReadBars парсит CSV с заголовком. Порядок колонок любой, регистр неважен.
// Понимает выгрузки MetaTrader: UTF-16 с BOM, таб/точка с запятой, <DATE> и <TIME> раздельно.
func ReadBars(r io.Reader) ([]models.Bar, error) {
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(br)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, models.ErrDataUnavailable
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.Trim(strings.ToLower(strings.TrimSpace(h)), "<>")] = i
	}

	// date + time раздельно (MT) либо одна колонка времени
	dateIdx, splitDate := col["date"]
	timeIdx, hasTime := col["time"]
	if !hasTime {
		splitDate = false
		for _, alias := range []string{"timestamp", "datetime", "date"} {
			if i, ok := col[alias]; ok {
				timeIdx, hasTime = i, true
				break
			}
		}
	}
	if !hasTime {
		return nil, errors.Wrapf(models.ErrMalformedSeries, "missing column %q", "time")
	}
	for _, name := range []string{"open", "high", "low", "close"} {
		if _, ok := col[name]; !ok {
			return nil, errors.Wrapf(models.ErrMalformedSeries, "missing column %q", name)
		}
	}
	volIdx, hasVol := -1, false
	for _, alias := range []string{"volume", "vol", "tickvol"} {
		if i, ok := col[alias]; ok {
			volIdx, hasVol = i, true
			break
		}
	}

	var bars []models.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		raw := field(rec, timeIdx)
		if splitDate {
			raw = field(rec, dateIdx) + " " + raw
		}

		var b models.Bar
		if b.Time, err = ParseTime(raw); err != nil {
			return nil, errors.Wrapf(models.ErrMalformedSeries, "line %d: %v", line, err)
		}
		for _, f := range []struct {
			dst  *float64
			name string
		}{
			{&b.Open, "open"}, {&b.High, "high"}, {&b.Low, "low"}, {&b.Close, "close"},
		} {
			if *f.dst, err = strconv.ParseFloat(field(rec, col[f.name]), 64); err != nil {
				return nil, errors.Wrapf(models.ErrMalformedSeries, "line %d: bad %s: %v", line, f.name, err)
			}
		}
		if hasVol {
			if v := field(rec, volIdx); v != "" {
				if b.Volume, err = strconv.ParseFloat(v, 64); err != nil {
					return nil, errors.Wrapf(models.ErrMalformedSeries, "line %d: bad volume: %v", line, err)
				}
			}
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, models.ErrDataUnavailable
	}
	return bars, nil
}

// sniffDelimiter: самый частый из ',', ';', '\t' в первой строке.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(512)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', bytes.Count(head, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(head, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// ParseTime: RFC3339, "2006-01-02 15:04:05" и похожие (UTC), либо unix-секунды.
func ParseTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unsupported time format %q", s)
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
