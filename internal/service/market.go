package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cropplanner/internal/config"
	"cropplanner/internal/model"
	"cropplanner/internal/utils"

	"go.uber.org/zap"
)

// Market errors
var (
	ErrMarketDataUnavailable = errors.New("market price data is not available")
	ErrMissingColumn         = errors.New("market price data is missing a required column")
	ErrNoMarketData          = errors.New("No data found for the selected crops")
)

const marketTitle = "Market Price Trends for Top Crops"

// dateLayouts are tried in order; government exports use day-first dates
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// MarketService serves commodity price trends from a CSV export
type MarketService struct {
	csvPath      string
	defaultCrops []string
	logger       *zap.Logger
}

// NewMarketService creates a new market service
func NewMarketService(cfg config.MarketConfig, logger *zap.Logger) *MarketService {
	defaults := normalizeCrops(cfg.DefaultCrops)
	if len(defaults) == 0 {
		defaults = []string{"Wheat", "Maize", "Banana"}
	}
	return &MarketService{
		csvPath:      cfg.CSVPath,
		defaultCrops: defaults,
		logger:       logger,
	}
}

// normalizeCrops canonicalizes names and drops blanks and duplicates
func normalizeCrops(crops []string) []string {
	out := make([]string, 0, len(crops))
	for _, c := range crops {
		if c = utils.NormalizeCropName(c); c != "" && !contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Trends returns a date-sorted price series and the latest price for each
// requested crop found in the data. Crops are matched through name
// normalization, so "corn" finds rows labelled "Maize".
func (s *MarketService) Trends(crops []string) (*model.MarketTrends, error) {
	wanted := normalizeCrops(crops)
	if len(wanted) == 0 {
		wanted = s.defaultCrops
	}

	f, err := os.Open(s.csvPath)
	if err != nil {
		s.logger.Warn("market csv unavailable", zap.String("path", s.csvPath), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMarketDataUnavailable, err)
	}
	defer f.Close()

	return parseTrends(f, wanted)
}

func parseTrends(r io.Reader, wanted []string) (*model.MarketTrends, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrMarketDataUnavailable, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	dateIdx := findColumn(header, "date")
	if dateIdx < 0 {
		return nil, fmt.Errorf("%w: no date column", ErrMissingColumn)
	}
	cropIdx := findColumn(header, "commodity", "crop")
	if cropIdx < 0 {
		return nil, fmt.Errorf("%w: no crop/commodity column", ErrMissingColumn)
	}
	priceIdx := findColumn(header, "modal", "price", "rate")
	if priceIdx < 0 {
		return nil, fmt.Errorf("%w: no price column", ErrMissingColumn)
	}

	points := make(map[string][]model.PricePoint)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read market data: %w", err)
		}
		if len(record) <= dateIdx || len(record) <= cropIdx || len(record) <= priceIdx {
			continue
		}

		crop := utils.NormalizeCropName(record[cropIdx])
		if crop == "" || !contains(wanted, crop) {
			continue
		}
		date, ok := parseDate(record[dateIdx])
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(record[priceIdx]), ",", ""), 64)
		if err != nil {
			continue
		}

		points[crop] = append(points[crop], model.PricePoint{Date: date, Price: price})
	}

	trends := &model.MarketTrends{
		Title:       marketTitle,
		DateColumn:  header[dateIdx],
		CropColumn:  header[cropIdx],
		PriceColumn: header[priceIdx],
	}
	for _, crop := range wanted {
		pts := points[crop]
		if len(pts) == 0 {
			continue
		}
		sort.SliceStable(pts, func(i, j int) bool {
			return pts[i].Date.Before(pts[j].Date)
		})
		last := pts[len(pts)-1]

		trends.Series = append(trends.Series, model.PriceSeries{Crop: crop, Points: pts})
		trends.LatestPrices = append(trends.LatestPrices, model.LatestPrice{Crop: crop, Price: last.Price, Date: last.Date})
	}

	if len(trends.Series) == 0 {
		return nil, ErrNoMarketData
	}
	return trends, nil
}

// findColumn returns the first header containing any of the keys, ignoring case
func findColumn(header []string, keys ...string) int {
	for i, col := range header {
		lower := strings.ToLower(col)
		for _, k := range keys {
			if strings.Contains(lower, k) {
				return i
			}
		}
	}
	return -1
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
