package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/roadtrace/pkg/util"
)

var ErrMissingColumn = errors.New("missing required column")

// RawSample one input row as read from the device file.
type RawSample struct {
	Timestamp int64              `json:"timestamp" validate:"gt=0"`
	Lat       float64            `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64            `json:"lon" validate:"gte=-180,lte=180"`
	Speed     float64            `json:"speed" validate:"gte=0"`
	Heading   float64            `json:"heading" validate:"gte=0,lte=360"`
	Sensors   map[string]float64 `json:"sensors,omitempty"`
	Row       int                `json:"-"`
}

// RowError a rejected input row.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// RawTrace the rows of one trace file plus its session metadata.
type RawTrace struct {
	Metadata map[string]string
	Samples  []RawSample
	Rejected []RowError
}

var columnAliases = map[string][]string{
	"timestamp": {"timestamp", "time", "ts"},
	"lat":       {"lat", "latitude", "gps_lat"},
	"lon":       {"lon", "lng", "longitude", "gps_lon", "gps_lng"},
	"speed":     {"speed", "gps_speed"},
	"heading":   {"heading", "bearing", "gps_heading"},
}

type columnLayout struct {
	timestamp, lat, lon, speed, heading int
	sensors                             map[int]string
}

func resolveColumns(header []string) (columnLayout, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	find := func(field string) (int, error) {
		for _, alias := range columnAliases[field] {
			if i, ok := index[alias]; ok {
				return i, nil
			}
		}
		return -1, util.WrapErrorf(ErrMissingColumn, util.ErrBadParamInput, "column %q not found in header", field)
	}

	var (
		layout columnLayout
		err    error
	)
	if layout.timestamp, err = find("timestamp"); err != nil {
		return layout, err
	}
	if layout.lat, err = find("lat"); err != nil {
		return layout, err
	}
	if layout.lon, err = find("lon"); err != nil {
		return layout, err
	}
	if layout.speed, err = find("speed"); err != nil {
		return layout, err
	}
	if layout.heading, err = find("heading"); err != nil {
		return layout, err
	}

	used := map[int]struct{}{layout.timestamp: {}, layout.lat: {}, layout.lon: {}, layout.speed: {}, layout.heading: {}}
	layout.sensors = make(map[int]string)
	for i, h := range header {
		if _, ok := used[i]; ok {
			continue
		}
		layout.sensors[i] = strings.TrimSpace(h)
	}
	return layout, nil
}

// ReadCSV parses a device trace. Leading "# key: value" lines are session metadata; the first
// other line is the header. Malformed rows are collected in Rejected and skipped.
func ReadCSV(r io.Reader) (*RawTrace, error) {
	cr := csv.NewReader(r)
	cr.Comment = 0
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	tr := &RawTrace{Metadata: make(map[string]string)}
	validate := validator.New()

	var (
		layout    columnLayout
		hasHeader bool
		row       int
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && hasHeader {
				tr.Rejected = append(tr.Rejected, RowError{Row: row, Err: err})
				continue
			}
			return nil, util.WrapErrorf(err, util.ErrBadParamInput, "read trace csv")
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}

		if !hasHeader {
			if strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
				parseMetadata(strings.Join(record, ","), tr.Metadata)
				continue
			}
			layout, err = resolveColumns(record)
			if err != nil {
				return nil, err
			}
			hasHeader = true
			continue
		}

		sample, err := parseRow(record, layout)
		if err == nil {
			err = validate.Struct(sample)
		}
		if err != nil {
			tr.Rejected = append(tr.Rejected, RowError{Row: row, Err: err})
			continue
		}
		sample.Row = row
		tr.Samples = append(tr.Samples, sample)
	}

	if !hasHeader {
		return nil, util.WrapErrorf(ErrMissingColumn, util.ErrBadParamInput, "trace has no header")
	}
	return tr, nil
}

func ReadCSVFile(path string) (*RawTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseMetadata(line string, meta map[string]string) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	meta[strings.TrimSpace(key)] = strings.TrimSpace(value)
}

func parseRow(record []string, layout columnLayout) (RawSample, error) {
	field := func(i int) (string, error) {
		if i >= len(record) {
			return "", fmt.Errorf("missing field %d", i)
		}
		return strings.TrimSpace(record[i]), nil
	}
	float := func(i int) (float64, error) {
		s, err := field(i)
		if err != nil {
			return 0, err
		}
		return util.StringToFloat64(s)
	}

	var (
		s   RawSample
		err error
	)
	ts, err := field(layout.timestamp)
	if err != nil {
		return s, err
	}
	if s.Timestamp, err = strconv.ParseInt(ts, 10, 64); err != nil {
		return s, fmt.Errorf("timestamp: %w", err)
	}
	if s.Lat, err = float(layout.lat); err != nil {
		return s, fmt.Errorf("lat: %w", err)
	}
	if s.Lon, err = float(layout.lon); err != nil {
		return s, fmt.Errorf("lon: %w", err)
	}
	if s.Speed, err = float(layout.speed); err != nil {
		return s, fmt.Errorf("speed: %w", err)
	}
	if s.Heading, err = float(layout.heading); err != nil {
		return s, fmt.Errorf("heading: %w", err)
	}

	for i, name := range layout.sensors {
		if i >= len(record) {
			continue
		}
		v, err := util.StringToFloat64(record[i])
		if err != nil {
			continue
		}
		if s.Sensors == nil {
			s.Sensors = make(map[string]float64, len(layout.sensors))
		}
		s.Sensors[name] = v
	}
	return s, nil
}
