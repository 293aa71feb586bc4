package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/lintang-b-s/roadtrace/pkg/util"
)

// WriteCSV writes raw in the layout ReadCSV accepts. Sensor columns are sorted by name.
func WriteCSV(w io.Writer, raw *RawTrace) error {
	keys := make([]string, 0, len(raw.Metadata))
	for k := range raw.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "# %s: %s\n", k, raw.Metadata[k]); err != nil {
			return err
		}
	}

	sensorSet := make(map[string]struct{})
	for _, s := range raw.Samples {
		for name := range s.Sensors {
			sensorSet[name] = struct{}{}
		}
	}
	sensors := make([]string, 0, len(sensorSet))
	for name := range sensorSet {
		sensors = append(sensors, name)
	}
	sort.Strings(sensors)

	cw := csv.NewWriter(w)
	header := append([]string{"timestamp", "lat", "lon", "speed", "heading"}, sensors...)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, s := range raw.Samples {
		record[0] = strconv.FormatInt(s.Timestamp, 10)
		record[1] = util.FormatFloat(s.Lat)
		record[2] = util.FormatFloat(s.Lon)
		record[3] = util.FormatFloat(s.Speed)
		record[4] = util.FormatFloat(s.Heading)
		for i, name := range sensors {
			v, ok := s.Sensors[name]
			if !ok {
				record[5+i] = ""
				continue
			}
			record[5+i] = util.FormatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSVFile(path string, raw *RawTrace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, raw); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
