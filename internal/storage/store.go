// Package storage keeps the metric series of finished runs on disk, one
// directory per run holding metadata.json and series.csv. Body state is
// never written.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/verlet/internal/sim"
)

// ErrMalformedSeries is returned when a series file cannot be parsed.
var ErrMalformedSeries = errors.New("storage: malformed series")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Substeps  int                `json:"substeps"`
	Frames    int                `json:"frames"`
	Bodies    int                `json:"bodies"`
	Clamped   int                `json:"clamped"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Series is the per-frame table of a run.
type Series struct {
	Times   []float64
	Bodies  []int
	Columns []string
	Values  map[string][]float64
}

func (s *Store) Save(scene string, cfg sim.Config, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", scene, now.UnixMilli())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	bodies := 0
	if n := len(result.Bodies); n > 0 {
		bodies = result.Bodies[n-1]
	}
	meta := RunMetadata{
		ID:        runID,
		Scene:     scene,
		Timestamp: now,
		Seed:      cfg.Seed,
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Substeps:  cfg.Substeps,
		Frames:    result.Frames,
		Bodies:    bodies,
		Clamped:   result.Clamped,
		Metrics:   result.Metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "series.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteSeries(csvFile, result); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteSeries writes one CSV row per frame: time, body count, then every
// metric in name order.
func WriteSeries(out io.Writer, result *sim.Result) error {
	names := make([]string, 0, len(result.Series))
	for name := range result.Series {
		names = append(names, name)
	}
	sort.Strings(names)

	w := csv.NewWriter(out)
	if err := w.Write(append([]string{"time", "bodies"}, names...)); err != nil {
		return err
	}

	for i, t := range result.Times {
		row := []string{strconv.FormatFloat(t, 'f', 6, 64), strconv.Itoa(result.Bodies[i])}
		for _, name := range names {
			row = append(row, strconv.FormatFloat(result.Series[name][i], 'g', 8, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSeries, err)
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedSeries)
	}

	header := records[0]
	series := &Series{
		Columns: header[2:],
		Values:  make(map[string][]float64, len(header)-2),
	}
	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedSeries, i+1, err)
		}
		n, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedSeries, i+1, err)
		}
		series.Times = append(series.Times, t)
		series.Bodies = append(series.Bodies, n)

		for j, name := range series.Columns {
			v, err := strconv.ParseFloat(record[j+2], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedSeries, i+1, err)
			}
			series.Values[name] = append(series.Values[name], v)
		}
	}
	return series, nil
}
