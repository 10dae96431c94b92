package paper

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// JSONLRecorder appends closed trades as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single trade to the underlying JSONL file.
func (r *JSONLRecorder) Record(trade ClosedTrade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	_ = r.enc.Encode(trade)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

var csvHeader = []string{"date", "epic", "direction", "pnl", "exit", "duration"}

const csvDateLayout = "2006-01-02 15:04:05"

// CSVRecorder appends one row per closed trade to <dir>/<instrument>.csv.
type CSVRecorder struct {
	mu  sync.Mutex
	dir string
	log zerolog.Logger
}

// NewCSVRecorder ensures dir exists.
func NewCSVRecorder(dir string, log zerolog.Logger) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSVRecorder{dir: dir, log: log.With().Str("component", "csv_log").Logger()}, nil
}

// Path returns the file a given instrument's trades are written to.
func (r *CSVRecorder) Path(instrument string) string {
	return filepath.Join(r.dir, filepath.Base(instrument)+".csv")
}

// Record appends trade, logging write failures.
func (r *CSVRecorder) Record(trade ClosedTrade) {
	if err := r.Append(trade); err != nil {
		r.log.Error().Err(err).Str("epic", trade.Instrument).Msg("trade log write failed")
	}
}

// Append writes trade, emitting the header when the file is new or empty.
func (r *CSVRecorder) Append(trade ClosedTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.Path(trade.Instrument)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	row := []string{
		trade.ClosedAt.UTC().Format(csvDateLayout),
		trade.Instrument,
		string(trade.Direction),
		strconv.FormatFloat(trade.PnL, 'f', -1, 64),
		string(trade.Reason),
		strconv.FormatFloat(trade.Duration, 'f', 3, 64),
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
