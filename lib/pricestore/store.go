package pricestore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// on-disk timestamp layout, second precision, local time.
const TimeFormat = time.DateTime

type Record struct {
	Time  time.Time
	Price decimal.Decimal
}

// History is append-only, oldest record first.
type History []Record

func (h History) Latest() (Record, bool) {
	if len(h) == 0 {
		return Record{}, false
	}
	return h[len(h)-1], true
}

// Store keeps one csv file per product under a single data directory.
type Store struct {
	dir string
}

func NewStore(dir string) (Store, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return Store{}, fmt.Errorf("create data dir: %w", err)
	}
	return Store{dir: dir}, nil
}

func (s Store) Dir() string {
	return s.dir
}

var hostileRunes = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeName maps a product name to a deterministic, filesystem-safe
// file name component.
func SanitizeName(product string) string {
	return hostileRunes.Replace(product)
}

func (s Store) HistoryPath(product string) string {
	return filepath.Join(s.dir, SanitizeName(product)+"_price_history.csv")
}

// Load reads a product's persisted history. A missing file is an empty
// history, not an error. Malformed rows are skipped.
func (s Store) Load(ctx context.Context, product string) (History, error) {
	file, err := os.Open(s.HistoryPath(product))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2

	_, err = reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history header: %w", err)
	}

	var history History
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.WarnContext(ctx, "skipping malformed history row", "product", product, "err", err)
			continue
		}
		recordTime, err := time.ParseInLocation(TimeFormat, row[0], time.Local)
		if err != nil {
			slog.WarnContext(ctx, "skipping history row with bad timestamp", "product", product, "err", err)
			continue
		}
		price, err := decimal.NewFromString(row[1])
		if err != nil {
			slog.WarnContext(ctx, "skipping history row with bad price", "product", product, "err", err)
			continue
		}
		history = append(history, Record{Time: recordTime, Price: price})
	}

	return history, nil
}

// Save overwrites a product's history file. The rows go to a temp file
// in the same directory which is then renamed over the target, so a
// crash mid-write never corrupts previously-good data.
func (s Store) Save(ctx context.Context, product string, history History) error {
	tmp, err := os.CreateTemp(s.dir, SanitizeName(product)+"_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	err = writeHistory(tmp, history)
	if err != nil {
		return fmt.Errorf("write temp history: %w", err)
	}
	err = tmp.Sync()
	if err != nil {
		return fmt.Errorf("sync temp history: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}

	err = os.Rename(tmp.Name(), s.HistoryPath(product))
	if err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

func writeHistory(w io.Writer, history History) error {
	writer := csv.NewWriter(w)
	err := writer.Write([]string{"timestamp", "price"})
	if err != nil {
		return err
	}
	for _, r := range history {
		err = writer.Write([]string{r.Time.Format(TimeFormat), r.Price.String()})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
