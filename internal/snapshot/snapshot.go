// Package snapshot loads an immutable ledger and goal snapshot from a local
// file or a Cloud Storage object.
package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

// Format is the encoding of a snapshot.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Snapshot is a user's transactions and goals at a point in time.
type Snapshot struct {
	Transactions []model.Transaction `json:"transactions"`
	Goals        []model.Goal        `json:"goals"`
}

// csvHeader is the column order written and expected for CSV ledgers.
var csvHeader = []string{"transaction_id", "date", "amount", "merchant_name", "category", "payment_channel", "pending"}

// FormatOf picks a format from a file or object name; anything not ending in .csv is JSON.
func FormatOf(name string) Format {
	if strings.EqualFold(path.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Load reads a snapshot from src, which is a local path or gs://bucket/object.
// opts are passed to the Cloud Storage client.
func Load(ctx context.Context, src string, opts ...option.ClientOption) (*Snapshot, error) {
	data, err := read(ctx, src, opts...)
	if err != nil {
		return nil, err
	}
	snap, err := Decode(bytes.NewReader(data), FormatOf(src))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return snap, nil
}

func read(ctx context.Context, src string, opts ...option.ClientOption) ([]byte, error) {
	bucket, object, ok := ParseGCSURI(src)
	if !ok {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		return data, nil
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// ParseGCSURI splits gs://bucket/object. ok is false for anything else.
func ParseGCSURI(uri string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(uri, "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// Decode parses a snapshot. JSON may be a full snapshot object or a bare
// array of transactions; CSV carries transactions only.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	if format == FormatCSV {
		txns, err := decodeCSV(r)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Transactions: txns}, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var txns []model.Transaction
		if err := json.Unmarshal(data, &txns); err != nil {
			return nil, err
		}
		return &Snapshot{Transactions: txns}, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func decodeCSV(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"transaction_id", "date", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, model.NewUpstreamError(required, "missing csv column")
		}
	}
	field := func(rec []string, name string) string {
		if i, ok := cols[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var txns []model.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return txns, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		date, err := model.ParseDate(field(rec, "date"))
		if err != nil {
			return nil, model.NewUpstreamError("date", fmt.Sprintf("line %d: %v", line, err))
		}
		amount, err := strconv.ParseFloat(field(rec, "amount"), 64)
		if err != nil {
			return nil, model.NewUpstreamError("amount", fmt.Sprintf("line %d: %v", line, err))
		}
		var categories []string
		if c := field(rec, "category"); c != "" {
			for _, part := range strings.Split(c, ";") {
				if part = strings.TrimSpace(part); part != "" {
					categories = append(categories, part)
				}
			}
		}
		pending, _ := strconv.ParseBool(field(rec, "pending"))

		txns = append(txns, model.Transaction{
			ID:         field(rec, "transaction_id"),
			Date:       date,
			Amount:     amount,
			Merchant:   field(rec, "merchant_name"),
			Categories: categories,
			Channel:    field(rec, "payment_channel"),
			Pending:    pending,
		})
	}
}

// WriteCSV writes transactions in the layout Decode reads.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range txns {
		if err := cw.Write([]string{
			t.ID,
			t.Date.Format(model.DateLayout),
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.Merchant,
			strings.Join(t.Categories, ";"),
			t.Channel,
			strconv.FormatBool(t.Pending),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
