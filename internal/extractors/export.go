package extractors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/followledger/followledger/internal/metrics"
	"github.com/followledger/followledger/internal/models"
)

// FollowingKey is the object key holding the entries of a following export.
const FollowingKey = "relationships_following"

// exportEntry mirrors one account entry of an account-data export.
type exportEntry struct {
	Title          string       `json:"title"`
	StringListData []exportItem `json:"string_list_data"`
}

type exportItem struct {
	Href      string `json:"href"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// ExportExtractor turns account-data export documents into relations.
type ExportExtractor struct {
	logger      *slog.Logger
	skipInvalid bool
}

// NewExportExtractor constructs an ExportExtractor. With skipInvalid set, records
// that cannot become a Relation are logged and dropped instead of failing the
// whole document.
func NewExportExtractor(logger *slog.Logger, skipInvalid bool) *ExportExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportExtractor{logger: logger, skipInvalid: skipInvalid}
}

// Extract parses one export document. A document is either a top-level array
// of entries (followers) or an object whose key field holds that array
// (following). Relations are returned in document order.
func (e *ExportExtractor) Extract(data []byte, key string) ([]models.Relation, error) {
	entries, err := decodeEntries(data, key)
	if err != nil {
		return nil, err
	}

	var relations []models.Relation
	for i, entry := range entries {
		for _, item := range entry.StringListData {
			identity := item.Value
			if identity == "" {
				identity = entry.Title
			}
			r, err := models.NewRelation(identity, item.Timestamp)
			if err != nil {
				if !e.skipInvalid {
					return nil, fmt.Errorf("entry %d: %w", i, err)
				}
				metrics.ObserveSkippedRecord()
				e.logger.Warn("skipping export record", slog.Int("entry", i), slog.Any("error", err))
				continue
			}
			relations = append(relations, r)
		}
	}
	return relations, nil
}

func decodeEntries(data []byte, key string) ([]exportEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty export document")
	}

	var entries []exportEntry
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode export entries: %w", err)
		}
		return entries, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode export document: %w", err)
	}
	if key == "" {
		if len(doc) != 1 {
			return nil, fmt.Errorf("export document has %d keys; a key must be given", len(doc))
		}
		for k := range doc {
			key = k
		}
	}
	raw, ok := doc[key]
	if !ok {
		return nil, fmt.Errorf("export document has no %q key", key)
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return entries, nil
}
