package session

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
	FormatCSV  ExportFormat = "csv"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", errors.Errorf("unknown export format %q (want json, yaml or csv)", s)
	}
}

// Export is the downloadable snapshot of a session's history.
type Export struct {
	SessionID          string  `json:"sessionId" yaml:"sessionId"`
	Timestamp          string  `json:"timestamp" yaml:"timestamp"`
	TotalConversations int     `json:"totalConversations" yaml:"totalConversations"`
	Conversations      []Entry `json:"conversations" yaml:"conversations"`
}

// Export builds the export document from the current state. It has no side
// effects.
func (m *Manager) Export() Export {
	entries := m.state.Entries()
	return Export{
		SessionID:          m.state.SessionID(),
		Timestamp:          FormatTimestamp(m.now()),
		TotalConversations: len(entries),
		Conversations:      entries,
	}
}

func ExportFilename(sessionID string, f ExportFormat) string {
	if f == "" {
		f = FormatJSON
	}
	return "student-chatbot-export-" + sessionID + "." + string(f)
}

func WriteExport(w io.Writer, doc Export, f ExportFormat) error {
	switch f {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(doc), "write json export")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "write yaml export")
		}
		return errors.Wrap(enc.Close(), "write yaml export")
	case FormatCSV:
		return writeCSV(w, doc)
	default:
		return errors.Errorf("unknown export format %q", f)
	}
}

func writeCSV(w io.Writer, doc Export) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"session_id", "timestamp", "query", "response", "category", "confidence"}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, e := range doc.Conversations {
		conf := ""
		if e.Confidence != nil {
			conf = strconv.FormatFloat(*e.Confidence, 'f', -1, 64)
		}
		if err := cw.Write([]string{doc.SessionID, e.Timestamp, e.Query, e.Response, e.Category, conf}); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// FormatFromPath picks the export format from a file extension, defaulting
// to JSON.
func FormatFromPath(path string) ExportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".csv":
		return FormatCSV
	default:
		return FormatJSON
	}
}

// SaveExport writes doc to path, replacing any existing file.
func SaveExport(path string, doc Export, f ExportFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	if err := WriteExport(file, doc, f); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "close export file")
}
