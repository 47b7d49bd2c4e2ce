// Package audit appends an immutable trail of report access, generation,
// export and template lifecycle events. Records are JSON lines in an
// append-only file; nothing in this package updates or deletes them.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryAccess         Category = "access"
	CategoryGeneration     Category = "generation"
	CategoryTemplateCreate Category = "template-create"
	CategoryTemplateModify Category = "template-modify"
	CategoryTemplateDelete Category = "template-delete"
	CategoryExport         Category = "export"
	CategoryError          Category = "error"
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

type Record struct {
	ID          string         `json:"id"`
	Category    Category       `json:"category"`
	Actor       string         `json:"actor"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	Origin      string         `json:"origin,omitempty"`
	Status      string         `json:"status"`
	At          time.Time      `json:"at"`
}

// Recorder writes records to a single append-only file, mutex-guarded so
// concurrent requests never interleave lines.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
}

func NewRecorder(dir, fname string) (*Recorder, error) {
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, fname), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Recorder{file: f}, nil
}

func NewRecorderOrDie(dir, fname string) *Recorder {
	r, err := NewRecorder(dir, fname)
	if err != nil {
		panic(err)
	}
	return r
}

// Record appends one event. Sensitive detail fields are stripped before the
// record is written; the id and timestamp are filled in here.
func (r *Recorder) Record(rec Record) {
	if r == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = StatusSuccess
	}
	rec.Details = Redact(rec.Details)

	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.file.Write(line)
	r.file.WriteString("\n")
}

func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.file.Close()
}

var sensitiveFragments = []string{"password", "token", "secret", "apikey", "api_key"}

// Redact returns a copy of details with secret-bearing fields replaced.
// Nested maps are redacted one level deep (filter blobs are flat).
func Redact(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if isSensitive(k) {
			out[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			inner := make(map[string]any, len(nested))
			for nk, nv := range nested {
				if isSensitive(nk) {
					inner[nk] = "[REDACTED]"
				} else {
					inner[nk] = nv
				}
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
