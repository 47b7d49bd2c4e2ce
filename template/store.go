// Package template stores named, reusable report configurations. Templates
// are owned by the user who created them; only privileged roles see or touch
// another user's templates. Every lifecycle change lands in the audit trail.
package template

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"travel-insight/access"
	"travel-insight/audit"
	"travel-insight/report"
)

// Template is a saved report request plus ownership metadata.
type Template struct {
	ID        string             `yaml:"id" json:"id"`
	Name      string             `yaml:"name" json:"name"`
	Owner     string             `yaml:"owner" json:"owner"`
	Config    report.QueryConfig `yaml:"config" json:"config"`
	CreatedAt time.Time          `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time          `yaml:"updated_at" json:"updated_at"`
}

// Store keeps templates in one YAML file, rewritten on every change. The
// volume is small (a handful per user) so a full rewrite is fine.
type Store struct {
	mu    sync.Mutex
	path  string
	audit *audit.Recorder
	items map[string]*Template
}

type storeFile struct {
	Templates []*Template `yaml:"templates"`
}

// NewStore loads the template file, creating an empty store when the file
// does not exist yet.
func NewStore(path string, recorder *audit.Recorder) (*Store, error) {
	s := &Store{path: path, audit: recorder, items: map[string]*Template{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	for _, t := range file.Templates {
		s.items[t.ID] = t
	}
	return s, nil
}

// List returns the caller's templates, or everyone's for privileged roles,
// sorted by name.
func (s *Store) List(caller access.Caller) []*Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Template, 0, len(s.items))
	for _, t := range s.items {
		if access.Privileged(caller.Role) || t.Owner == caller.ID {
			out = append(out, copyTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns one template, enforcing ownership.
func (s *Store) Get(id string, caller access.Caller) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.locked(id, caller)
	if err != nil {
		return nil, err
	}
	return copyTemplate(t), nil
}

// Create saves a new template owned by the caller and returns it with its
// generated id.
func (s *Store) Create(name string, cfg report.QueryConfig, caller access.Caller) (*Template, error) {
	if name == "" {
		return nil, report.Validationf("template name required")
	}
	now := time.Now().UTC()
	t := &Template{
		ID:        uuid.NewString(),
		Name:      name,
		Owner:     caller.ID,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.items[t.ID] = t
	err := s.persist()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.record(audit.CategoryTemplateCreate, caller, t, nil)
	return copyTemplate(t), nil
}

// Update replaces a template's name and config, enforcing ownership.
func (s *Store) Update(id, name string, cfg report.QueryConfig, caller access.Caller) (*Template, error) {
	s.mu.Lock()
	t, err := s.locked(id, caller)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if name != "" {
		t.Name = name
	}
	t.Config = cfg
	t.UpdatedAt = time.Now().UTC()
	err = s.persist()
	updated := copyTemplate(t)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.record(audit.CategoryTemplateModify, caller, updated, nil)
	return updated, nil
}

// Delete removes a template, enforcing ownership.
func (s *Store) Delete(id string, caller access.Caller) error {
	s.mu.Lock()
	t, err := s.locked(id, caller)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.items, id)
	err = s.persist()
	removed := copyTemplate(t)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.record(audit.CategoryTemplateDelete, caller, removed, nil)
	return nil
}

// locked resolves id + ownership; callers hold s.mu.
func (s *Store) locked(id string, caller access.Caller) (*Template, error) {
	t, ok := s.items[id]
	if !ok {
		return nil, report.NotFoundf("template %s not found", id)
	}
	if !access.Privileged(caller.Role) && t.Owner != caller.ID {
		return nil, report.NotFoundf("template %s not found", id)
	}
	return t, nil
}

// persist rewrites the backing file; callers hold s.mu.
func (s *Store) persist() error {
	file := storeFile{Templates: make([]*Template, 0, len(s.items))}
	for _, t := range s.items {
		file.Templates = append(file.Templates, t)
	}
	sort.Slice(file.Templates, func(i, j int) bool { return file.Templates[i].ID < file.Templates[j].ID })
	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *Store) record(category audit.Category, caller access.Caller, t *Template, err error) {
	if s.audit == nil {
		return
	}
	rec := audit.Record{
		Category:    category,
		Actor:       caller.ID,
		Description: "report template: " + t.Name,
		Details: map[string]any{
			"template": t.ID,
			"report":   t.Config.ReportType,
		},
	}
	if err != nil {
		rec.Status = audit.StatusError
		rec.Details["error"] = err.Error()
	}
	s.audit.Record(rec)
}

func copyTemplate(t *Template) *Template {
	out := *t
	out.Config = t.Config.Clone()
	return &out
}
