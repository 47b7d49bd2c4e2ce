package template

import (
	"path/filepath"
	"testing"

	"travel-insight/access"
	"travel-insight/report"
)

var (
	owner    = access.Caller{ID: "u1", Role: access.RoleAgent}
	stranger = access.Caller{ID: "u2", Role: access.RoleAgent}
	admin    = access.Caller{ID: "boss", Role: access.RoleAdmin}
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, path
}

func bookingConfig() report.QueryConfig {
	return report.QueryConfig{
		ReportType: "booking",
		Filters:    map[string]any{"status": "CONFIRMED"},
		Aggregates: map[string]string{"totalAmount": "SUM"},
	}
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newStore(t)

	created, err := s.Create("monthly confirmed", bookingConfig(), owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Owner != "u1" || created.CreatedAt.IsZero() {
		t.Errorf("created = %+v", created)
	}

	got, err := s.Get(created.ID, owner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "monthly confirmed" || got.Config.ReportType != "booking" {
		t.Errorf("got = %+v", got)
	}

	if _, err := s.Create("", bookingConfig(), owner); report.KindOf(err) != report.KindValidation {
		t.Errorf("nameless create err = %v, want validation", err)
	}
}

func TestOwnershipScoping(t *testing.T) {
	s, _ := newStore(t)
	created, err := s.Create("mine", bookingConfig(), owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// a stranger cannot see, change or remove it; the response does not reveal
	// that the template exists at all
	if _, err := s.Get(created.ID, stranger); report.KindOf(err) != report.KindNotFound {
		t.Errorf("stranger get err = %v, want not-found", err)
	}
	if _, err := s.Update(created.ID, "stolen", bookingConfig(), stranger); report.KindOf(err) != report.KindNotFound {
		t.Errorf("stranger update err = %v, want not-found", err)
	}
	if err := s.Delete(created.ID, stranger); report.KindOf(err) != report.KindNotFound {
		t.Errorf("stranger delete err = %v, want not-found", err)
	}

	if len(s.List(stranger)) != 0 {
		t.Error("stranger list should be empty")
	}
	if len(s.List(owner)) != 1 {
		t.Error("owner should see their template")
	}
	if len(s.List(admin)) != 1 {
		t.Error("admin should see every template")
	}
	if _, err := s.Get(created.ID, admin); err != nil {
		t.Errorf("admin get: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	s, _ := newStore(t)
	created, _ := s.Create("v1", bookingConfig(), owner)

	cfg := bookingConfig()
	cfg.Limit = 50
	updated, err := s.Update(created.ID, "v2", cfg, owner)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "v2" || updated.Config.Limit != 50 {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) && !updated.UpdatedAt.Equal(updated.CreatedAt) {
		t.Error("UpdatedAt should move forward")
	}

	// empty name keeps the old one
	kept, err := s.Update(created.ID, "", cfg, owner)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if kept.Name != "v2" {
		t.Errorf("name = %q, want unchanged", kept.Name)
	}

	if _, err := s.Update("no-such-id", "x", cfg, owner); report.KindOf(err) != report.KindNotFound {
		t.Errorf("unknown id err = %v, want not-found", err)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t)
	created, _ := s.Create("doomed", bookingConfig(), owner)

	if err := s.Delete(created.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(created.ID, owner); report.KindOf(err) != report.KindNotFound {
		t.Errorf("get after delete err = %v, want not-found", err)
	}
	if err := s.Delete(created.ID, owner); report.KindOf(err) != report.KindNotFound {
		t.Errorf("double delete err = %v, want not-found", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	s, path := newStore(t)
	created, err := s.Create("durable", bookingConfig(), owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(created.ID, owner)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Name != "durable" || got.Config.Filters["status"] != "CONFIRMED" {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestGetReturnsACopy(t *testing.T) {
	s, _ := newStore(t)
	created, _ := s.Create("isolated", bookingConfig(), owner)

	got, _ := s.Get(created.ID, owner)
	got.Config.Filters["status"] = "CANCELLED"

	again, _ := s.Get(created.ID, owner)
	if again.Config.Filters["status"] != "CONFIRMED" {
		t.Error("mutating a returned template must not touch the store")
	}
}
