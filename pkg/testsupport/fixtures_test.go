package testsupport

import (
	"context"
	"testing"

	"github.com/goliatone/go-record-graph/cache"
	"github.com/goliatone/go-record-graph/record"
	"github.com/goliatone/go-record-graph/recordgraph"
	"github.com/goliatone/go-record-graph/store/memstore"
)

func newEngine(t *testing.T) *recordgraph.Engine {
	t.Helper()
	rc, err := cache.New(cache.Config{})
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	e, err := recordgraph.New(memstore.New(), rc, recordgraph.WithTypes(Types()...))
	if err != nil {
		t.Fatalf("recordgraph.New() error = %v", err)
	}
	return e
}

func TestTypes_RegisterCleanly(t *testing.T) {
	reg := record.NewRegistry()
	for _, factory := range Types() {
		if kind := reg.RegisterInstance(factory); kind == "" {
			t.Fatal("RegisterInstance() reported an empty kind")
		}
	}
	for _, kind := range []string{"employee", "department", "project", "task"} {
		obj, err := reg.New(kind)
		if err != nil {
			t.Errorf("New(%q) error = %v", kind, err)
			continue
		}
		if obj.RecordKind() != kind {
			t.Errorf("New(%q).RecordKind() = %q", kind, obj.RecordKind())
		}
	}
}

func TestOrgChart_WiresTheCycle(t *testing.T) {
	emp, dept := OrgChart("ada", "engineering")
	if emp.Department != dept || dept.Head != emp {
		t.Fatal("OrgChart() did not wire the references both ways")
	}

	e := newEngine(t)
	if _, err := e.Save(context.Background(), emp); err != nil {
		t.Fatalf("Save() of an org chart error = %v", err)
	}
	if emp.RecordIdentity() == "" || dept.RecordIdentity() == "" {
		t.Error("saving the chart left an end without an identity")
	}
}

func TestProjectBoard_BackReferences(t *testing.T) {
	p, tasks := ProjectBoard("apollo", "design", "build", "launch")
	if len(tasks) != 3 || len(p.Tasks) != 3 {
		t.Fatalf("ProjectBoard() built %d tasks, want 3", len(tasks))
	}
	for i, tk := range tasks {
		if tk.Project != p {
			t.Errorf("task %d does not point back at the project", i)
		}
	}

	// The board saves when entered through a task.
	e := newEngine(t)
	if _, err := e.Save(context.Background(), tasks[0]); err != nil {
		t.Fatalf("Save() from the task side error = %v", err)
	}
}

func TestSeedEmployees(t *testing.T) {
	e := newEngine(t)
	ids := SeedEmployees(t, e, 4)
	if len(ids) != 4 {
		t.Fatalf("SeedEmployees() returned %d identities, want 4", len(ids))
	}
	for i, id := range ids {
		var out Employee
		if err := e.Load(context.Background(), id, &out); err != nil {
			t.Errorf("Load(%q) error = %v", id, err)
			continue
		}
		if out.Name == "" {
			t.Errorf("seeded employee %d has no name", i)
		}
	}
}
