// Package testsupport provides ready-made mapped types and object graphs
// for tests, benchmarks, and examples that exercise a record graph engine.
// The types cover the two reference shapes that matter: a single-reference
// pair that can close a cycle, and a list-of-references board.
package testsupport

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-record-graph/record"
	"github.com/goliatone/go-record-graph/recordgraph"
)

// Employee references its department through a single-reference field.
type Employee struct {
	record.Entity
	Name       string      `json:"name"`
	Department *Department `json:"department,omitempty"`
}

func (e *Employee) RecordKind() string { return "employee" }

func (e *Employee) RecordFields() []record.Field {
	return []record.Field{
		{Name: "name", Kind: record.KindString, Value: func() any { return e.Name }},
		{Name: "department", Kind: record.KindReference, Value: func() any { return e.Department }},
	}
}

// Department references its head, which may reference the department back.
type Department struct {
	record.Entity
	Name string    `json:"name"`
	Head *Employee `json:"head,omitempty"`
}

func (d *Department) RecordKind() string { return "department" }

func (d *Department) RecordFields() []record.Field {
	return []record.Field{
		{Name: "name", Kind: record.KindString, Value: func() any { return d.Name }},
		{Name: "head", Kind: record.KindReference, Value: func() any { return d.Head }},
	}
}

// Project holds a reference list of tasks.
type Project struct {
	record.Entity
	Name  string  `json:"name"`
	Tasks []*Task `json:"tasks,omitempty"`
}

func (p *Project) RecordKind() string { return "project" }

func (p *Project) RecordFields() []record.Field {
	return []record.Field{
		{Name: "name", Kind: record.KindString, Value: func() any { return p.Name }},
		{Name: "tasks", Kind: record.KindReferenceList, Value: func() any { return record.Refs(p.Tasks) }},
	}
}

// Task points back at its project.
type Task struct {
	record.Entity
	Title   string   `json:"title"`
	Project *Project `json:"project,omitempty"`
}

func (t *Task) RecordKind() string { return "task" }

func (t *Task) RecordFields() []record.Field {
	return []record.Field{
		{Name: "title", Kind: record.KindString, Value: func() any { return t.Title }},
		{Name: "project", Kind: record.KindReference, Value: func() any { return t.Project }},
	}
}

// Types returns factories for every fixture kind, in the shape
// recordgraph.WithTypes expects.
func Types() []func() record.Mapper {
	return []func() record.Mapper{
		func() record.Mapper { return &Employee{} },
		func() record.Mapper { return &Department{} },
		func() record.Mapper { return &Project{} },
		func() record.Mapper { return &Task{} },
	}
}

// OrgChart builds an employee and a department referencing each other, the
// smallest graph that forces a deferred save.
func OrgChart(employee, department string) (*Employee, *Department) {
	dept := &Department{Name: department}
	emp := &Employee{Name: employee, Department: dept}
	dept.Head = emp
	return emp, dept
}

// ProjectBoard builds a project whose tasks all point back at it. Saving
// the board from the project side fails on the list cycle; saving any task
// first succeeds.
func ProjectBoard(name string, titles ...string) (*Project, []*Task) {
	p := &Project{Name: name}
	tasks := make([]*Task, len(titles))
	for i, title := range titles {
		tasks[i] = &Task{Title: title, Project: p}
	}
	p.Tasks = tasks
	return p, tasks
}

// SeedEmployees saves n plain employees through the engine and returns
// their identities in save order.
func SeedEmployees(tb testing.TB, e *recordgraph.Engine, n int) []record.Identity {
	tb.Helper()
	ids := make([]record.Identity, n)
	for i := range ids {
		emp := &Employee{Name: fmt.Sprintf("employee-%d", i)}
		if _, err := e.Save(context.Background(), emp); err != nil {
			tb.Fatalf("seeding employee %d: %v", i, err)
		}
		ids[i] = emp.RecordIdentity()
	}
	return ids
}
