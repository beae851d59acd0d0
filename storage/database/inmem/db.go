// Package inmemdb is a process-local document store used by tests and the dev server.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

type (
	DB struct {
		student *studentTable
		teacher *teacherTable
		project *projectTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	teacherTable struct {
		sync.RWMutex
		table map[string]*teacher.Teacher
	}

	projectTable struct {
		sync.RWMutex
		table map[string]*project.Project
	}
)

func Open() *DB {
	return &DB{
		student: &studentTable{table: make(map[string]*student.Student)},
		teacher: &teacherTable{table: make(map[string]*teacher.Teacher)},
		project: &projectTable{table: make(map[string]*project.Project)},
	}
}

// Documents are copied in and out so that callers never share slices with the store.

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func copyLedger(l ledger.Ledger) ledger.Ledger {
	if l == nil {
		return nil
	}
	return append(ledger.Ledger{}, l...)
}

func copyStudent(s student.Student) student.Student {
	s.PasswordHash = append([]byte(nil), s.PasswordHash...)
	s.Partners = copyStrings(s.Partners)
	s.PartnerRequests = copyLedger(s.PartnerRequests)
	s.InchargeRequests = copyLedger(s.InchargeRequests)
	return s
}

func copyTeacher(t teacher.Teacher) teacher.Teacher {
	t.PasswordHash = append([]byte(nil), t.PasswordHash...)
	t.AssignedProjects = copyStrings(t.AssignedProjects)
	t.InchargeRequests = copyLedger(t.InchargeRequests)
	return t
}

func copyProject(p project.Project) project.Project {
	p.Students = copyStrings(p.Students)
	if p.Updates != nil {
		updates := make([]project.Update, len(p.Updates))
		for i, u := range p.Updates {
			u.Screenshots = copyStrings(u.Screenshots)
			updates[i] = u
		}
		p.Updates = updates
	}
	if p.Targets != nil {
		p.Targets = append([]project.Target{}, p.Targets...)
	}
	return p
}

// page slices a sorted result set; a zero page returns everything.
func page[T any](items []T, p core.Page) []T {
	if p.Limit <= 0 {
		return items
	}
	start, end := core.Paginate(p, len(items))
	return items[start:end]
}

func sortBy[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
