package workflow

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

// Materializer decides which Project a relationship transition attaches to and performs the attachment.
// The students and teacher passed in are mutated but not persisted: their owner (the Coordinator) saves them.
// Other partner group members and the project itself are saved here.
type Materializer struct {
	students *student.Service
	projects *project.Service
}

func NewMaterializer(students *student.Service, projects *project.Service) *Materializer {
	return &Materializer{students: students, projects: projects}
}

// AttachIncharge attaches s (and their partner group) to the project identified by projectID,
// or to a new project incharged by t when projectID is empty.
func (m *Materializer) AttachIncharge(ctx context.Context, t *teacher.Teacher, s *student.Student, projectID string) (project.Project, error) {
	var p project.Project
	if projectID != "" {
		var err error
		if p, err = m.projects.GetForIncharge(ctx, projectID, t.ID); err != nil {
			return project.Project{}, errors.Wrap(err, "getting project")
		}
	} else {
		if s.HasProject() {
			return project.Project{}, &AlreadyAssignedError{StudentID: s.ID, ProjectID: s.Project}
		}
		p = project.New("Project for Student "+s.RollNo, t.ID)
	}

	if err := m.attach(ctx, &p, s); err != nil {
		return project.Project{}, err
	}
	t.AssignProject(p.ID)
	return p, nil
}

// AttachPartners shares the project of a or b with both partner groups.
// When neither has a project, nothing happens.
func (m *Materializer) AttachPartners(ctx context.Context, a, b *student.Student) (*project.Project, error) {
	if !a.HasProject() && !b.HasProject() {
		return nil, nil
	}
	if a.HasProject() && b.HasProject() && a.Project != b.Project {
		return nil, &AlreadyAssignedError{StudentID: b.ID, ProjectID: b.Project}
	}
	pid := a.Project
	if pid == "" {
		pid = b.Project
	}
	p, err := m.projects.Get(ctx, pid)
	if err != nil {
		return nil, errors.Wrap(err, "getting shared project")
	}
	if err := m.attach(ctx, &p, a, b); err != nil {
		return nil, err
	}
	return &p, nil
}

// attach adds the given students and all their partners to p, then saves p and the partners
// that are not among the given students. Nothing is changed when any member already has another project.
func (m *Materializer) attach(ctx context.Context, p *project.Project, given ...*student.Student) error {
	inHand := make(map[string]*student.Student, len(given))
	var others []string
	for _, s := range given {
		inHand[s.ID] = s
	}
	for _, s := range given {
		for _, id := range s.Group() {
			if _, ok := inHand[id]; !ok {
				others = appendMissing(others, id)
			}
		}
	}

	loaded, err := m.students.GetMany(ctx, others)
	if err != nil {
		return errors.Wrap(err, "getting partner group")
	}

	members := make([]*student.Student, 0, len(given)+len(loaded))
	members = append(members, given...)
	for i := range loaded {
		members = append(members, &loaded[i])
	}
	for _, s := range members {
		if s.HasProject() && s.Project != p.ID {
			return &AlreadyAssignedError{StudentID: s.ID, ProjectID: s.Project}
		}
	}

	for _, s := range members {
		s.Project = p.ID
		p.AddStudent(s.ID)
	}
	saved, err := m.projects.Save(ctx, *p)
	if err != nil {
		return errors.Wrap(err, "saving project")
	}
	*p = saved

	for i := range loaded {
		if _, err := m.students.Save(ctx, loaded[i]); err != nil {
			return errors.Wrap(err, "saving partner")
		}
	}
	return nil
}

func appendMissing(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}
