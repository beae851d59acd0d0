package workflow

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

// AdminProject contains what an administrator needs to open a project.
type AdminProject struct {
	Name        string   `json:"name" validate:"required,notblank"`
	Description string   `json:"description"`
	TeacherID   string   `json:"teacher_id" validate:"required"`
	StudentIDs  []string `json:"student_ids"`
}

func (ap *AdminProject) Validate(validate *validator.Validate) error {
	ap.Name = core.CleanString(ap.Name)
	ap.Description = core.CleanString(ap.Description)
	ap.TeacherID = core.CleanString(ap.TeacherID)
	return validate.Struct(ap)
}

type AssignIncharge struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

func (ai *AssignIncharge) Validate(validate *validator.Validate) error {
	ai.TeacherID = core.CleanString(ai.TeacherID)
	return validate.Struct(ai)
}

type UpdateStudents struct {
	StudentIDs []string `json:"student_ids" validate:"required"`
}

func (us *UpdateStudents) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

// getMembers loads every student of ids together with their partners, so partner groups are never split.
// A projectless student or one already in projectID qualifies.
func (svc *Service) getMembers(ctx context.Context, ids []string, projectID string) ([]student.Student, error) {
	var unique []string
	for _, id := range ids {
		unique = appendMissing(unique, id)
	}
	members, err := svc.students.GetMany(ctx, unique)
	if err != nil {
		return nil, errors.Wrap(err, "getting students")
	}
	if len(members) != len(unique) {
		found := make([]string, 0, len(members))
		for _, s := range members {
			found = append(found, s.ID)
		}
		for _, id := range unique {
			if !core.ContainsString(found, id) {
				return nil, core.NewNotFoundError("student", id)
			}
		}
	}

	var partners []string
	for _, s := range members {
		for _, id := range s.Partners {
			if !core.ContainsString(unique, id) {
				partners = appendMissing(partners, id)
			}
		}
	}
	// dangling partner ids are left to read-repair
	loaded, err := svc.students.GetMany(ctx, partners)
	if err != nil {
		return nil, errors.Wrap(err, "getting partners")
	}
	members = append(members, loaded...)

	for _, s := range members {
		if s.HasProject() && s.Project != projectID {
			return nil, &AlreadyAssignedError{StudentID: s.ID, ProjectID: s.Project}
		}
	}
	return members, nil
}

func (svc *Service) setProject(ctx context.Context, students []student.Student, projectID string) error {
	for _, s := range students {
		s.Project = projectID
		if _, err := svc.students.Save(ctx, s); err != nil {
			return errors.Wrapf(err, "saving student %s", s.ID)
		}
	}
	return nil
}

// CreateProject opens a project incharged by ap.TeacherID with the given projectless students and their partners.
func (svc *Service) CreateProject(ctx context.Context, ap AdminProject) (project.Project, error) {
	t, err := svc.teachers.Get(ctx, ap.TeacherID)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "getting teacher")
	}
	members, err := svc.getMembers(ctx, ap.StudentIDs, "")
	if err != nil {
		return project.Project{}, err
	}

	p := project.New(ap.Name, t.ID)
	p.Description = ap.Description
	for _, s := range members {
		p.AddStudent(s.ID)
	}
	if p, err = svc.projects.Save(ctx, p); err != nil {
		return project.Project{}, errors.Wrap(err, "saving project")
	}
	if err := svc.setProject(ctx, members, p.ID); err != nil {
		return project.Project{}, err
	}
	t.AssignProject(p.ID)
	if _, err := svc.teachers.Save(ctx, t); err != nil {
		return project.Project{}, errors.Wrap(err, "saving teacher")
	}
	svc.notifyProjectAssigned(t, p.Name)
	return p, nil
}

// AssignIncharge moves a project to another teacher.
func (svc *Service) AssignIncharge(ctx context.Context, projectID string, ai AssignIncharge) (project.Project, error) {
	p, err := svc.projects.Get(ctx, projectID)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "getting project")
	}
	t, err := svc.teachers.Get(ctx, ai.TeacherID)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "getting teacher")
	}
	if p.Incharge == t.ID {
		return p, nil
	}

	if err := svc.unassign(ctx, p.Incharge, p.ID); err != nil {
		return project.Project{}, err
	}
	p.Incharge = t.ID
	if p, err = svc.projects.Save(ctx, p); err != nil {
		return project.Project{}, errors.Wrap(err, "saving project")
	}
	t.AssignProject(p.ID)
	if _, err := svc.teachers.Save(ctx, t); err != nil {
		return project.Project{}, errors.Wrap(err, "saving teacher")
	}
	svc.notifyProjectAssigned(t, p.Name)
	return p, nil
}

func (svc *Service) unassign(ctx context.Context, teacherID, projectID string) error {
	old, err := svc.teachers.Get(ctx, teacherID)
	switch {
	case core.IsNotFound(err):
		return nil
	case err != nil:
		return errors.Wrap(err, "getting previous incharge")
	}
	old.UnassignProject(projectID)
	if _, err := svc.teachers.Save(ctx, old); err != nil {
		return errors.Wrap(err, "saving previous incharge")
	}
	return nil
}

// UpdateStudents replaces the members of a project with the given students and their partners.
// Removed students are detached.
func (svc *Service) UpdateStudents(ctx context.Context, projectID string, us UpdateStudents) (project.Project, error) {
	p, err := svc.projects.Get(ctx, projectID)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "getting project")
	}
	members, err := svc.getMembers(ctx, us.StudentIDs, p.ID)
	if err != nil {
		return project.Project{}, err
	}

	var kept []string
	for _, s := range members {
		kept = append(kept, s.ID)
	}
	var removed []string
	for _, id := range p.Students {
		if !core.ContainsString(kept, id) {
			removed = append(removed, id)
		}
	}

	p.Students = []string{}
	for _, id := range kept {
		p.AddStudent(id)
	}
	if p, err = svc.projects.Save(ctx, p); err != nil {
		return project.Project{}, errors.Wrap(err, "saving project")
	}
	if err := svc.detach(ctx, removed, p.ID); err != nil {
		return project.Project{}, err
	}
	if err := svc.setProject(ctx, members, p.ID); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

// detach clears the project reference of the given students still pointing to projectID.
func (svc *Service) detach(ctx context.Context, ids []string, projectID string) error {
	students, err := svc.students.GetMany(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "getting students")
	}
	var toClear []student.Student
	for _, s := range students {
		if s.Project == projectID {
			toClear = append(toClear, s)
		}
	}
	return svc.setProject(ctx, toClear, "")
}

// DeleteProject removes a project and detaches it from its students and incharge.
func (svc *Service) DeleteProject(ctx context.Context, projectID string) error {
	p, err := svc.projects.Get(ctx, projectID)
	if err != nil {
		return errors.Wrap(err, "getting project")
	}
	if err := svc.detach(ctx, p.Students, p.ID); err != nil {
		return err
	}
	if err := svc.unassign(ctx, p.Incharge, p.ID); err != nil {
		return err
	}
	return errors.Wrap(svc.projects.Delete(ctx, p.ID), "deleting project")
}

// Dashboard gives administrators an overview of the whole system.
type Dashboard struct {
	Students               int64                  `json:"students"`
	Teachers               int64                  `json:"teachers"`
	Projects               int64                  `json:"projects"`
	ProjectsByStatus       map[project.Status]int `json:"projects_by_status"`
	StudentsWithoutProject int64                  `json:"students_without_project"`
}

func (svc *Service) DashboardStats(ctx context.Context) (Dashboard, error) {
	var dash Dashboard
	var err error
	one := core.Page{Number: 1, Limit: 1}

	if _, dash.Students, err = svc.students.Query(ctx, student.Filter{}, one); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting students")
	}
	no := false
	if _, dash.StudentsWithoutProject, err = svc.students.Query(ctx, student.Filter{HasProject: &no}, one); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting projectless students")
	}
	if _, dash.Teachers, err = svc.teachers.Query(ctx, teacher.Filter{}, one); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting teachers")
	}

	projects, total, err := svc.projects.Query(ctx, project.Filter{}, core.Page{})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying projects")
	}
	dash.Projects = total
	dash.ProjectsByStatus = make(map[project.Status]int, len(project.Statuses))
	for _, st := range project.Statuses {
		dash.ProjectsByStatus[st] = 0
	}
	for _, p := range projects {
		dash.ProjectsByStatus[p.Status]++
	}
	return dash, nil
}
