package project

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("project")
	ErrNoProject       = &core.NotFoundError{Resource: "project", Message: "No project assigned. Please request an incharge first."}
	ErrNotUpdateAuthor = errors.New("you can only edit your own updates")
)

type (
	Repository interface {
		Get(ctx context.Context, id string) (Project, error)
		// Save upserts the project by ID.
		Save(ctx context.Context, p Project) (Project, error)
		// Query returns the projects matching filter, most recently updated first.
		// A zero page returns every match. The total ignores paging.
		Query(ctx context.Context, filter Filter, page core.Page) ([]Project, int64, error)
		Delete(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, id string) (Project, error) {
	if id == "" {
		return Project{}, ErrNotFound
	}
	return svc.repo.Get(ctx, id)
}

// GetForIncharge returns the project only when teacherID is its incharge.
func (svc *Service) GetForIncharge(ctx context.Context, id, teacherID string) (Project, error) {
	p, err := svc.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if p.Incharge != teacherID {
		return Project{}, ErrNotFound
	}
	return p, nil
}

// GetForStudent returns the project referenced by a student.
func (svc *Service) GetForStudent(ctx context.Context, projectID, studentID string) (Project, error) {
	if projectID == "" {
		return Project{}, ErrNoProject
	}
	p, err := svc.Get(ctx, projectID)
	if err != nil {
		if core.IsNotFound(err) {
			return Project{}, ErrNoProject
		}
		return Project{}, err
	}
	if !p.HasStudent(studentID) {
		return Project{}, ErrNoProject
	}
	return p, nil
}

func (svc *Service) Save(ctx context.Context, p Project) (Project, error) {
	p.Recompute()
	p.Touch()
	return svc.repo.Save(ctx, p)
}

func (svc *Service) Query(ctx context.Context, filter Filter, page core.Page) ([]Project, int64, error) {
	return svc.repo.Query(ctx, filter, page)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.Delete(ctx, id)
}

// Create opens a project without members, incharged by teacherID.
func (svc *Service) Create(ctx context.Context, np NewProject, teacherID string, students ...string) (Project, error) {
	p := New(np.Name, teacherID, students...)
	p.Description = np.Description
	return svc.repo.Save(ctx, p)
}

// AddUpdate records a daily update by studentID, optionally renaming the project.
func (svc *Service) AddUpdate(ctx context.Context, p Project, studentID string, nu NewUpdate) (Project, Update, error) {
	now := NowFunc().UTC()
	upd := Update{
		ID:          NewID(),
		Student:     studentID,
		Description: nu.Description,
		Screenshots: nu.Screenshots,
		Report:      nu.Report,
		Timestamp:   now,
		LastEdited:  now,
	}
	if upd.Screenshots == nil {
		upd.Screenshots = []string{}
	}
	if nu.Name != "" {
		p.Name = nu.Name
	}
	p.Updates = append(p.Updates, upd)
	p, err := svc.Save(ctx, p)
	if err != nil {
		return Project{}, Update{}, errors.Wrap(err, "saving project")
	}
	return p, upd, nil
}

// EditUpdate changes an update; only its author may do so.
func (svc *Service) EditUpdate(ctx context.Context, p Project, updateID, studentID string, eu EditUpdate) (Update, error) {
	upd, err := p.update(updateID)
	if err != nil {
		return Update{}, err
	}
	if upd.Student != studentID {
		return Update{}, ErrNotUpdateAuthor
	}
	upd.Description = eu.Description
	upd.Report = eu.Report
	if eu.Screenshots != nil {
		upd.Screenshots = eu.Screenshots
	}
	upd.LastEdited = NowFunc().UTC()
	edited := *upd
	if _, err := svc.Save(ctx, p); err != nil {
		return Update{}, errors.Wrap(err, "saving project")
	}
	return edited, nil
}

// CommentUpdate sets the incharge comment of an update.
func (svc *Service) CommentUpdate(ctx context.Context, p Project, updateID string, c Comment) (Update, error) {
	upd, err := p.update(updateID)
	if err != nil {
		return Update{}, err
	}
	upd.InchargeComment = c.Comment
	commented := *upd
	if _, err := svc.Save(ctx, p); err != nil {
		return Update{}, errors.Wrap(err, "saving project")
	}
	return commented, nil
}

func (svc *Service) ReplaceTargets(ctx context.Context, p Project, rt ReplaceTargets) (Project, error) {
	p.ReplaceTargets(rt.Targets)
	return svc.Save(ctx, p)
}

func (svc *Service) AddTarget(ctx context.Context, p Project, nt NewTarget) (Project, error) {
	p.AddTarget(nt)
	return svc.Save(ctx, p)
}

func (svc *Service) SetTargetCompleted(ctx context.Context, p Project, targetID string, completed bool) (Project, error) {
	if _, err := p.SetTargetCompleted(targetID, completed); err != nil {
		return Project{}, err
	}
	return svc.Save(ctx, p)
}

// UpdateDetails applies the set fields of up.
func (svc *Service) UpdateDetails(ctx context.Context, p Project, up UpdateProject) (Project, error) {
	if up.Name != "" {
		p.Name = up.Name
	}
	if up.Description != "" {
		p.Description = up.Description
	}
	if up.Status != "" {
		p.Status = up.Status
	}
	return svc.Save(ctx, p)
}

// ProjectUpdate is an update together with the project it belongs to.
type ProjectUpdate struct {
	Update
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
}

// LatestUpdates lists the updates of every project incharged by teacherID, newest first.
func (svc *Service) LatestUpdates(ctx context.Context, teacherID string, page core.Page) ([]ProjectUpdate, core.Pagination, error) {
	projects, _, err := svc.repo.Query(ctx, Filter{Incharge: teacherID}, core.Page{})
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying projects")
	}
	all := make([]ProjectUpdate, 0)
	for _, p := range projects {
		for _, u := range p.Updates {
			all = append(all, ProjectUpdate{Update: u, ProjectID: p.ID, ProjectName: p.Name})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	start, end := core.Paginate(page, len(all))
	return all[start:end], core.NewPagination(page, int64(len(all))), nil
}

// Stats summarizes the projects of an incharge.
type Stats struct {
	TotalProjects     int       `json:"total_projects"`
	CompletedProjects int       `json:"completed_projects"`
	ActiveStudents    int       `json:"active_students"`
	RecentProjects    []Project `json:"recent_projects"`
}

func (svc *Service) InchargeStats(ctx context.Context, teacherID string) (Stats, error) {
	projects, _, err := svc.repo.Query(ctx, Filter{Incharge: teacherID}, core.Page{})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying projects")
	}
	stats := Stats{TotalProjects: len(projects), RecentProjects: []Project{}}
	students := make(map[string]struct{})
	for _, p := range projects {
		if p.Status == StatusCompleted {
			stats.CompletedProjects++
		}
		if p.Status == StatusActive {
			for _, s := range p.Students {
				students[s] = struct{}{}
			}
		}
	}
	stats.ActiveStudents = len(students)
	for i := 0; i < len(projects) && i < 5; i++ { // already sorted by updatedAt
		stats.RecentProjects = append(stats.RecentProjects, projects[i])
	}
	return stats, nil
}
