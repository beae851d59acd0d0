package workflow

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/ledger"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

// repair tracks the documents touched while reconciling one student.
type repair struct {
	self     *student.Student
	students map[string]*student.Student
	teachers map[string]*teacher.Teacher
	dirty    map[string]bool // by "student:<id>" / "teacher:<id>"
	actions  []string
}

func (r *repair) touch(ref, action string) {
	r.dirty[ref] = true
	r.actions = append(r.actions, action)
}

// Reconcile repairs drift left by partial writes around one student and returns the up-to-date student:
//   - a pending copy whose counterpart already resolved the request adopts the counterpart's outcome;
//   - a resolved copy whose counterpart is still pending resolves the counterpart;
//   - a sent request with no counterpart copy gets its copy back;
//   - accepted partners are made symmetric;
//   - the student's project reference follows the project listing them.
func (svc *Service) Reconcile(ctx context.Context, studentID string) (student.Student, error) {
	s, err := svc.students.Get(ctx, studentID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	r := &repair{
		self:     &s,
		students: map[string]*student.Student{s.ID: &s},
		teachers: map[string]*teacher.Teacher{},
		dirty:    map[string]bool{},
	}

	if err := svc.reconcilePartners(ctx, r); err != nil {
		return student.Student{}, err
	}
	if err := svc.reconcileIncharges(ctx, r); err != nil {
		return student.Student{}, err
	}
	if err := svc.reconcileProject(ctx, r); err != nil {
		return student.Student{}, err
	}

	if len(r.actions) == 0 {
		return s, nil
	}
	svc.logger.Info("repaired request drift", map[string]interface{}{"student": s.ID, "actions": r.actions})
	if err := svc.flush(ctx, r); err != nil {
		return student.Student{}, err
	}
	return *r.self, nil
}

// ReconcileAll runs Reconcile for every student and returns how many were checked.
// Errors on single students are logged and do not stop the pass.
func (svc *Service) ReconcileAll(ctx context.Context) (int, error) {
	all, _, err := svc.students.Query(ctx, student.Filter{}, core.Page{})
	if err != nil {
		return 0, errors.Wrap(err, "querying students")
	}
	for _, s := range all {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, err := svc.Reconcile(ctx, s.ID); err != nil {
			svc.logger.Error("reconciling student "+s.ID, err)
		}
	}
	return len(all), nil
}

func (svc *Service) otherStudent(ctx context.Context, r *repair, id string) (*student.Student, error) {
	if s, ok := r.students[id]; ok {
		return s, nil
	}
	s, err := svc.students.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.students[id] = &s
	return &s, nil
}

func (svc *Service) otherTeacher(ctx context.Context, r *repair, id string) (*teacher.Teacher, error) {
	if t, ok := r.teachers[id]; ok {
		return t, nil
	}
	t, err := svc.teachers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.teachers[id] = &t
	return &t, nil
}

// hasCopy reports whether l holds any copy of a request with counterpart in direction dir created since.
func hasCopy(l ledger.Ledger, counterpart string, dir ledger.Direction, since ledger.Request) bool {
	for _, req := range l {
		if req.Counterpart == counterpart && req.Direction == dir && !req.CreatedAt.Before(since.CreatedAt) {
			return true
		}
	}
	return false
}

func (svc *Service) reconcilePartners(ctx context.Context, r *repair) error {
	s := r.self
	selfRef := "student:" + s.ID
	for _, entry := range s.PartnerRequests {
		other, err := svc.otherStudent(ctx, r, entry.Counterpart)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return errors.Wrap(err, "getting counterpart")
		}
		otherRef := "student:" + other.ID
		mirrorDir := entry.Direction.Opposite()

		switch {
		case entry.IsPending():
			if _, ok := other.PartnerRequests.FindPending(s.ID, mirrorDir); ok {
				continue
			}
			if resolved, ok := other.PartnerRequests.LatestResolved(s.ID, mirrorDir, entry.CreatedAt); ok {
				if _, err := s.PartnerRequests.Resolve(entry.ID, resolved.Status); err != nil {
					return err
				}
				r.touch(selfRef, "adopted outcome of partner request "+entry.ID)
				if resolved.Status == ledger.StatusAccepted {
					svc.linkPartners(r, s, other)
				}
				continue
			}
			if entry.Direction == ledger.Sent && !hasCopy(other.PartnerRequests, s.ID, mirrorDir, entry) {
				if _, err := other.PartnerRequests.Add(s.ID, entry.Message, ledger.Received); err != nil {
					return err
				}
				r.touch(otherRef, "restored received copy of partner request "+entry.ID)
			}

		default:
			// a pending copy on both sides is a newer live request, not drift
			if _, live := s.PartnerRequests.FindPending(other.ID, entry.Direction); !live {
				if _, err := other.PartnerRequests.ResolveMirror(s.ID, mirrorDir, entry.Status); err == nil {
					r.touch(otherRef, "resolved counterpart copy of partner request "+entry.ID)
				}
			}
			if entry.Status == ledger.StatusAccepted {
				svc.linkPartners(r, s, other)
			}
		}
	}

	for _, id := range s.Partners {
		other, err := svc.otherStudent(ctx, r, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return errors.Wrap(err, "getting partner")
		}
		svc.linkPartners(r, s, other)
	}
	return nil
}

// linkPartners makes a and b partners of each other where the partner limit allows it.
func (svc *Service) linkPartners(r *repair, a, b *student.Student) {
	link := func(x, y *student.Student) {
		if x.HasPartner(y.ID) {
			return
		}
		if x.AtCapacity() {
			svc.logger.Warn("cannot restore partner link, partner limit reached", map[string]interface{}{
				"student": x.ID,
				"partner": y.ID,
			})
			return
		}
		x.AddPartner(y.ID)
		r.touch("student:"+x.ID, "linked partner "+y.ID+" to "+x.ID)
	}
	link(a, b)
	link(b, a)
}

func (svc *Service) reconcileIncharges(ctx context.Context, r *repair) error {
	s := r.self
	selfRef := "student:" + s.ID
	for _, entry := range s.InchargeRequests {
		t, err := svc.otherTeacher(ctx, r, entry.Counterpart)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return errors.Wrap(err, "getting teacher")
		}
		teacherRef := "teacher:" + t.ID

		if !entry.IsPending() {
			if _, live := s.InchargeRequests.FindPending(t.ID, ledger.Sent); live {
				continue
			}
			if _, err := t.InchargeRequests.ResolveMirror(s.ID, ledger.Received, entry.Status); err == nil {
				r.touch(teacherRef, "resolved teacher copy of incharge request "+entry.ID)
			}
			continue
		}
		if _, ok := t.InchargeRequests.FindPending(s.ID, ledger.Received); ok {
			continue
		}
		if resolved, ok := t.InchargeRequests.LatestResolved(s.ID, ledger.Received, entry.CreatedAt); ok {
			if _, err := s.InchargeRequests.Resolve(entry.ID, resolved.Status); err != nil {
				return err
			}
			if err := s.InchargeRequests.Update(entry.ID, func(req *ledger.Request) {
				req.Response = resolved.Response
				req.ProjectID = resolved.ProjectID
			}); err != nil {
				return errors.Wrap(err, "adopting incharge outcome")
			}
			r.touch(selfRef, "adopted outcome of incharge request "+entry.ID)
			continue
		}
		if !hasCopy(t.InchargeRequests, s.ID, ledger.Received, entry) {
			if _, err := t.InchargeRequests.Add(s.ID, entry.Message, ledger.Received); err != nil {
				return err
			}
			r.touch(teacherRef, "restored teacher copy of incharge request "+entry.ID)
		}
	}
	return nil
}

// reconcileProject makes the student's project reference match the project that lists them.
func (svc *Service) reconcileProject(ctx context.Context, r *repair) error {
	s := r.self
	selfRef := "student:" + s.ID

	if s.HasProject() {
		p, err := svc.projects.Get(ctx, s.Project)
		switch {
		case err == nil && p.HasStudent(s.ID):
			return nil
		case err == nil || core.IsNotFound(err):
			r.touch(selfRef, "cleared dangling project "+s.Project)
			s.Project = ""
		default:
			return errors.Wrap(err, "getting project")
		}
	}

	listing, _, err := svc.projects.Query(ctx, project.Filter{Student: s.ID}, core.Page{})
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if len(listing) == 0 {
		return nil
	}
	if len(listing) > 1 {
		svc.logger.Warn("student listed by several projects", map[string]interface{}{"student": s.ID, "projects": len(listing)})
	}
	s.Project = listing[0].ID
	r.touch(selfRef, "linked project "+s.Project)
	return nil
}

func (svc *Service) flush(ctx context.Context, r *repair) error {
	for id, s := range r.students {
		if !r.dirty["student:"+id] {
			continue
		}
		saved, err := svc.students.Save(ctx, *s)
		if err != nil {
			return errors.Wrapf(err, "saving student %s", id)
		}
		*s = saved
	}
	for id, t := range r.teachers {
		if !r.dirty["teacher:"+id] {
			continue
		}
		if _, err := svc.teachers.Save(ctx, *t); err != nil {
			return errors.Wrapf(err, "saving teacher %s", id)
		}
	}
	return nil
}
