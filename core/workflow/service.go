// Package workflow implements the partner and incharge request lifecycles.
//
// Both sides of a request are stored on their own document, so every transition is two writes
// (see Coordinator) and may leave drift behind, which Reconcile repairs.
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

type Service struct {
	coord    *Coordinator
	mat      *Materializer
	students *student.Service
	teachers *teacher.Service
	projects *project.Service
	mail     core.EmailService // optional
	logger   core.Logger
}

func NewService(
	students *student.Service,
	teachers *teacher.Service,
	projects *project.Service,
	mail core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		coord:    NewCoordinator(logger),
		mat:      NewMaterializer(students, projects),
		students: students,
		teachers: teachers,
		projects: projects,
		mail:     mail,
		logger:   logger,
	}
}

func (svc *Service) studentParty(s *student.Student, l *ledger.Ledger) Party {
	return Party{
		Ref:    "student:" + s.ID,
		ID:     s.ID,
		Ledger: l,
		Save: func(ctx context.Context) error {
			saved, err := svc.students.Save(ctx, *s)
			if err == nil {
				*s = saved
			}
			return err
		},
	}
}

func (svc *Service) teacherParty(t *teacher.Teacher) Party {
	return Party{
		Ref:    "teacher:" + t.ID,
		ID:     t.ID,
		Ledger: &t.InchargeRequests,
		Save: func(ctx context.Context) error {
			saved, err := svc.teachers.Save(ctx, *t)
			if err == nil {
				*t = saved
			}
			return err
		},
	}
}

// receivedEntry returns the pending request id received by the owner of l.
func receivedEntry(l ledger.Ledger, id string) (ledger.Request, error) {
	entry, err := l.Get(id)
	if err != nil {
		return ledger.Request{}, err
	}
	if entry.Direction != ledger.Received {
		return ledger.Request{}, core.NewValidationError(errNotReceived, core.FieldError{Field: "request_id", Error: errNotReceived.Error()})
	}
	if !entry.IsPending() {
		return ledger.Request{}, &ledger.AlreadyResolvedError{RequestID: id, Status: entry.Status}
	}
	return entry, nil
}

// Partner requests

// SendPartnerRequest records a pending partner request from senderID to npr.PartnerID.
// It returns the sender's copy of the request.
func (svc *Service) SendPartnerRequest(ctx context.Context, senderID string, npr NewPartnerRequest) (ledger.Request, error) {
	if npr.PartnerID == senderID {
		return ledger.Request{}, core.NewValidationError(errSelfRequest, core.FieldError{Field: "partner_id", Error: errSelfRequest.Error()})
	}

	sender, err := svc.students.Get(ctx, senderID)
	if err != nil {
		return ledger.Request{}, errors.Wrap(err, "getting sender")
	}
	target, err := svc.students.Get(ctx, npr.PartnerID)
	if err != nil {
		return ledger.Request{}, errors.Wrap(err, "getting partner")
	}

	if sender.HasPartner(target.ID) {
		return ledger.Request{}, core.NewValidationError(errAlreadyPartners, core.FieldError{Field: "partner_id", Error: errAlreadyPartners.Error()})
	}
	if sender.AtCapacity() {
		return ledger.Request{}, &CapacityExceededError{StudentID: sender.ID}
	}
	if target.AtCapacity() {
		return ledger.Request{}, &CapacityExceededError{StudentID: target.ID}
	}
	if req, ok := sender.PartnerRequests.FindPending(target.ID); ok {
		return ledger.Request{}, &ledger.DuplicateRequestError{Counterpart: target.ID, Direction: req.Direction}
	}

	sent, err := sender.PartnerRequests.Add(target.ID, npr.Message, ledger.Sent)
	if err != nil {
		return ledger.Request{}, err
	}
	if _, err := target.PartnerRequests.Add(sender.ID, npr.Message, ledger.Received); err != nil {
		return ledger.Request{}, err
	}

	pair := Pair{
		A: svc.studentParty(&sender, &sender.PartnerRequests),
		B: svc.studentParty(&target, &target.PartnerRequests),
	}
	if err := svc.coord.Persist(ctx, pair, sent.ID); err != nil {
		return sent, err
	}
	return sent, nil
}

// PartnerResponse is the outcome of responding to a partner request.
type PartnerResponse struct {
	Request  ledger.Request   `json:"request"`
	Partners []string         `json:"partners"`
	Project  *project.Project `json:"project,omitempty"`
}

// RespondPartnerRequest resolves a partner request received by responderID.
// Accepting makes both students partners and shares a project either of them already has.
func (svc *Service) RespondPartnerRequest(ctx context.Context, responderID string, rr RespondRequest) (PartnerResponse, error) {
	responder, err := svc.students.Get(ctx, responderID)
	if err != nil {
		return PartnerResponse{}, errors.Wrap(err, "getting responder")
	}
	entry, err := receivedEntry(responder.PartnerRequests, rr.RequestID)
	if err != nil {
		return PartnerResponse{}, err
	}
	sender, err := svc.students.Get(ctx, entry.Counterpart)
	if err != nil {
		return PartnerResponse{}, errors.Wrap(err, "getting sender")
	}

	accept := rr.Status == ledger.StatusAccepted
	if accept && !responder.HasPartner(sender.ID) {
		// both documents were just loaded: counts may have changed since the request was sent
		if responder.AtCapacity() {
			return PartnerResponse{}, &CapacityExceededError{StudentID: responder.ID}
		}
		if sender.AtCapacity() {
			return PartnerResponse{}, &CapacityExceededError{StudentID: sender.ID}
		}
	}

	var shared *project.Project
	pair := Pair{
		A: svc.studentParty(&responder, &responder.PartnerRequests),
		B: svc.studentParty(&sender, &sender.PartnerRequests),
	}
	res, err := svc.coord.Resolve(ctx, pair, entry.ID, rr.Status, func(res Resolution) error {
		if !accept {
			return nil
		}
		responder.AddPartner(sender.ID)
		sender.AddPartner(responder.ID)
		p, err := svc.mat.AttachPartners(ctx, &responder, &sender)
		if err != nil {
			return err
		}
		shared = p
		return nil
	})
	if err != nil {
		if _, ok := err.(*PartialWriteError); !ok {
			return PartnerResponse{}, err
		}
	}
	return PartnerResponse{Request: res.Entry, Partners: responder.Partners, Project: shared}, err
}

// PartnerRequests lists the partner requests of a student, newest first, after repairing drift.
func (svc *Service) PartnerRequests(ctx context.Context, studentID string) (PartnerRequests, error) {
	s, err := svc.Reconcile(ctx, studentID)
	if err != nil {
		return PartnerRequests{}, err
	}

	ids := make([]string, 0, len(s.PartnerRequests))
	for _, req := range s.PartnerRequests {
		ids = appendMissing(ids, req.Counterpart)
	}
	others, err := svc.students.GetMany(ctx, ids)
	if err != nil {
		return PartnerRequests{}, errors.Wrap(err, "getting counterparts")
	}
	summaries := make(map[string]student.Summary, len(others))
	for i := range others {
		summaries[others[i].ID] = others[i].Summary()
	}

	out := PartnerRequests{Sent: []PartnerRequestView{}, Received: []PartnerRequestView{}}
	for _, req := range s.PartnerRequests.Sorted() {
		view := PartnerRequestView{Request: req}
		if sum, ok := summaries[req.Counterpart]; ok {
			view.Student = &sum
		}
		if req.Direction == ledger.Sent {
			out.Sent = append(out.Sent, view)
		} else {
			out.Received = append(out.Received, view)
		}
	}
	return out, nil
}

// Incharge requests

// SendInchargeRequest records a pending request from a projectless student to a teacher
// and notifies the teacher by email. It returns the student's copy of the request.
func (svc *Service) SendInchargeRequest(ctx context.Context, studentID string, nir NewInchargeRequest) (ledger.Request, error) {
	s, err := svc.students.Get(ctx, studentID)
	if err != nil {
		return ledger.Request{}, errors.Wrap(err, "getting student")
	}
	if s.HasProject() {
		return ledger.Request{}, core.NewValidationError(errHasProject, core.FieldError{Field: "teacher_id", Error: errHasProject.Error()})
	}
	partners, err := svc.students.GetMany(ctx, s.Partners)
	if err != nil {
		return ledger.Request{}, errors.Wrap(err, "getting partners")
	}
	for _, p := range partners {
		if p.HasProject() {
			return ledger.Request{}, core.NewValidationError(errPartnerAssigned, core.FieldError{Field: "teacher_id", Error: errPartnerAssigned.Error()})
		}
	}
	t, err := svc.teachers.Get(ctx, nir.TeacherID)
	if err != nil {
		return ledger.Request{}, errors.Wrap(err, "getting teacher")
	}

	sent, err := s.InchargeRequests.Add(t.ID, nir.Message, ledger.Sent)
	if err != nil {
		return ledger.Request{}, err
	}
	if _, err := t.InchargeRequests.Add(s.ID, nir.Message, ledger.Received); err != nil {
		return ledger.Request{}, err
	}

	pair := Pair{A: svc.studentParty(&s, &s.InchargeRequests), B: svc.teacherParty(&t)}
	if err := svc.coord.Persist(ctx, pair, sent.ID); err != nil {
		return sent, err
	}
	svc.notifyInchargeRequest(t, s, nir.Message)
	return sent, nil
}

// InchargeResponse is the outcome of responding to an incharge request.
type InchargeResponse struct {
	Request ledger.Request   `json:"request"`
	Project *project.Project `json:"project,omitempty"`
}

// RespondInchargeRequest resolves an incharge request received by teacherID.
// Accepting attaches the student's partner group to rr.ProjectID, or to a new project.
func (svc *Service) RespondInchargeRequest(ctx context.Context, teacherID string, rr RespondRequest) (InchargeResponse, error) {
	t, err := svc.teachers.Get(ctx, teacherID)
	if err != nil {
		return InchargeResponse{}, errors.Wrap(err, "getting teacher")
	}
	entry, err := receivedEntry(t.InchargeRequests, rr.RequestID)
	if err != nil {
		return InchargeResponse{}, err
	}
	s, err := svc.students.Get(ctx, entry.Counterpart)
	if err != nil {
		return InchargeResponse{}, errors.Wrap(err, "getting student")
	}

	var attached *project.Project
	pair := Pair{A: svc.teacherParty(&t), B: svc.studentParty(&s, &s.InchargeRequests)}
	res, err := svc.coord.Resolve(ctx, pair, entry.ID, rr.Status, func(res Resolution) error {
		if rr.Status == ledger.StatusAccepted {
			p, err := svc.mat.AttachIncharge(ctx, &t, &s, rr.ProjectID)
			if err != nil {
				return err
			}
			attached = &p
		}
		annotate := func(req *ledger.Request) {
			req.Response = rr.Message
			if attached != nil {
				req.ProjectID = attached.ID
			}
		}
		if err := t.InchargeRequests.Update(res.Entry.ID, annotate); err != nil {
			return errors.Wrap(err, "annotating request")
		}
		if res.Mirror != nil {
			if err := s.InchargeRequests.Update(res.Mirror.ID, annotate); err != nil {
				return errors.Wrap(err, "annotating student copy")
			}
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*PartialWriteError); !ok {
			return InchargeResponse{}, err
		}
	}

	req, getErr := t.InchargeRequests.Get(res.Entry.ID)
	if getErr != nil {
		return InchargeResponse{}, errors.Wrap(getErr, "reading resolved request")
	}
	return InchargeResponse{Request: req, Project: attached}, err
}

// InchargeRequests lists the incharge requests sent by a student, newest first.
func (svc *Service) InchargeRequests(ctx context.Context, studentID string) ([]InchargeRequestView, error) {
	s, err := svc.students.Get(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student")
	}
	ids := make([]string, 0, len(s.InchargeRequests))
	for _, req := range s.InchargeRequests {
		ids = appendMissing(ids, req.Counterpart)
	}
	teachers, _, err := svc.teachers.Query(ctx, teacher.Filter{IDs: ids}, core.Page{})
	if err != nil {
		return nil, errors.Wrap(err, "getting teachers")
	}
	summaries := make(map[string]teacher.Summary, len(teachers))
	for i := range teachers {
		summaries[teachers[i].ID] = teachers[i].Summary()
	}

	out := make([]InchargeRequestView, 0, len(s.InchargeRequests))
	for _, req := range s.InchargeRequests.Sorted() {
		view := InchargeRequestView{Request: req}
		if sum, ok := summaries[req.Counterpart]; ok {
			view.Teacher = &sum
		}
		out = append(out, view)
	}
	return out, nil
}

// ReceivedInchargeRequests lists the incharge requests received by a teacher, newest first.
func (svc *Service) ReceivedInchargeRequests(ctx context.Context, teacherID string) ([]ReceivedInchargeRequestView, error) {
	t, err := svc.teachers.Get(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "getting teacher")
	}
	ids := make([]string, 0, len(t.InchargeRequests))
	for _, req := range t.InchargeRequests {
		ids = appendMissing(ids, req.Counterpart)
	}
	students, err := svc.students.GetMany(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting students")
	}
	summaries := make(map[string]student.Summary, len(students))
	for i := range students {
		summaries[students[i].ID] = students[i].Summary()
	}

	out := make([]ReceivedInchargeRequestView, 0, len(t.InchargeRequests))
	for _, req := range t.InchargeRequests.Sorted() {
		view := ReceivedInchargeRequestView{Request: req}
		if sum, ok := summaries[req.Counterpart]; ok {
			view.Student = &sum
		}
		out = append(out, view)
	}
	return out, nil
}

// OpenProject creates a project incharged by teacherID, without students.
func (svc *Service) OpenProject(ctx context.Context, teacherID string, np project.NewProject) (project.Project, error) {
	t, err := svc.teachers.Get(ctx, teacherID)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "getting teacher")
	}
	p, err := svc.projects.Create(ctx, np, t.ID)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "creating project")
	}
	t.AssignProject(p.ID)
	if _, err := svc.teachers.Save(ctx, t); err != nil {
		return project.Project{}, errors.Wrap(err, "saving teacher")
	}
	return p, nil
}
