package directory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	profiles ProfileRepository
	staff    StaffRepository
	tx       TxRunner
}

func NewService(profiles ProfileRepository, staff StaffRepository, tx TxRunner) *Service {
	return &Service{profiles: profiles, staff: staff, tx: tx}
}

type RegisterPatientRequest struct {
	NIK   string `json:"nik"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func validNIK(nik string) bool {
	if len(nik) < 6 || len(nik) > 20 {
		return false
	}
	for _, r := range nik {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// -- Patients --

func (s *Service) RegisterPatient(ctx context.Context, req RegisterPatientRequest) (*Profile, error) {
	req.NIK = strings.TrimSpace(req.NIK)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if !validNIK(req.NIK) {
		return nil, apperr.Validation("nik must be 6 to 20 digits")
	}
	if req.Age < 0 || req.Age > 150 {
		return nil, apperr.Validation("age is out of range")
	}
	if req.Email == "" {
		req.Email = PatientEmail(req.NIK)
	}

	p := &Profile{
		Role:  RolePatient,
		Name:  req.Name,
		NIK:   &req.NIK,
		Age:   &req.Age,
		Email: &req.Email,
	}
	if req.Phone != "" {
		p.Phone = &req.Phone
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != RolePatient {
		return nil, apperr.NotFound("patient %s not found", id)
	}
	return p, nil
}

func (s *Service) GetPatientByNIK(ctx context.Context, nik string) (*Profile, error) {
	p, err := s.profiles.GetByNIK(ctx, strings.TrimSpace(nik))
	if err != nil {
		return nil, err
	}
	if p.Role != RolePatient {
		return nil, apperr.NotFound("no patient with NIK %s", nik)
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.profiles.ListByRole(ctx, RolePatient, limit, offset)
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.profiles.CountByRole(ctx, RolePatient)
}

// -- Staff --

func (s *Service) RegisterDoctor(ctx context.Context, name, specialization string) (*Doctor, error) {
	if name == "" || specialization == "" {
		return nil, apperr.Validation("name and specialization are required")
	}
	d := &Doctor{Name: name, Specialization: specialization}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p := &Profile{Role: RoleDoctor, Name: name}
		if err := s.profiles.Create(ctx, p); err != nil {
			return err
		}
		d.ID = p.ID
		return s.staff.CreateDoctor(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.staff.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	return s.staff.ListDoctors(ctx)
}

func (s *Service) CountDoctors(ctx context.Context) (int, error) {
	return s.profiles.CountByRole(ctx, RoleDoctor)
}

func (s *Service) RegisterNurse(ctx context.Context, name string, teamID int) (*Nurse, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if teamID <= 0 {
		return nil, apperr.Validation("team_id must be positive")
	}
	n := &Nurse{Name: name, TeamID: teamID}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p := &Profile{Role: RoleNurse, Name: name}
		if err := s.profiles.Create(ctx, p); err != nil {
			return err
		}
		n.ID = p.ID
		return s.staff.CreateNurse(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) ListNurses(ctx context.Context, teamID int) ([]*Nurse, error) {
	return s.staff.ListNurses(ctx, teamID)
}
