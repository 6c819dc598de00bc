package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/repositories"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/report"
)

// fieldErrors collects per-field problems and turns them into one validation error.
type fieldErrors map[string]interface{}

func (f fieldErrors) add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	if len(f) == 1 {
		for field, msg := range f {
			return apperrors.NewValidationError(fmt.Sprintf("%s: %v", field, msg), f)
		}
	}
	return apperrors.NewValidationError("validation failed", f)
}

func validateAcademicYear(_ context.Context, y, _ *models.AcademicYear) error {
	errs := fieldErrors{}
	y.Name = strings.TrimSpace(y.Name)
	if y.Name == "" {
		errs.add("name", "is required")
	}
	switch {
	case y.StartDate.IsZero():
		errs.add("startDate", "is required")
	case y.EndDate.IsZero():
		errs.add("endDate", "is required")
	case !y.EndDate.After(y.StartDate.Time):
		errs.add("endDate", "must be after startDate")
	}

	regStart, regEnd := y.RegistrationStart, y.RegistrationEnd
	if regStart != nil && regStart.IsZero() {
		regStart, y.RegistrationStart = nil, nil
	}
	if regEnd != nil && regEnd.IsZero() {
		regEnd, y.RegistrationEnd = nil, nil
	}
	if regStart != nil && regEnd != nil && regEnd.Before(regStart.Time) {
		errs.add("registrationEnd", "must not be before registrationStart")
	}
	if regEnd != nil && !y.EndDate.IsZero() && regEnd.After(y.EndDate.Time) {
		errs.add("registrationEnd", "must not be after endDate")
	}
	return errs.err()
}

// holidayValidator also checks that the holiday lies inside its academic year.
func holidayValidator(years Store[models.AcademicYear]) func(context.Context, *models.Holiday, *models.Holiday) error {
	return func(ctx context.Context, h, _ *models.Holiday) error {
		errs := fieldErrors{}
		switch {
		case h.StartDate.IsZero():
			errs.add("startDate", "is required")
		case h.EndDate.IsZero():
			errs.add("endDate", "is required")
		case h.EndDate.Before(h.StartDate.Time):
			errs.add("endDate", "must not be before startDate")
		}
		if err := errs.err(); err != nil {
			return err
		}

		year, err := years.GetByID(ctx, h.AcademicYearID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrResourceNotFound) {
				errs.add("academicYearId", "academic year does not exist")
				return errs.err()
			}
			return err
		}
		if h.StartDate.Before(year.StartDate.Time) || h.EndDate.After(year.EndDate.Time) {
			errs.add("startDate", fmt.Sprintf("holiday must lie within %s (%s - %s)", year.Name, year.StartDate, year.EndDate))
		}
		return errs.err()
	}
}

func validateGuardian(_ context.Context, g, _ *models.Guardian) error {
	errs := fieldErrors{}
	if g.IsEmergencyContact && strings.TrimSpace(g.EmergencyContactPhone) == "" {
		errs.add("emergencyContactPhone", "is required for an emergency contact")
	}
	return errs.err()
}

func validateStudentGroup(_ context.Context, g, existing *models.StudentGroup) error {
	if existing != nil {
		// the repository repeats this under the group row lock
		if err := repositories.CapacityCovers(g.Capacity, existing.EnrolledCount); err != nil {
			return err
		}
	}
	errs := fieldErrors{}
	if g.StartDate != nil && g.EndDate != nil && !g.StartDate.IsZero() && !g.EndDate.IsZero() &&
		g.EndDate.Before(g.StartDate.Time) {
		errs.add("endDate", "must not be before startDate")
	}
	if g.InstructorID != nil && *g.InstructorID <= 0 {
		g.InstructorID = nil
	}
	return errs.err()
}

func validateStudent(_ context.Context, s, _ *models.Student) error {
	s.StudentNumber = strings.TrimSpace(s.StudentNumber)
	if s.StudentNumber == "" {
		return fieldErrors{"studentNumber": "is required"}.err()
	}
	return nil
}

func validateAttendance(_ context.Context, a, _ *models.AttendanceRecord) error {
	if a.Date.IsZero() {
		return fieldErrors{"date": "is required"}.err()
	}
	return nil
}

func validateGrade(_ context.Context, g, _ *models.Grade) error {
	errs := fieldErrors{}
	if g.Score < 0 || g.Score > 10 {
		errs.add("score", "must be between 0 and 10")
	}
	if g.Date.IsZero() {
		errs.add("date", "is required")
	}
	return errs.err()
}

func validateBehavior(_ context.Context, b, _ *models.BehaviorRecord) error {
	if b.Date.IsZero() {
		return fieldErrors{"date": "is required"}.err()
	}
	return nil
}

// validateReportTemplate checks the section keys against the template type.
// An empty list means the defaults of the type.
func validateReportTemplate(_ context.Context, t, _ *models.ReportTemplate) error {
	typ := report.TemplateType(t.Type)
	if len(t.Sections) == 0 {
		t.Sections = report.DefaultSections(typ)
	}
	if err := report.ValidateSections(typ, t.Sections); err != nil {
		return fieldErrors{"sections": err.Error()}.err()
	}
	return nil
}
