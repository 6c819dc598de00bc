package repositories

import (
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

var timestampSorts = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func sorts(extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra)+len(timestampSorts))
	for k, v := range timestampSorts {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// AcademicYearSpec maps academic_years.
func AcademicYearSpec() TableSpec[models.AcademicYear] {
	return TableSpec[models.AcademicYear]{
		Resource: "academic year",
		Table:    "academic_years",
		Columns: []string{"id", "name", "start_date", "end_date", "registration_start", "registration_end",
			"is_active", "created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"name"},
			Filters:      map[string]listing.FilterField{"isActive": {Column: "is_active", Kind: listing.KindBool}},
			Sorts:        sorts(map[string]string{"name": "name", "startDate": "start_date"}),
			DefaultSort:  "start_date",
			DefaultDesc:  true,
		},
		Scan: func(row pgx.Row) (*models.AcademicYear, error) {
			var y models.AcademicYear
			var start, end time.Time
			var regStart, regEnd *time.Time
			if err := row.Scan(&y.ID, &y.Name, &start, &end, &regStart, &regEnd, &y.IsActive, &y.CreatedAt, &y.UpdatedAt); err != nil {
				return nil, err
			}
			y.StartDate, y.EndDate = models.DateOf(start), models.DateOf(end)
			y.RegistrationStart, y.RegistrationEnd = models.DatePtr(regStart), models.DatePtr(regEnd)
			return &y, nil
		},
		Values: func(y *models.AcademicYear) map[string]interface{} {
			return map[string]interface{}{
				"name":               y.Name,
				"start_date":         y.StartDate.Time,
				"end_date":           y.EndDate.Time,
				"registration_start": models.TimeOrNil(y.RegistrationStart),
				"registration_end":   models.TimeOrNil(y.RegistrationEnd),
			}
		},
		ID:          func(y *models.AcademicYear) int64 { return y.ID },
		Constraints: map[string]string{"academic_years_name_key": "an academic year with this name already exists"},
	}
}

// HolidaySpec maps holidays.
func HolidaySpec() TableSpec[models.Holiday] {
	return TableSpec[models.Holiday]{
		Resource: "holiday",
		Table:    "holidays",
		Columns: []string{"id", "name", "start_date", "end_date", "type", "academic_year_id", "description",
			"created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"name", "description"},
			Filters: map[string]listing.FilterField{
				"academicYearId": {Column: "academic_year_id", Kind: listing.KindInt},
				"type":           {Column: "type"},
			},
			Sorts:       sorts(map[string]string{"name": "name", "startDate": "start_date"}),
			DefaultSort: "start_date",
		},
		Scan: func(row pgx.Row) (*models.Holiday, error) {
			var h models.Holiday
			var start, end time.Time
			if err := row.Scan(&h.ID, &h.Name, &start, &end, &h.Type, &h.AcademicYearID, &h.Description, &h.CreatedAt, &h.UpdatedAt); err != nil {
				return nil, err
			}
			h.StartDate, h.EndDate = models.DateOf(start), models.DateOf(end)
			return &h, nil
		},
		Values: func(h *models.Holiday) map[string]interface{} {
			return map[string]interface{}{
				"name":             h.Name,
				"start_date":       h.StartDate.Time,
				"end_date":         h.EndDate.Time,
				"type":             h.Type,
				"academic_year_id": h.AcademicYearID,
				"description":      h.Description,
			}
		},
		ID: func(h *models.Holiday) int64 { return h.ID },
	}
}

// RoomSpec maps rooms.
func RoomSpec() TableSpec[models.Room] {
	return TableSpec[models.Room]{
		Resource: "room",
		Table:    "rooms",
		Columns:  []string{"id", "name", "capacity", "location", "status", "notes", "created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"name", "location", "notes"},
			Filters:      map[string]listing.FilterField{"status": {Column: "status"}},
			Sorts:        sorts(map[string]string{"name": "name", "capacity": "capacity"}),
			DefaultSort:  "name",
		},
		Scan: func(row pgx.Row) (*models.Room, error) {
			var r models.Room
			if err := row.Scan(&r.ID, &r.Name, &r.Capacity, &r.Location, &r.Status, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
				return nil, err
			}
			return &r, nil
		},
		Values: func(r *models.Room) map[string]interface{} {
			status := r.Status
			if status == "" {
				status = models.RoomAvailable
			}
			return map[string]interface{}{
				"name":     r.Name,
				"capacity": r.Capacity,
				"location": r.Location,
				"status":   status,
				"notes":    r.Notes,
			}
		},
		ID:          func(r *models.Room) int64 { return r.ID },
		Constraints: map[string]string{"rooms_name_key": "a room with this name already exists"},
	}
}

// GuardianSpec maps guardians.
func GuardianSpec() TableSpec[models.Guardian] {
	return TableSpec[models.Guardian]{
		Resource: "guardian",
		Table:    "guardians",
		Columns: []string{"id", "first_name", "last_name", "relationship", "email", "phone", "address",
			"is_emergency_contact", "emergency_contact_name", "emergency_contact_phone", "emergency_contact_relation",
			"notes", "created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"first_name", "last_name", "email", "phone"},
			Filters: map[string]listing.FilterField{
				"relationship":       {Column: "relationship"},
				"isEmergencyContact": {Column: "is_emergency_contact", Kind: listing.KindBool},
			},
			Sorts:       sorts(map[string]string{"firstName": "first_name", "lastName": "last_name"}),
			DefaultSort: "last_name",
		},
		Scan: func(row pgx.Row) (*models.Guardian, error) {
			var g models.Guardian
			if err := row.Scan(&g.ID, &g.FirstName, &g.LastName, &g.Relationship, &g.Email, &g.Phone, &g.Address,
				&g.IsEmergencyContact, &g.EmergencyContactName, &g.EmergencyContactPhone, &g.EmergencyContactRelation,
				&g.Notes, &g.CreatedAt, &g.UpdatedAt); err != nil {
				return nil, err
			}
			return &g, nil
		},
		Values: func(g *models.Guardian) map[string]interface{} {
			return map[string]interface{}{
				"first_name":                 g.FirstName,
				"last_name":                  g.LastName,
				"relationship":               g.Relationship,
				"email":                      g.Email,
				"phone":                      g.Phone,
				"address":                    g.Address,
				"is_emergency_contact":       g.IsEmergencyContact,
				"emergency_contact_name":     g.EmergencyContactName,
				"emergency_contact_phone":    g.EmergencyContactPhone,
				"emergency_contact_relation": g.EmergencyContactRelation,
				"notes":                      g.Notes,
			}
		},
		ID: func(g *models.Guardian) int64 { return g.ID },
	}
}

// StudentGroupSpec maps student_groups with the number of active enrollments.
func StudentGroupSpec() TableSpec[models.StudentGroup] {
	return TableSpec[models.StudentGroup]{
		Resource: "student group",
		Table:    "student_groups",
		Columns: []string{"id", "name", "academic_year_id", "program", "instructor_id", "capacity", "is_active",
			"start_date", "end_date", "description",
			"(SELECT COUNT(*) FROM enrollments e WHERE e.group_id = student_groups.id AND e.status = 'active') AS enrolled_count",
			"created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"name", "program", "description"},
			Filters: map[string]listing.FilterField{
				"academicYearId": {Column: "academic_year_id", Kind: listing.KindInt},
				"instructorId":   {Column: "instructor_id", Kind: listing.KindInt},
				"program":        {Column: "program"},
				"isActive":       {Column: "is_active", Kind: listing.KindBool},
			},
			Sorts:       sorts(map[string]string{"name": "name", "capacity": "capacity"}),
			DefaultSort: "name",
		},
		Scan: func(row pgx.Row) (*models.StudentGroup, error) {
			var g models.StudentGroup
			var start, end *time.Time
			if err := row.Scan(&g.ID, &g.Name, &g.AcademicYearID, &g.Program, &g.InstructorID, &g.Capacity, &g.IsActive,
				&start, &end, &g.Description, &g.EnrolledCount, &g.CreatedAt, &g.UpdatedAt); err != nil {
				return nil, err
			}
			g.StartDate, g.EndDate = models.DatePtr(start), models.DatePtr(end)
			return &g, nil
		},
		Values: func(g *models.StudentGroup) map[string]interface{} {
			return map[string]interface{}{
				"name":             g.Name,
				"academic_year_id": g.AcademicYearID,
				"program":          g.Program,
				"instructor_id":    g.InstructorID,
				"capacity":         g.Capacity,
				"is_active":        g.IsActive,
				"start_date":       models.TimeOrNil(g.StartDate),
				"end_date":         models.TimeOrNil(g.EndDate),
				"description":      g.Description,
			}
		},
		ID:          func(g *models.StudentGroup) int64 { return g.ID },
		Constraints: map[string]string{"student_groups_name_year_key": "a group with this name already exists in the academic year"},
	}
}

// StudentSpec maps students.
func StudentSpec() TableSpec[models.Student] {
	return TableSpec[models.Student]{
		Resource: "student",
		Table:    "students",
		Columns: []string{"id", "student_number", "first_name", "last_name", "date_of_birth", "gender", "email",
			"phone", "address", "status", "notes", "created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"student_number", "first_name", "last_name", "email"},
			Filters: map[string]listing.FilterField{
				"status": {Column: "status"},
				"gender": {Column: "gender"},
			},
			Sorts: sorts(map[string]string{
				"studentNumber": "student_number",
				"firstName":     "first_name",
				"lastName":      "last_name",
			}),
			DefaultSort: "last_name",
		},
		Scan: func(row pgx.Row) (*models.Student, error) {
			var s models.Student
			var dob *time.Time
			if err := row.Scan(&s.ID, &s.StudentNumber, &s.FirstName, &s.LastName, &dob, &s.Gender, &s.Email,
				&s.Phone, &s.Address, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
				return nil, err
			}
			s.DateOfBirth = models.DatePtr(dob)
			return &s, nil
		},
		Values: func(s *models.Student) map[string]interface{} {
			status := s.Status
			if status == "" {
				status = models.StudentActive
			}
			return map[string]interface{}{
				"student_number": s.StudentNumber,
				"first_name":     s.FirstName,
				"last_name":      s.LastName,
				"date_of_birth":  models.TimeOrNil(s.DateOfBirth),
				"gender":         s.Gender,
				"email":          s.Email,
				"phone":          s.Phone,
				"address":        s.Address,
				"status":         status,
				"notes":          s.Notes,
			}
		},
		ID:          func(s *models.Student) int64 { return s.ID },
		Constraints: map[string]string{"students_student_number_key": "a student with this student number already exists"},
	}
}

// TeacherSpec maps teachers.
func TeacherSpec() TableSpec[models.Teacher] {
	return TableSpec[models.Teacher]{
		Resource: "teacher",
		Table:    "teachers",
		Columns: []string{"id", "first_name", "last_name", "email", "phone", "specialization", "is_active",
			"created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"first_name", "last_name", "email", "specialization"},
			Filters: map[string]listing.FilterField{
				"isActive":       {Column: "is_active", Kind: listing.KindBool},
				"specialization": {Column: "specialization"},
			},
			Sorts:       sorts(map[string]string{"firstName": "first_name", "lastName": "last_name"}),
			DefaultSort: "last_name",
		},
		Scan: func(row pgx.Row) (*models.Teacher, error) {
			var t models.Teacher
			if err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email, &t.Phone, &t.Specialization, &t.IsActive,
				&t.CreatedAt, &t.UpdatedAt); err != nil {
				return nil, err
			}
			return &t, nil
		},
		Values: func(t *models.Teacher) map[string]interface{} {
			return map[string]interface{}{
				"first_name":     t.FirstName,
				"last_name":      t.LastName,
				"email":          t.Email,
				"phone":          t.Phone,
				"specialization": t.Specialization,
				"is_active":      t.IsActive,
			}
		},
		ID:          func(t *models.Teacher) int64 { return t.ID },
		Constraints: map[string]string{"teachers_email_key": "a teacher with this email already exists"},
	}
}

// EnrollmentSpec maps enrollments.
func EnrollmentSpec() TableSpec[models.Enrollment] {
	return TableSpec[models.Enrollment]{
		Resource: "enrollment",
		Table:    "enrollments",
		Columns:  []string{"id", "student_id", "group_id", "enrolled_at", "status", "created_at", "updated_at"},
		Schema: listing.Schema{
			Filters: map[string]listing.FilterField{
				"studentId": {Column: "student_id", Kind: listing.KindInt},
				"groupId":   {Column: "group_id", Kind: listing.KindInt},
				"status":    {Column: "status"},
			},
			Sorts:       sorts(map[string]string{"enrolledAt": "enrolled_at"}),
			DefaultSort: "enrolled_at",
			DefaultDesc: true,
		},
		Scan: func(row pgx.Row) (*models.Enrollment, error) {
			var e models.Enrollment
			var enrolled time.Time
			if err := row.Scan(&e.ID, &e.StudentID, &e.GroupID, &enrolled, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
				return nil, err
			}
			e.EnrolledAt = models.DateOf(enrolled)
			return &e, nil
		},
		Values:      enrollmentValues,
		ID:          func(e *models.Enrollment) int64 { return e.ID },
		Constraints: map[string]string{"enrollments_student_group_key": "student is already enrolled in this group"},
	}
}

func enrollmentValues(e *models.Enrollment) map[string]interface{} {
	status := e.Status
	if status == "" {
		status = models.EnrollmentActive
	}
	enrolled := e.EnrolledAt
	if enrolled.IsZero() {
		enrolled = models.DateOf(time.Now())
	}
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"group_id":    e.GroupID,
		"enrolled_at": enrolled.Time,
		"status":      status,
	}
}

// AttendanceSpec maps attendance_records.
func AttendanceSpec() TableSpec[models.AttendanceRecord] {
	return TableSpec[models.AttendanceRecord]{
		Resource: "attendance record",
		Table:    "attendance_records",
		Columns:  []string{"id", "student_id", "group_id", "date", "status", "note", "created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"note"},
			Filters: map[string]listing.FilterField{
				"studentId": {Column: "student_id", Kind: listing.KindInt},
				"groupId":   {Column: "group_id", Kind: listing.KindInt},
				"status":    {Column: "status"},
			},
			Sorts:       sorts(map[string]string{"date": "date"}),
			DefaultSort: "date",
			DefaultDesc: true,
		},
		Scan: func(row pgx.Row) (*models.AttendanceRecord, error) {
			var a models.AttendanceRecord
			var day time.Time
			if err := row.Scan(&a.ID, &a.StudentID, &a.GroupID, &day, &a.Status, &a.Note, &a.CreatedAt, &a.UpdatedAt); err != nil {
				return nil, err
			}
			a.Date = models.DateOf(day)
			return &a, nil
		},
		Values: func(a *models.AttendanceRecord) map[string]interface{} {
			return map[string]interface{}{
				"student_id": a.StudentID,
				"group_id":   a.GroupID,
				"date":       a.Date.Time,
				"status":     a.Status,
				"note":       a.Note,
			}
		},
		ID:          func(a *models.AttendanceRecord) int64 { return a.ID },
		Constraints: map[string]string{"attendance_student_group_date_key": "attendance for this student, group and date is already recorded"},
	}
}

// GradeSpec maps grades.
func GradeSpec() TableSpec[models.Grade] {
	return TableSpec[models.Grade]{
		Resource: "grade",
		Table:    "grades",
		Columns: []string{"id", "student_id", "subject", "type", "score", "date", "academic_year_id", "note",
			"created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"subject", "note"},
			Filters: map[string]listing.FilterField{
				"studentId":      {Column: "student_id", Kind: listing.KindInt},
				"academicYearId": {Column: "academic_year_id", Kind: listing.KindInt},
				"subject":        {Column: "subject"},
				"type":           {Column: "type"},
			},
			Sorts:       sorts(map[string]string{"date": "date", "subject": "subject", "score": "score"}),
			DefaultSort: "date",
			DefaultDesc: true,
		},
		Scan: func(row pgx.Row) (*models.Grade, error) {
			var g models.Grade
			var day time.Time
			if err := row.Scan(&g.ID, &g.StudentID, &g.Subject, &g.Type, &g.Score, &day, &g.AcademicYearID, &g.Note,
				&g.CreatedAt, &g.UpdatedAt); err != nil {
				return nil, err
			}
			g.Date = models.DateOf(day)
			return &g, nil
		},
		Values: func(g *models.Grade) map[string]interface{} {
			return map[string]interface{}{
				"student_id":       g.StudentID,
				"subject":          g.Subject,
				"type":             g.Type,
				"score":            g.Score,
				"date":             g.Date.Time,
				"academic_year_id": g.AcademicYearID,
				"note":             g.Note,
			}
		},
		ID: func(g *models.Grade) int64 { return g.ID },
	}
}

// BehaviorSpec maps behavior_records.
func BehaviorSpec() TableSpec[models.BehaviorRecord] {
	return TableSpec[models.BehaviorRecord]{
		Resource: "behavior record",
		Table:    "behavior_records",
		Columns:  []string{"id", "student_id", "date", "category", "description", "created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"description"},
			Filters: map[string]listing.FilterField{
				"studentId": {Column: "student_id", Kind: listing.KindInt},
				"category":  {Column: "category"},
			},
			Sorts:       sorts(map[string]string{"date": "date"}),
			DefaultSort: "date",
			DefaultDesc: true,
		},
		Scan: func(row pgx.Row) (*models.BehaviorRecord, error) {
			var b models.BehaviorRecord
			var day time.Time
			if err := row.Scan(&b.ID, &b.StudentID, &day, &b.Category, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
				return nil, err
			}
			b.Date = models.DateOf(day)
			return &b, nil
		},
		Values: func(b *models.BehaviorRecord) map[string]interface{} {
			return map[string]interface{}{
				"student_id":  b.StudentID,
				"date":        b.Date.Time,
				"category":    b.Category,
				"description": b.Description,
			}
		},
		ID: func(b *models.BehaviorRecord) int64 { return b.ID },
	}
}

// ReportTemplateSpec maps report_templates. Sections are stored as a JSON array.
func ReportTemplateSpec() TableSpec[models.ReportTemplate] {
	return TableSpec[models.ReportTemplate]{
		Resource: "report template",
		Table:    "report_templates",
		Columns:  []string{"id", "name", "type", "description", "sections", "is_default", "created_at", "updated_at"},
		Schema: listing.Schema{
			SearchFields: []string{"name", "description"},
			Filters: map[string]listing.FilterField{
				"type":      {Column: "type"},
				"isDefault": {Column: "is_default", Kind: listing.KindBool},
			},
			Sorts:       sorts(map[string]string{"name": "name"}),
			DefaultSort: "name",
		},
		Scan: func(row pgx.Row) (*models.ReportTemplate, error) {
			var t models.ReportTemplate
			if err := row.Scan(&t.ID, &t.Name, &t.Type, &t.Description, &t.Sections, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt); err != nil {
				return nil, err
			}
			if t.Sections == nil {
				t.Sections = []string{}
			}
			return &t, nil
		},
		Values: func(t *models.ReportTemplate) map[string]interface{} {
			sections := t.Sections
			if sections == nil {
				sections = []string{}
			}
			return map[string]interface{}{
				"name":        t.Name,
				"type":        t.Type,
				"description": t.Description,
				"sections":    sections,
				"is_default":  t.IsDefault,
			}
		},
		ID:          func(t *models.ReportTemplate) int64 { return t.ID },
		Constraints: map[string]string{"report_templates_name_key": "a report template with this name already exists"},
	}
}
