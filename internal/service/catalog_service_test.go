package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
	"github.com/noah-isme/agape-api/internal/repository"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
)

type fakeCatalog struct {
	projects  map[string]models.Project
	classes   map[string]models.ClassDetail
	roster    []models.RosterRow
	createErr error
	copied    []int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{projects: map[string]models.Project{}, classes: map[string]models.ClassDetail{}}
}

func (f *fakeCatalog) List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, int, error) {
	var out []models.ProjectSummary
	for _, p := range f.projects {
		out = append(out, models.ProjectSummary{Project: p})
	}
	return out, len(out), nil
}

func (f *fakeCatalog) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := f.projects[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for _, p := range f.projects {
		if p.Name == name && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) CreateWithClasses(ctx context.Context, project *models.Project, classes []models.Class) error {
	if f.createErr != nil {
		return f.createErr
	}
	project.ID = "p" + string(rune('0'+len(f.projects)))
	f.projects[project.ID] = *project
	for i := range classes {
		classes[i].ProjectID = project.ID
		classes[i].ID = project.ID + "-c" + string(rune('0'+i))
		f.classes[classes[i].ID] = models.ClassDetail{Class: classes[i], ProjectName: project.Name}
	}
	return nil
}

func (f *fakeCatalog) Update(ctx context.Context, project *models.Project) error {
	f.projects[project.ID] = *project
	return nil
}

func (f *fakeCatalog) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := f.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.projects, id)
	for cid, c := range f.classes {
		if c.ProjectID == id {
			delete(f.classes, cid)
		}
	}
	return nil
}

func (f *fakeCatalog) ListByProject(ctx context.Context, projectID string) ([]models.ClassDetail, error) {
	var out []models.ClassDetail
	for _, c := range f.classes {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeClassRepo struct{ *fakeCatalog }

func (f fakeClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	out, _ := f.ListByProject(ctx, filter.ProjectID)
	return out, len(out), nil
}

func (f fakeClassRepo) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := f.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeClassRepo) CountByProjectYear(ctx context.Context, projectID string, year int) (int, error) {
	count := 0
	for _, c := range f.classes {
		if c.ProjectID == projectID && c.SchoolYear == year {
			count++
		}
	}
	return count, nil
}

func (f fakeClassRepo) Create(ctx context.Context, class *models.Class) error {
	class.ID = "new-class"
	f.classes[class.ID] = models.ClassDetail{Class: *class}
	return nil
}

func (f fakeClassRepo) Update(ctx context.Context, class *models.Class) error {
	current := f.classes[class.ID]
	current.Class = *class
	f.classes[class.ID] = current
	return nil
}

func (f fakeClassRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := f.classes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.classes, id)
	return nil
}

func (f fakeClassRepo) CopyYear(ctx context.Context, projectID string, fromYear, toYear int) ([]models.Class, error) {
	f.copied = append(f.copied, fromYear, toYear)
	var out []models.Class
	for _, c := range f.classes {
		if c.ProjectID == projectID && c.SchoolYear == fromYear {
			clone := c.Class
			clone.ID = c.ID + "-copy"
			clone.SchoolYear = toYear
			out = append(out, clone)
		}
	}
	return out, nil
}

func (f fakeClassRepo) Roster(ctx context.Context, classID string) ([]models.RosterRow, error) {
	return f.roster, nil
}

func intPtr(v int) *int { return &v }

func validProjectRequest() dto.ProjectCreateRequest {
	pay := 850.0
	return dto.ProjectCreateRequest{
		Name:       "Futebol",
		Location:   "Quadra do bairro",
		SchoolYear: 2025,
		Instructor: dto.InstructorInput{Name: "Carlos", CPF: "111.222.333-44", BirthDate: "1980-06-15", Paid: true, Compensation: &pay},
		Classes: []dto.ClassInput{
			{Schedule: "Ter e Qui 14h"},
			{Name: "Avançada", Schedule: "Sáb 9h", TotalSlots: intPtr(20), Instructor: &dto.InstructorInput{Name: "Bia", CPF: "555"}},
		},
	}
}

func newProjectServiceForTest(catalog *fakeCatalog) *ProjectService {
	svc := NewProjectService(catalog, catalog, nil, nil, nil)
	svc.now = fixedClock
	return svc
}

func TestProjectCreateResolvesClassDefaults(t *testing.T) {
	catalog := newFakeCatalog()
	svc := newProjectServiceForTest(catalog)

	overview, err := svc.Create(context.Background(), validProjectRequest())
	require.NoError(t, err)
	require.Len(t, overview.Classes, 2)

	first := catalog.classes[overview.Project.ID+"-c0"]
	assert.Equal(t, "Turma 1", first.Name)
	assert.Equal(t, 15, first.TotalSlots)
	assert.Equal(t, 2025, first.SchoolYear)
	assert.Equal(t, "Carlos", first.InstructorName)
	require.NotNil(t, first.InstructorCompensation)
	assert.Equal(t, 850.0, *first.InstructorCompensation)
	assert.Equal(t, 44, *first.InstructorAge(fixedNow))

	second := catalog.classes[overview.Project.ID+"-c1"]
	assert.Equal(t, "Avançada", second.Name)
	assert.Equal(t, "Bia", second.InstructorName)
	assert.Equal(t, 20, second.TotalSlots)
	assert.True(t, second.InstructorPaid)
}

func TestProjectCreateReportsEveryProblem(t *testing.T) {
	catalog := newFakeCatalog()
	svc := newProjectServiceForTest(catalog)

	req := dto.ProjectCreateRequest{
		Classes: []dto.ClassInput{{TotalSlots: intPtr(0), Instructor: &dto.InstructorInput{BirthDate: "1900-01-01"}}},
	}
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, []string{
		"name", "location",
		"classes[0].schedule", "classes[0].total_slots",
		"classes[0].instructor.name", "classes[0].instructor.cpf", "classes[0].instructor.birth_date",
	}, appErrors.FromError(err).Fields)
	assert.Empty(t, catalog.projects)
}

func TestProjectCreateRejectsTakenName(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.projects["p0"] = models.Project{ID: "p0", Name: "Futebol"}
	svc := newProjectServiceForTest(catalog)

	_, err := svc.Create(context.Background(), validProjectRequest())
	assert.ErrorIs(t, err, appErrors.ErrProjectNameTaken)

	catalog = newFakeCatalog()
	catalog.createErr = repository.ErrUniqueViolation
	_, err = newProjectServiceForTest(catalog).Create(context.Background(), validProjectRequest())
	assert.ErrorIs(t, err, appErrors.ErrProjectNameTaken)
}

func TestProjectOverviewStatus(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.projects["p1"] = models.Project{ID: "p1", Name: "Música"}
	catalog.classes["c1"] = models.ClassDetail{Class: models.Class{ID: "c1", ProjectID: "p1", Name: "Coral", TotalSlots: 2}, Enrolled: 2}
	svc := newProjectServiceForTest(catalog)

	overview, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, overview.Classes, 1)
	assert.Equal(t, dto.ClassStatusFull, overview.Classes[0].Status)
	assert.Zero(t, overview.Classes[0].Available)
	assert.Nil(t, overview.Classes[0].InstructorAge)

	_, err = svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestProjectUpdateKeepsNameUnique(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.projects["p1"] = models.Project{ID: "p1", Name: "Música"}
	catalog.projects["p2"] = models.Project{ID: "p2", Name: "Futebol"}
	svc := newProjectServiceForTest(catalog)

	_, err := svc.Update(context.Background(), "p1", dto.ProjectUpdateRequest{Name: "Futebol", Location: "Salão"})
	assert.ErrorIs(t, err, appErrors.ErrProjectNameTaken)

	project, err := svc.Update(context.Background(), "p1", dto.ProjectUpdateRequest{Name: "Música", Location: "Salão"})
	require.NoError(t, err)
	assert.Equal(t, "Salão", project.Location)
}

func newClassServiceForTest(catalog *fakeCatalog) *ClassService {
	svc := NewClassService(fakeClassRepo{catalog}, catalog, nil, nil, nil)
	svc.now = fixedClock
	return svc
}

func TestClassUpdateCannotShrinkBelowEnrollments(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.classes["c1"] = models.ClassDetail{Class: models.Class{ID: "c1", ProjectID: "p1", SchoolYear: 2025, TotalSlots: 15}, Enrolled: 10}
	svc := newClassServiceForTest(catalog)

	req := dto.ClassUpdateRequest{
		Name: "Turma A", SchoolYear: 2025, Schedule: "Seg 10h", TotalSlots: 9,
		Instructor: dto.InstructorInput{Name: "Carlos", CPF: "111"},
	}
	_, err := svc.Update(context.Background(), "c1", req)
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	req.TotalSlots = 10
	class, err := svc.Update(context.Background(), "c1", req)
	require.NoError(t, err)
	assert.Equal(t, 10, class.TotalSlots)
	assert.Equal(t, "p1", class.ProjectID)
}

func TestClassOpenRequiresProject(t *testing.T) {
	catalog := newFakeCatalog()
	svc := newClassServiceForTest(catalog)

	_, err := svc.Open(context.Background(), "ghost", dto.ClassInput{Schedule: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	catalog.projects["p1"] = models.Project{ID: "p1"}
	class, err := svc.Open(context.Background(), "p1", dto.ClassInput{Schedule: "Seg 10h", Instructor: &dto.InstructorInput{Name: "Ana", CPF: "1"}})
	require.NoError(t, err)
	assert.Equal(t, 2025, class.SchoolYear)
	assert.Equal(t, "Turma 1", class.Name)
}

func TestClassReoffer(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.projects["p1"] = models.Project{ID: "p1"}
	catalog.classes["c1"] = models.ClassDetail{Class: models.Class{ID: "c1", ProjectID: "p1", SchoolYear: 2024, TotalSlots: 15}, Enrolled: 12}
	svc := newClassServiceForTest(catalog)

	_, err := svc.Reoffer(context.Background(), "p1", dto.ReofferRequest{FromYear: 2023, ToYear: 2025})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	copies, err := svc.Reoffer(context.Background(), "p1", dto.ReofferRequest{FromYear: 2024, ToYear: 2025})
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, 2025, copies[0].SchoolYear)

	catalog.classes["c2"] = models.ClassDetail{Class: models.Class{ID: "c2", ProjectID: "p1", SchoolYear: 2026}}
	_, err = svc.Reoffer(context.Background(), "p1", dto.ReofferRequest{FromYear: 2024, ToYear: 2026})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Reoffer(context.Background(), "p1", dto.ReofferRequest{FromYear: 2024, ToYear: 2024})
	assert.Equal(t, []string{"to_year"}, appErrors.FromError(err).Fields)
}

func TestClassRosterDefaultsAndCSV(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.classes["c1"] = models.ClassDetail{Class: models.Class{ID: "c1", Name: "Turma A", SchoolYear: 2025}, ProjectName: "Futebol"}
	withGuardian := forms.NewDocument()
	withGuardian.Set("nome_resp1", forms.Text("Maria"))
	withGuardian.Set("contato_resp1", forms.Text("9999-0000"))
	catalog.roster = []models.RosterRow{
		{EnrollmentID: "e1", StudentName: "Ana", Active: true, RegistrationData: *withGuardian, EnrolledOn: fixedNow},
		{EnrollmentID: "e2", StudentName: "Bruno", Active: false, RegistrationData: *forms.NewDocument(), EnrolledOn: fixedNow},
	}
	svc := newClassServiceForTest(catalog)

	roster, err := svc.Roster(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, roster.Students, 2)
	assert.Equal(t, "Ativo", roster.Students[0].Status)
	assert.Equal(t, "9999-0000", roster.Students[0].GuardianContact)
	assert.Equal(t, "Inativo", roster.Students[1].Status)
	assert.Equal(t, "N/A", roster.Students[1].GuardianContact)

	payload, name, err := svc.RosterCSV(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "chamada_futebol_turma_a_2025.csv", name)
	body := string(bytes.TrimPrefix(payload, []byte("\ufeff")))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Aluno;Status;Responsável;Contato;Matriculado em", lines[0])
	assert.Equal(t, "Ana;Ativo;Maria;9999-0000;10/03/2025", lines[1])
}

func TestClassDelete(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.classes["c1"] = models.ClassDetail{Class: models.Class{ID: "c1"}}
	svc := newClassServiceForTest(catalog)

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "c1"), appErrors.ErrNotFound)
}
