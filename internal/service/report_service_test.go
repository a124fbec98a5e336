package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
	"github.com/noah-isme/agape-api/pkg/storage"
)

type fakeReportSource struct {
	totals   models.AnnualTotals
	classes  []models.ClassDetail
	rosters  []models.RosterRow
	students []models.Student
	years    []int
}

func (f *fakeReportSource) AnnualTotals(ctx context.Context, year int) (models.AnnualTotals, error) {
	f.years = append(f.years, year)
	return f.totals, nil
}

func (f *fakeReportSource) ListByYear(ctx context.Context, year int) ([]models.ClassDetail, error) {
	return f.classes, nil
}

func (f *fakeReportSource) RostersByYear(ctx context.Context, year int) ([]models.RosterRow, error) {
	return f.rosters, nil
}

func (f *fakeReportSource) ListAll(ctx context.Context, activeOnly bool) ([]models.Student, error) {
	return f.students, nil
}

func storedDocument(t *testing.T, raw string) forms.Document {
	t.Helper()
	doc, err := forms.ParseDocument(raw)
	require.NoError(t, err)
	return *doc
}

func reportFixture(t *testing.T) *fakeReportSource {
	full := storedDocument(t, `{"nome_resp1":"Maria","contato_resp1":"(11) 9999-0000","endereco":"Rua A","numero":"10","bairro":"Centro","nome_escola":"EE Sol","periodo":"Manhã","vulnerabilidades":["Insegurança alimentar"],"medicacao_continua":false}`)
	sparse := storedDocument(t, `{"nome_completo":"Bruno"}`)
	return &fakeReportSource{
		totals: models.AnnualTotals{ActiveStudents: 2, StudentsEnrolled: 2, ClassesOpened: 2, Enrollments: 2},
		classes: []models.ClassDetail{
			{Class: models.Class{ID: "c1", Name: "Turma A", Schedule: "Ter 14h", InstructorName: "Carlos"}, ProjectName: "Futebol", ProjectLocation: "Quadra"},
			{Class: models.Class{ID: "c2", Name: "Turma B", Schedule: "Qui 14h"}, ProjectName: "Música", ProjectDescription: "Coral", ProjectLocation: "Salão"},
		},
		rosters: []models.RosterRow{
			{ClassID: "c1", StudentName: "Ana", RegistrationData: full},
			{ClassID: "c1", StudentName: "Bruno", RegistrationData: sparse},
		},
		students: []models.Student{
			{FullName: "Ana", BirthDate: time.Date(2014, 5, 2, 0, 0, 0, 0, time.UTC), CPF: "123", RegistrationData: full},
			{FullName: "Bruno", RegistrationData: sparse},
		},
	}
}

func newReportServiceForTest(t *testing.T, src *fakeReportSource) (*ReportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)
	svc := NewReportService(src, src, src, store, signer, NewMetricsService(), nil, ReportServiceConfig{DownloadBaseURL: "/api/v1/reports/files/"})
	svc.now = fixedClock
	return svc, store
}

func TestAnnualReportModel(t *testing.T) {
	src := reportFixture(t)
	svc, _ := newReportServiceForTest(t, src)

	report, err := svc.Annual(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2025, report.Year)
	assert.Equal(t, []int{2025}, src.years)
	require.Len(t, report.Sections, 2)

	first := report.Sections[0]
	assert.Equal(t, forms.NotInformed, first.ProjectDescription)
	require.Len(t, first.Roll, 2)
	assert.Equal(t, "Maria", first.Roll[0].GuardianName)
	assert.Equal(t, "(11) 9999-0000", first.Roll[0].GuardianContact)
	assert.Equal(t, forms.NotInformed, first.Roll[1].GuardianName)
	assert.Equal(t, forms.NotInformed, first.Roll[1].GuardianContact)

	second := report.Sections[1]
	assert.Empty(t, second.Roll)
	assert.Equal(t, forms.NotInformed, second.InstructorName)

	require.Len(t, report.Sheets, 2)
	ana := report.Sheets[0]
	assert.Equal(t, "02/05/2014", ana.BirthDate)
	assert.Equal(t, "Rua A, 10 - Centro", ana.Address)
	assert.Equal(t, "EE Sol (Manhã)", ana.School)
	assert.Equal(t, "Insegurança alimentar", ana.Vulnerabilities)
	assert.Equal(t, "Não", ana.Medication)
}

func TestAnnualReportFallsBackForMissingKeys(t *testing.T) {
	svc, _ := newReportServiceForTest(t, reportFixture(t))

	report, err := svc.Annual(context.Background(), 2025)
	require.NoError(t, err)
	bruno := report.Sheets[1]
	assert.Equal(t, forms.NotInformed, bruno.BirthDate)
	assert.Equal(t, forms.NotInformed, bruno.CPF)
	assert.Equal(t, forms.NotInformed, bruno.Address)
	assert.Equal(t, forms.NotInformed, bruno.School)
	assert.Equal(t, forms.NotInformed, bruno.Vulnerabilities)
	assert.Equal(t, forms.NotInformed, bruno.Medication)
}

func TestAnnualReportRejectsYearOutOfRange(t *testing.T) {
	svc, _ := newReportServiceForTest(t, reportFixture(t))

	_, err := svc.Annual(context.Background(), 1850)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAnnualPDFRenders(t *testing.T) {
	svc, _ := newReportServiceForTest(t, reportFixture(t))

	data, name, err := svc.AnnualPDF(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, "Relatorio_Agape_2025.pdf", name)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	empty := &fakeReportSource{}
	emptySvc, _ := newReportServiceForTest(t, empty)
	data, _, err = emptySvc.AnnualPDF(context.Background(), 2025)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestArchiveAndOpenThroughSignedLink(t *testing.T) {
	svc, _ := newReportServiceForTest(t, reportFixture(t))

	archived, err := svc.Archive(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, "Relatorio_Agape_2025.pdf", archived.FileName)
	assert.True(t, strings.HasPrefix(archived.URL, "/api/v1/reports/files/annual-2025."))

	download, err := svc.OpenArchived(context.Background(), archived.Token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "Relatorio_Agape_2025.pdf", download.FileName)
	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), download.Size)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))

	_, err = svc.OpenArchived(context.Background(), archived.Token+"x")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestArchivePrunesExpiredFilesInline(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	src := reportFixture(t)
	svc := NewReportService(src, src, src, store, storage.NewSignedURLSigner("report-secret", time.Hour), nil, nil,
		ReportServiceConfig{Retention: 24 * time.Hour})
	svc.now = fixedClock

	_, err = store.Save("annual/Relatorio_Agape_2020_old.pdf", []byte("%PDF-old"))
	require.NoError(t, err)
	stale := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "annual", "Relatorio_Agape_2020_old.pdf"), stale, stale))

	archived, err := svc.Archive(context.Background(), 2025)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "annual", "Relatorio_Agape_2020_old.pdf"))
	assert.True(t, os.IsNotExist(err))
	download, err := svc.OpenArchived(context.Background(), archived.Token)
	require.NoError(t, err)
	download.File.Close()
}

type failingCleanupStorage struct {
	*storage.LocalStorage
}

func (failingCleanupStorage) CleanupOlderThan(time.Duration) ([]string, error) {
	return nil, errors.New("permission denied")
}

func TestArchiveLogsPruneFailureWithoutFailing(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	core, logs := observer.New(zap.WarnLevel)
	src := reportFixture(t)
	svc := NewReportService(src, src, src, failingCleanupStorage{store}, storage.NewSignedURLSigner("report-secret", time.Hour), nil, zap.New(core), ReportServiceConfig{})
	svc.now = fixedClock

	archived, err := svc.Archive(context.Background(), 2025)
	require.NoError(t, err)
	assert.NotEmpty(t, archived.Token)

	entries := logs.FilterMessage("failed to prune archived reports").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "permission denied")
}
