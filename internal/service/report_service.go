package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agape-api/internal/dto"
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/models"
	appErrors "github.com/noah-isme/agape-api/pkg/errors"
	"github.com/noah-isme/agape-api/pkg/export"
)

const (
	annualReportTitle = "Relatório Anual - Ágape Missões Urbanas"
	minReportYear     = 2000
	maxReportYear     = 2100
)

type reportTotalsRepository interface {
	AnnualTotals(ctx context.Context, year int) (models.AnnualTotals, error)
}

type reportClassRepository interface {
	ListByYear(ctx context.Context, year int) ([]models.ClassDetail, error)
	RostersByYear(ctx context.Context, year int) ([]models.RosterRow, error)
}

type reportStudentRepository interface {
	ListAll(ctx context.Context, activeOnly bool) ([]models.Student, error)
}

type reportStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, int64, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string) (subject, relPath string, expiresAt time.Time, err error)
}

// ReportServiceConfig governs archived report links and retention.
type ReportServiceConfig struct {
	DownloadBaseURL string
	Retention       time.Duration
}

// ReportDownload is an archived report opened for streaming.
type ReportDownload struct {
	File      *os.File
	Size      int64
	FileName  string
	ExpiresAt time.Time
}

// ReportService builds the annual report and manages its archived copies.
type ReportService struct {
	totals   reportTotalsRepository
	classes  reportClassRepository
	students reportStudentRepository
	storage  reportStorage
	signer   reportSigner
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReportServiceConfig
	now      func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(totals reportTotalsRepository, classes reportClassRepository, students reportStudentRepository, storage reportStorage, signer reportSigner, metrics *MetricsService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	cfg.DownloadBaseURL = strings.TrimRight(cfg.DownloadBaseURL, "/")
	return &ReportService{
		totals:   totals,
		classes:  classes,
		students: students,
		storage:  storage,
		signer:   signer,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *ReportService) pruneArchives() error {
	if s.storage == nil {
		return nil
	}
	removed, err := s.storage.CleanupOlderThan(s.cfg.Retention)
	if err != nil {
		return fmt.Errorf("prune archived reports: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Info("pruned archived reports", zap.Strings("files", removed))
	}
	return nil
}

// Annual collects the content of the yearly report. A zero year means the current one.
func (s *ReportService) Annual(ctx context.Context, year int) (*dto.AnnualReport, error) {
	if year == 0 {
		year = s.now().Year()
	}
	if year < minReportYear || year > maxReportYear {
		return nil, appErrors.Validation(invalidFieldsPrefix, []string{"year"})
	}

	totals, err := s.totals.AnnualTotals(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "load annual totals")
	}
	classes, err := s.classes.ListByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "load classes of the year")
	}
	rosters, err := s.classes.RostersByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "load rosters of the year")
	}
	students, err := s.students.ListAll(ctx, true)
	if err != nil {
		return nil, appErrors.Internal(err, "load active students")
	}

	byClass := make(map[string][]dto.RollLine, len(classes))
	for _, row := range rosters {
		byClass[row.ClassID] = append(byClass[row.ClassID], dto.RollLine{
			StudentName:     row.StudentName,
			GuardianName:    docText(&row.RegistrationData, guardianNameKey),
			GuardianContact: docText(&row.RegistrationData, guardianPhoneKey),
		})
	}

	report := &dto.AnnualReport{
		Year:        year,
		GeneratedAt: s.now(),
		Totals:      totals,
		Sections:    make([]dto.ReportSection, 0, len(classes)),
		Sheets:      make([]dto.StudentSheet, 0, len(students)),
	}
	for _, class := range classes {
		report.Sections = append(report.Sections, dto.ReportSection{
			ProjectName:        class.ProjectName,
			ProjectDescription: orNotInformed(class.ProjectDescription),
			ProjectLocation:    orNotInformed(class.ProjectLocation),
			ClassName:          class.Name,
			Schedule:           class.Schedule,
			InstructorName:     orNotInformed(class.InstructorName),
			Roll:               byClass[class.ID],
		})
	}
	for i := range students {
		report.Sheets = append(report.Sheets, studentSheet(&students[i]))
	}
	return report, nil
}

func studentSheet(st *models.Student) dto.StudentSheet {
	doc := &st.RegistrationData
	street := export.JoinOr([]string{doc.Text("endereco"), doc.Text("numero")}, ", ", "")
	school := docText(doc, "nome_escola")
	if period := doc.Text("periodo"); period != "" {
		school += " (" + period + ")"
	}
	sheet := dto.StudentSheet{
		Name:            st.FullName,
		CPF:             orNotInformed(st.CPF),
		Address:         export.JoinOr([]string{street, doc.Text("bairro")}, " - ", forms.NotInformed),
		School:          school,
		Vulnerabilities: docText(doc, "vulnerabilidades"),
		Medication:      docText(doc, "medicacao_continua"),
	}
	if !st.BirthDate.IsZero() {
		sheet.BirthDate = st.BirthDate.Format("02/01/2006")
	} else {
		sheet.BirthDate = forms.NotInformed
	}
	return sheet
}

func docText(doc *forms.Document, key string) string {
	v, ok := doc.Get(key)
	if !ok || v.IsEmpty() {
		return forms.NotInformed
	}
	return v.Display()
}

func orNotInformed(s string) string {
	if strings.TrimSpace(s) == "" {
		return forms.NotInformed
	}
	return s
}

// AnnualPDF renders the yearly report and returns the document with its file name.
func (s *ReportService) AnnualPDF(ctx context.Context, year int) ([]byte, string, error) {
	start := time.Now()
	report, err := s.Annual(ctx, year)
	if err != nil {
		return nil, "", err
	}
	data, err := renderAnnualReport(report)
	if err != nil {
		return nil, "", appErrors.Internal(err, "render annual report")
	}
	s.metrics.ObserveReport("annual", time.Since(start))
	s.logger.Info("annual report generated", zap.Int("year", report.Year), zap.Int("sections", len(report.Sections)), zap.Int("sheets", len(report.Sheets)))
	return data, annualFileName(report.Year), nil
}

func annualFileName(year int) string {
	return fmt.Sprintf("Relatorio_Agape_%d.pdf", year)
}

func renderAnnualReport(report *dto.AnnualReport) ([]byte, error) {
	doc := export.NewPDFDocument(annualReportTitle, report.GeneratedAt)

	doc.AddPage()
	doc.Heading(fmt.Sprintf("Estatísticas Gerais - Ano Letivo %d", report.Year))
	doc.Field("Total de Alunos Cadastrados na Base (Ativos)", strconv.Itoa(report.Totals.ActiveStudents))
	doc.Field("Total de Alunos Diferentes Matriculados neste Ano", strconv.Itoa(report.Totals.StudentsEnrolled))
	doc.Field("Total de Turmas Abertas neste Ano", strconv.Itoa(report.Totals.ClassesOpened))
	doc.Field("Total de Matrículas (Vagas ocupadas)", strconv.Itoa(report.Totals.Enrollments))

	if len(report.Sections) == 0 {
		doc.AddPage()
		doc.Heading("Nenhuma turma cadastrada para este ano letivo.")
	}
	for _, section := range report.Sections {
		doc.AddPage()
		doc.Heading("Projeto: " + section.ProjectName)
		doc.Field("Descrição", section.ProjectDescription)
		doc.Field("Local", section.ProjectLocation)
		doc.Spacer(3)
		doc.Subheading(fmt.Sprintf("Turma: %s | Horário: %s", section.ClassName, section.Schedule))
		doc.Field("Professor(a)", section.InstructorName)
		doc.Spacer(3)
		doc.Subheading("Lista de Chamada (Alunos Matriculados):")
		if len(section.Roll) == 0 {
			doc.Paragraph("Nenhum aluno matriculado nesta turma.")
			continue
		}
		lines := make([]string, 0, len(section.Roll))
		for _, line := range section.Roll {
			lines = append(lines, fmt.Sprintf("%s | Resp: %s | Contato: %s", line.StudentName, line.GuardianName, line.GuardianContact))
		}
		doc.Numbered(lines)
	}

	if len(report.Sheets) > 0 {
		doc.AddPage()
		doc.Heading("Fichas Cadastrais - Todos os Alunos Ativos")
		for _, sheet := range report.Sheets {
			doc.Subheading("Nome: " + sheet.Name)
			doc.Paragraph(fmt.Sprintf("Data Nasc.: %s | CPF: %s", sheet.BirthDate, sheet.CPF))
			doc.Field("Endereço", sheet.Address)
			doc.Field("Escola", sheet.School)
			doc.Field("Vulnerabilidades Mapeadas", sheet.Vulnerabilities)
			doc.Field("Saúde", "Medicação Contínua: "+sheet.Medication)
			doc.Divider()
		}
	}
	return doc.Bytes()
}

// Archive stores the yearly report and returns a signed, expiring link to it.
// Archived files past the retention period are pruned once the new file is stored.
func (s *ReportService) Archive(ctx context.Context, year int) (*dto.ArchivedReport, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "report archiving is not configured")
	}
	data, fileName, err := s.AnnualPDF(ctx, year)
	if err != nil {
		return nil, err
	}

	stamp := s.now().UTC().Format("20060102T150405")
	relPath := path.Join("annual", strings.TrimSuffix(fileName, ".pdf")+"_"+stamp+".pdf")
	if _, err := s.storage.Save(relPath, data); err != nil {
		return nil, appErrors.Internal(err, "store annual report")
	}
	subject := strings.TrimSuffix(strings.TrimPrefix(fileName, "Relatorio_Agape_"), ".pdf")
	token, expiresAt, err := s.signer.Generate("annual-"+subject, relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "sign report link")
	}

	if err := s.pruneArchives(); err != nil {
		s.logger.Warn("failed to prune archived reports", zap.Error(err))
	}

	return &dto.ArchivedReport{
		FileName:  fileName,
		URL:       s.cfg.DownloadBaseURL + "/" + token,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenArchived validates a signed token and opens the archived file it names.
func (s *ReportService) OpenArchived(ctx context.Context, token string) (*ReportDownload, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report archive not available")
	}
	_, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, size, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archived report not found")
		}
		return nil, appErrors.Internal(err, "open archived report")
	}
	name := path.Base(relPath)
	if i := strings.LastIndex(name, "_"); i > 0 {
		name = name[:i] + ".pdf"
	}
	return &ReportDownload{File: file, Size: size, FileName: name, ExpiresAt: expiresAt}, nil
}
