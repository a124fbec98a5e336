package models

// DashboardTotals are the headline counters of the dashboard for one school year.
type DashboardTotals struct {
	Students       int     `db:"students" json:"students"`
	ActiveStudents int     `db:"active_students" json:"active_students"`
	Projects       int     `db:"projects" json:"projects"`
	Classes        int     `db:"classes" json:"classes"`
	Enrollments    int     `db:"enrollments" json:"enrollments"`
	MonthlyPayroll float64 `db:"monthly_payroll" json:"monthly_payroll"`
}

// AnnualTotals are the counters printed at the top of the annual report.
type AnnualTotals struct {
	ActiveStudents   int `db:"active_students" json:"active_students"`
	StudentsEnrolled int `db:"students_enrolled" json:"students_enrolled"`
	ClassesOpened    int `db:"classes_opened" json:"classes_opened"`
	Enrollments      int `db:"enrollments" json:"enrollments"`
}
