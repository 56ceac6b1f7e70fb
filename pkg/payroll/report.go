package payroll

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/geo"
	"github.com/fieldline-app/fieldline-backend/pkg/schedules"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"golang.org/x/sync/errgroup"
)

// EmployeeSummary is the payroll line of one employee over the report window
type EmployeeSummary struct {
	Employee      string  `json:"employee"`
	SiteHours     float64 `json:"siteHours"`
	DriveHours    float64 `json:"driveHours"`
	QuickLogHours float64 `json:"quickLogHours"`
	Miles         float64 `json:"miles"`
	GrossPay      float64 `json:"grossPay"`
}

// Report is the payroll summary over a window of schedule start dates
type Report struct {
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Employees []EmployeeSummary `json:"employees"`

	TotalHours float64 `json:"totalHours"`
	TotalMiles float64 `json:"totalMiles"`
	TotalPay   float64 `json:"totalPay"`
}

// Service builds payroll reports from persisted timesheets
type Service struct {
	ScheduleRepository schedules.ScheduleRepositoryInterface
}

// BuildReport aggregates every approved and pending entry of schedules whose
// start date falls into [from, to). Pay is computed against the rate snapshot
// stored on each entry, not against the current employee profile.
func (s *Service) BuildReport(ctx context.Context, from time.Time, to time.Time) (*Report, error) {
	found, err := s.ScheduleRepository.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var mutex sync.Mutex
	summaries := make(map[string]*EmployeeSummary)

	group, groupCtx := errgroup.WithContext(ctx)

	for index := range found {
		schedule := found[index]

		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}

			lines := summarizeSchedule(&schedule)

			mutex.Lock()
			defer mutex.Unlock()

			for _, line := range lines {
				total, ok := summaries[line.Employee]
				if !ok {
					total = &EmployeeSummary{Employee: line.Employee}
					summaries[line.Employee] = total
				}

				total.SiteHours += line.SiteHours
				total.DriveHours += line.DriveHours
				total.QuickLogHours += line.QuickLogHours
				total.Miles += line.Miles
				total.GrossPay += line.GrossPay
			}

			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return nil, err
	}

	report := &Report{From: from, To: to, Employees: make([]EmployeeSummary, 0, len(summaries))}
	for _, summary := range summaries {
		report.Employees = append(report.Employees, *summary)
		report.TotalHours += summary.SiteHours + summary.DriveHours
		report.TotalMiles += summary.Miles
		report.TotalPay += summary.GrossPay
	}

	sort.Slice(report.Employees, func(i, j int) bool {
		return report.Employees[i].Employee < report.Employees[j].Employee
	})

	return report, nil
}

// summarizeSchedule folds the entries of one schedule into per employee lines.
// Open drive time entries are skipped, they have no hours yet.
func summarizeSchedule(schedule *schedules.Schedule) map[string]*EmployeeSummary {
	lines := make(map[string]*EmployeeSummary)

	for index := range schedule.Timesheet {
		entry := &schedule.Timesheet[index]

		if entry.Employee == "" || entry.IsActive() {
			continue
		}

		line, ok := lines[entry.Employee]
		if !ok {
			line = &EmployeeSummary{Employee: entry.Employee}
			lines[entry.Employee] = line
		}

		hours := timesheet.ComputeHours(entry, schedule.FromDate, geo.RoadFactorRecompute)

		switch entry.Type {
		case timesheet.EntrySiteTime:
			line.SiteHours += hours
			line.GrossPay += hours * entry.HourlyRateSite
		case timesheet.EntryDriveTime:
			line.DriveHours += hours
			line.Miles += timesheet.ComputeDistance(entry, schedule.FromDate, geo.RoadFactorRecompute)
			line.GrossPay += hours * entry.HourlyRateDrive
		}

		if quickLog := entry.DumpWashout; quickLog != nil {
			line.QuickLogHours += quickLog.Hours()
		}
		if quickLog := entry.ShopTime; quickLog != nil {
			line.QuickLogHours += quickLog.Hours()
		}
	}

	return lines
}
