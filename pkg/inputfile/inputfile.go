// Package inputfile loads a month's scheduling input from a YAML file and
// converts it into the records the scheduling service consumes. The file
// format is a developer convenience for driving the solver from the CLI; it
// is not a stable wire format.
package inputfile

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/plannerd/monthroster/pkg/core/model"
	"github.com/plannerd/monthroster/pkg/core/services"
)

// Date is a calendar day in "2006-01-02" form.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.Format("2006-01-02"), nil
}

// ClockTime is a wall-clock time in "15:04" form.
type ClockTime struct {
	model.TimeOfDay
}

func (c *ClockTime) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return fmt.Errorf("invalid time %q, want HH:MM: %w", s, err)
	}
	c.Hour = t.Hour()
	c.Minute = t.Minute()
	return nil
}

// Input is the YAML schema for one month's scheduling run.
type Input struct {
	Year          int `yaml:"year" validate:"min=1"`
	Month         int `yaml:"month" validate:"min=1,max=12"`
	BaselineHours int `yaml:"baselineHours" validate:"min=0"`

	Employees []Employee `yaml:"employees" validate:"min=1,dive"`
	Shifts    []Shift    `yaml:"shifts" validate:"min=1,dive"`

	Preferences []Preference `yaml:"preferences,omitempty" validate:"dive"`
	Absences    []Absence    `yaml:"absences,omitempty" validate:"dive"`
	Assignments []Assignment `yaml:"assignments,omitempty" validate:"dive"`
	Closings    []Closing    `yaml:"closings,omitempty" validate:"dive"`

	PreviousShifts []WorkedShift `yaml:"previousShifts,omitempty" validate:"dive"`
	NextShifts     []WorkedShift `yaml:"nextShifts,omitempty" validate:"dive"`
}

type Employee struct {
	ID         int    `yaml:"id" validate:"min=1"`
	FirstName  string `yaml:"firstName"`
	LastName   string `yaml:"lastName"`
	JobTime    string `yaml:"jobTime" validate:"required"`
	Workplaces []int  `yaml:"workplaces,omitempty"`
}

type Shift struct {
	ID         int       `yaml:"id" validate:"min=1"`
	Name       string    `yaml:"name" validate:"required"`
	Start      ClockTime `yaml:"start"`
	End        ClockTime `yaml:"end"`
	Workplace  int       `yaml:"workplace" validate:"min=1"`
	Demand     int       `yaml:"demand" validate:"min=0"`
	ActiveDays string    `yaml:"activeDays,omitempty"`
	Archived   bool      `yaml:"archived,omitempty"`
}

type Preference struct {
	Employee   int    `yaml:"employee" validate:"min=1"`
	Shift      int    `yaml:"shift" validate:"min=1"`
	ActiveDays string `yaml:"activeDays" validate:"required"`
}

type Absence struct {
	Employee int    `yaml:"employee" validate:"min=1"`
	Start    Date   `yaml:"start"`
	End      Date   `yaml:"end"`
	Hours    int    `yaml:"hours" validate:"min=0"`
	Category string `yaml:"category,omitempty"`
}

type Assignment struct {
	Employee int   `yaml:"employee" validate:"min=1"`
	Shift    int   `yaml:"shift" validate:"min=1"`
	Start    *Date `yaml:"start,omitempty"`
	End      *Date `yaml:"end,omitempty"`
	Negative bool  `yaml:"negative,omitempty"`
}

type Closing struct {
	Workplace int  `yaml:"workplace" validate:"min=1"`
	Start     Date `yaml:"start"`
	End       Date `yaml:"end"`
}

type WorkedShift struct {
	Employee int  `yaml:"employee" validate:"min=1"`
	Shift    int  `yaml:"shift" validate:"min=1"`
	Date     Date `yaml:"date"`
}

var validate = validator.New()

// Load reads and validates the month input at the given path.
func Load(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var input Input
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return &input, nil
}

// Validate checks the structural rules and the cross-references between the
// file's sections.
func (in *Input) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}

	employees := make(map[int]bool)
	for _, e := range in.Employees {
		if employees[e.ID] {
			return fmt.Errorf("duplicate employee id %d", e.ID)
		}
		employees[e.ID] = true
		if !model.JobTime(e.JobTime).IsValid() {
			return fmt.Errorf("employee %d: unknown job time %q", e.ID, e.JobTime)
		}
	}

	shifts := make(map[int]bool)
	for _, s := range in.Shifts {
		if shifts[s.ID] {
			return fmt.Errorf("duplicate shift id %d", s.ID)
		}
		shifts[s.ID] = true
		if s.ActiveDays != "" && !model.ActiveDays(s.ActiveDays).IsValid() {
			return fmt.Errorf("shift %d: invalid active-days mask %q", s.ID, s.ActiveDays)
		}
	}

	for _, p := range in.Preferences {
		if !employees[p.Employee] {
			return fmt.Errorf("preference references unknown employee %d", p.Employee)
		}
		if !shifts[p.Shift] {
			return fmt.Errorf("preference references unknown shift %d", p.Shift)
		}
		if !model.ActiveDays(p.ActiveDays).IsValid() {
			return fmt.Errorf("preference for employee %d: invalid active-days mask %q", p.Employee, p.ActiveDays)
		}
	}
	for _, a := range in.Absences {
		if !employees[a.Employee] {
			return fmt.Errorf("absence references unknown employee %d", a.Employee)
		}
		if a.End.Before(a.Start.Time) {
			return fmt.Errorf("absence for employee %d ends before it starts", a.Employee)
		}
	}
	for _, a := range in.Assignments {
		if !employees[a.Employee] {
			return fmt.Errorf("assignment references unknown employee %d", a.Employee)
		}
		if !shifts[a.Shift] {
			return fmt.Errorf("assignment references unknown shift %d", a.Shift)
		}
		if (a.Start == nil) != (a.End == nil) {
			return fmt.Errorf("assignment for employee %d must have both or neither of start and end", a.Employee)
		}
	}
	for _, c := range in.Closings {
		if c.End.Before(c.Start.Time) {
			return fmt.Errorf("closing for workplace %d ends before it starts", c.Workplace)
		}
	}

	return nil
}

// GenerateInput converts the file into the scheduling service's input.
func (in *Input) GenerateInput() services.GenerateInput {
	gi := services.GenerateInput{
		Year:          in.Year,
		Month:         in.Month,
		BaselineHours: in.BaselineHours,
	}

	for _, e := range in.Employees {
		gi.Employees = append(gi.Employees, model.Employee{
			ID:           e.ID,
			FirstName:    e.FirstName,
			LastName:     e.LastName,
			JobTime:      model.JobTime(e.JobTime),
			WorkplaceIDs: e.Workplaces,
		})
	}
	for _, s := range in.Shifts {
		mask := model.ActiveDays(s.ActiveDays)
		if s.ActiveDays == "" {
			mask = model.EveryDay
		}
		gi.ShiftTypes = append(gi.ShiftTypes, model.ShiftType{
			ID:          s.ID,
			Name:        s.Name,
			Start:       s.Start.TimeOfDay,
			End:         s.End.TimeOfDay,
			WorkplaceID: s.Workplace,
			Demand:      s.Demand,
			ActiveDays:  mask,
			IsUsed:      true,
			IsArchive:   s.Archived,
		})
	}
	for _, p := range in.Preferences {
		gi.Preferences = append(gi.Preferences, model.Preference{
			EmployeeID:  p.Employee,
			ShiftTypeID: p.Shift,
			ActiveDays:  model.ActiveDays(p.ActiveDays),
		})
	}
	for _, a := range in.Absences {
		gi.Absences = append(gi.Absences, model.Absence{
			EmployeeID: a.Employee,
			Start:      a.Start.Time,
			End:        a.End.Time,
			Hours:      a.Hours,
			Category:   a.Category,
		})
	}
	for _, a := range in.Assignments {
		ma := model.Assignment{
			EmployeeID:  a.Employee,
			ShiftTypeID: a.Shift,
			Negative:    a.Negative,
		}
		if a.Start != nil && a.End != nil {
			start, end := a.Start.Time, a.End.Time
			ma.Start, ma.End = &start, &end
		}
		gi.Assignments = append(gi.Assignments, ma)
	}
	for _, c := range in.Closings {
		gi.Closings = append(gi.Closings, model.WorkplaceClosing{
			WorkplaceID: c.Workplace,
			Start:       c.Start.Time,
			End:         c.End.Time,
		})
	}
	for _, w := range in.PreviousShifts {
		gi.PreviousShifts = append(gi.PreviousShifts, model.ScheduledShift{
			EmployeeID:  w.Employee,
			ShiftTypeID: w.Shift,
			Date:        w.Date.Time,
		})
	}
	for _, w := range in.NextShifts {
		gi.NextShifts = append(gi.NextShifts, model.ScheduledShift{
			EmployeeID:  w.Employee,
			ShiftTypeID: w.Shift,
			Date:        w.Date.Time,
		})
	}

	return gi
}

// Result is the YAML schema the CLI writes a solved month back out as.
type Result struct {
	RunID       string        `yaml:"runId"`
	Status      string        `yaml:"status"`
	Assignments []ResultShift `yaml:"assignments"`
	WorkTime    map[int]int   `yaml:"workTime"`
}

type ResultShift struct {
	Employee int    `yaml:"employee"`
	Date     string `yaml:"date"`
	Shift    int    `yaml:"shift"`
}

// WriteResult saves the generation outcome to the given path.
func WriteResult(path string, result *services.GenerateResult) error {
	out := Result{
		RunID:    result.RunID,
		Status:   result.Status.String(),
		WorkTime: result.WorkTime,
	}
	for _, s := range result.Assignments {
		out.Assignments = append(out.Assignments, ResultShift{
			Employee: s.EmployeeID,
			Date:     s.Date.Format("2006-01-02"),
			Shift:    s.ShiftTypeID,
		})
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}
