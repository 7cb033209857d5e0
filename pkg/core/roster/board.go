package roster

import (
	"fmt"
	"strings"

	"github.com/plannerd/monthroster/pkg/core/calendar"
	"github.com/plannerd/monthroster/pkg/core/model"
)

// RenderBoard formats the solved month as a text grid: one row per employee,
// one column per day, weekday letters in the header. Days without an
// assignment show the free shift.
func (c *Context) RenderBoard(shifts []model.ScheduledShift) string {
	byEmployee := make(map[int]map[int]*ShiftInfo)
	workTime := make(map[int]int)
	for _, sh := range shifts {
		si, ok := c.ShiftByTypeID(sh.ShiftTypeID)
		if !ok {
			continue
		}
		if byEmployee[sh.EmployeeID] == nil {
			byEmployee[sh.EmployeeID] = make(map[int]*ShiftInfo)
		}
		byEmployee[sh.EmployeeID][sh.Date.Day()] = si
		workTime[sh.EmployeeID] += si.DurationHours()
	}

	var b strings.Builder

	b.WriteString(strings.Repeat(" ", 14))
	for _, week := range c.MonthByWeeks {
		for _, d := range week {
			b.WriteString(calendar.WeekdayLetter(d.Weekday) + " ")
		}
		b.WriteString("  ")
	}
	b.WriteString("\n")

	for _, ei := range c.Employees {
		fmt.Fprintf(&b, "employee %3d: ", ei.Employee.ID)
		for _, week := range c.MonthByWeeks {
			for _, d := range week {
				letter := "-"
				if si, ok := byEmployee[ei.Employee.ID][d.Day]; ok {
					letter = "?"
					if name := []rune(si.ShiftType.Name); len(name) > 0 {
						letter = string(name[0])
					}
				}
				b.WriteString(letter + " ")
			}
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "| JT: %3d | WT: %3d\n", ei.JobTime, workTime[ei.Employee.ID])
	}

	fmt.Fprintf(&b, "totals: work time %d, contracted %d, jt ratio %.3f, ot ratio %.3f\n",
		c.TotalWorkTime, c.TotalJobTime, c.JobTimeMultiplier, c.OvertimeMultiplier)

	return b.String()
}
