package agenda

import (
	"fmt"
	"io"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/constants"
)

type TasksCmd struct {
	Month string `short:"m" help:"Month to derive tasks from (YYYY-MM). Defaults to the current month."`
	Done  bool   `help:"Also list completed tasks."`
}

func (c *TasksCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	month, err := ws.ParseMonth(c.Month)
	if err != nil {
		return err
	}
	list := ws.Tasks(month)

	out := ctx.Out()
	fmt.Fprintf(out, "Tasks for %s\n", month.Format(constants.MonthFormat))
	fmt.Fprintf(out, "\nPending (%d)\n", len(list.Open))
	printTasks(out, "☐", list.Open)
	if c.Done {
		fmt.Fprintf(out, "\nDone (%d)\n", len(list.Done))
		printTasks(out, "☑", list.Done)
	}
	return nil
}

func printTasks(w io.Writer, mark string, tasks []appointments.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  nothing here")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "  %s %s  %-5s  %s\n", mark, t.Due.Format(constants.DateFormat), t.Time, t.Title)
	}
}
