package agenda

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/constants"
	apperrors "github.com/seicologia/agenda/internal/errors"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/spreadsheet"
	"github.com/seicologia/agenda/internal/utils"
	"github.com/seicologia/agenda/internal/workspace"
)

type NoteCmd struct {
	Set    NoteSetCmd    `cmd:"" help:"Write the notes of an occurred session."`
	Show   NoteShowCmd   `cmd:"" help:"Print the notes of a session."`
	List   NoteListCmd   `cmd:"" help:"List stored notes."`
	Delete NoteDeleteCmd `cmd:"" help:"Delete the notes of a session, or all notes."`
	Export NoteExportCmd `cmd:"" help:"Export notes to a spreadsheet."`
}

type NoteSetCmd struct {
	Patient string `arg:"" help:"Patient ID or name."`
	Date    string `arg:"" help:"Date the session is shown on (YYYY-MM-DD)."`
	Content string `arg:"" optional:"" help:"Note text. Read from standard input when omitted."`
}

func (c *NoteSetCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	s, err := locate(ws, c.Patient, c.Date)
	if err != nil {
		return err
	}
	content := c.Content
	if content == "" {
		b, err := io.ReadAll(ctx.In())
		if err != nil {
			return fmt.Errorf("failed to read note: %w", err)
		}
		content = strings.TrimRight(string(b), "\n")
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: note is empty", workspace.ErrInvalid)
	}

	n, err := ws.SaveNote(workspace.Ref(s), content)
	if errors.Is(err, workspace.ErrNoteLimit) {
		return apperrors.WithHint(err, "export and delete notes to free space (agenda note export, agenda note delete)")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out(), "✓ Saved notes for %s on %s at %s\n", n.PatientName, n.SessionDate, n.SessionTime)
	return nil
}

type NoteShowCmd struct {
	Patient string `arg:"" help:"Patient ID or name."`
	Date    string `arg:"" help:"Date the session is shown on (YYYY-MM-DD)."`
}

func (c *NoteShowCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	s, err := locate(ws, c.Patient, c.Date)
	if err != nil {
		return err
	}
	n, err := ws.Note(workspace.Ref(s))
	if err != nil {
		return err
	}
	out := ctx.Out()
	fmt.Fprintf(out, "%s  %s %s\n", n.PatientName, n.SessionDate, n.SessionTime)
	fmt.Fprintf(out, "Updated %s\n\n", n.UpdatedAt.In(ws.Location()).Format("2006-01-02 15:04"))
	fmt.Fprintln(out, n.Content)
	return nil
}

type NoteListCmd struct {
	Patient string `short:"p" help:"Only notes of patients whose name contains this text."`
	From    string `help:"First session date (YYYY-MM-DD)."`
	To      string `help:"Last session date (YYYY-MM-DD)."`
}

// filter keeps the notes matching the name fragment and the inclusive date
// range; dates compare as YYYY-MM-DD strings.
func (c *NoteListCmd) filter(notes []models.Note) []models.Note {
	want := utils.NormalizeText(c.Patient)
	var out []models.Note
	for _, n := range notes {
		if want != "" && !strings.Contains(utils.NormalizeText(n.PatientName), want) {
			continue
		}
		if c.From != "" && n.SessionDate < c.From {
			continue
		}
		if c.To != "" && n.SessionDate > c.To {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (c *NoteListCmd) Run(ctx *cli.Context) error {
	for _, d := range []string{c.From, c.To} {
		if d != "" && !utils.ValidateDateFormat(d) {
			return fmt.Errorf("%w: invalid date %q (expected YYYY-MM-DD)", workspace.ErrInvalid, d)
		}
	}
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	all := ws.Notes()
	notes := c.filter(all)

	out := ctx.Out()
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes found.")
		return nil
	}
	for _, n := range notes {
		fmt.Fprintf(out, "%s  %s  %-20s %s\n", n.SessionDate, n.SessionTime, n.PatientName, preview(n.Content))
	}
	fmt.Fprintf(out, "\n%d of %d notes (limit %d)\n", len(notes), len(all), constants.MaxNotes)
	return nil
}

func preview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if r := []rune(line); len(r) > 50 {
		return string(r[:49]) + "…"
	}
	return line
}

type NoteDeleteCmd struct {
	Patient string `arg:"" optional:"" help:"Patient ID or name."`
	Date    string `arg:"" optional:"" help:"Date the session is shown on (YYYY-MM-DD)."`
	All     bool   `help:"Delete every note."`
	Yes     bool   `short:"y" help:"Delete without asking for confirmation."`
}

func (c *NoteDeleteCmd) Run(ctx *cli.Context) error {
	if c.All == (c.Patient != "") {
		return fmt.Errorf("%w: give a patient and date, or --all", workspace.ErrInvalid)
	}
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	out := ctx.Out()

	if c.All {
		if !c.Yes {
			ok, err := ctx.Confirm(fmt.Sprintf("Delete all %d notes?", len(ws.Notes())))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Delete cancelled.")
				return nil
			}
		}
		n, err := ws.DeleteAllNotes()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Deleted %d notes\n", n)
		return nil
	}

	s, err := locate(ws, c.Patient, c.Date)
	if err != nil {
		return err
	}
	n, err := ws.Note(workspace.Ref(s))
	if err != nil {
		return err
	}
	if err := ws.DeleteNote(n.Key); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Deleted notes for %s on %s\n", n.PatientName, n.SessionDate)
	return nil
}

type NoteExportCmd struct {
	File string `arg:"" help:"Destination .xlsx file."`
}

func (c *NoteExportCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	f, err := os.Create(c.File)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.File, err)
	}
	defer f.Close()

	notes := ws.Notes()
	if err := spreadsheet.ExportNotes(f, notes, ws.Location()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out(), "✓ Exported %d notes to %s\n", len(notes), c.File)
	return f.Close()
}
