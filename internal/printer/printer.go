package printer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTemplate prints with CUPS.
const DefaultTemplate = "lp -d {printer} -P {pages} -n {copies} -o {sides} {file}"

// SumatraTemplate prints with SumatraPDF on Windows.
const SumatraTemplate = "SumatraPDF.exe -silent -print-to {printer} -print-settings {settings} {file}"

// DefaultTimeout bounds a single print command.
const DefaultTimeout = 60 * time.Second

// Job is a request to print pages of a document.
type Job struct {
	Path    string `json:"path"`
	Pages   string `json:"pages"` // range string, empty for all pages
	Printer string `json:"printer,omitempty"`
	Copies  int    `json:"copies"`
	Duplex  bool   `json:"duplex"`
}

// Printer sends jobs to a printer.
type Printer interface {
	Print(ctx context.Context, job Job) error
}

// Command runs an external print command built from a template. The
// placeholders {printer}, {pages}, {copies}, {sides}, {settings} and {file}
// are replaced per job. An argument that ends up empty is dropped together
// with the flag right before it.
type Command struct {
	Template string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewCommand returns a Command for template, or the default template when empty.
func NewCommand(template string, logger *slog.Logger) *Command {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Command{Template: template, Timeout: DefaultTimeout, Logger: logger}
}

// Args expands the template for job.
func (c *Command) Args(job Job) []string {
	copies := max(job.Copies, 1)
	sides := ""
	if job.Duplex {
		sides = "sides=two-sided-long-edge"
	}
	var settings []string
	if job.Pages != "" {
		settings = append(settings, "pages:"+job.Pages)
	}
	if copies > 1 {
		settings = append(settings, "copies:"+strconv.Itoa(copies))
	}
	if job.Duplex {
		settings = append(settings, "duplex")
	}

	r := strings.NewReplacer(
		"{printer}", job.Printer,
		"{pages}", job.Pages,
		"{copies}", strconv.Itoa(copies),
		"{sides}", sides,
		"{settings}", strings.Join(settings, ","),
		"{file}", job.Path,
	)

	var args []string
	for _, tok := range strings.Fields(c.Template) {
		v := r.Replace(tok)
		if v == "" {
			if n := len(args); n > 0 && strings.HasPrefix(args[n-1], "-") {
				args = args[:n-1]
			}
			continue
		}
		args = append(args, v)
	}
	return args
}

// Print runs the command and waits for it to exit.
func (c *Command) Print(ctx context.Context, job Job) error {
	if _, err := os.Stat(job.Path); err != nil {
		return fmt.Errorf("print %s: %w", job.Path, err)
	}
	args := c.Args(job)
	if len(args) == 0 {
		return fmt.Errorf("print %s: empty command template", job.Path)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger().Info("printing", "file", job.Path, "pages", job.Pages, "printer", job.Printer, "copies", job.Copies)
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Command) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
