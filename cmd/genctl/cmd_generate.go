package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Text2APK/client/internal/app"
	"github.com/GriffinCanCode/Text2APK/client/internal/domain/generation"
)

func newGenerateCmd(g *globalOptions) *cobra.Command {
	var (
		framework string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate an APK from a prompt and follow its progress",
		Long: `Submits the prompt, prints progress until the generation completes or
fails and then shows the refreshed history. Exits non-zero when the
generation fails.

Example:
  genctl generate "A tip calculator with a dark theme" --framework flutter`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, args[0], framework, timeout)
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", "", "framework id, or auto (default auto)")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "give up waiting after this long")
	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalOptions, prompt, framework string, timeout time.Duration) error {
	out := cmd.OutOrStdout()
	progress := newProgressPrinter(out)

	a, err := g.newApp(app.WithObserver(progress.observe))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a.Start(ctx)

	if _, err := a.Sessions.Submit(ctx, prompt, framework); err != nil {
		var verr *generation.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		// submission and channel failures are reported via the session
	}

	var final generation.Session
	select {
	case final = <-progress.done:
	case <-time.After(timeout):
		a.Sessions.Reset()
		return fmt.Errorf("gave up after %s; generation continues on the backend", timeout)
	case <-ctx.Done():
		a.Sessions.Reset()
		return ctx.Err()
	}

	// waits for the post-completion history refresh
	a.Sessions.Close()

	if final.Status == generation.StatusFailed {
		fmt.Fprintf(out, "\nGeneration failed: %s\n", final.Error)
		return errSessionFailed
	}

	fmt.Fprintln(out)
	if final.AppName != "" {
		fmt.Fprintf(out, "App:      %s\n", final.AppName)
	}
	fmt.Fprintf(out, "ID:       %s\n", final.ID)
	fmt.Fprintf(out, "Download: %s\n", final.DownloadURL)
	if final.Error != "" {
		fmt.Fprintf(out, "Warning:  %s\n", final.Error)
	}

	fmt.Fprintln(out, "\nRecent generations:")
	printHistory(out, a.History.Records())
	return nil
}

// progressPrinter renders session snapshots as they change and reports the
// first terminal one. It runs inside the controller lock and only writes.
type progressPrinter struct {
	out  io.Writer
	done chan generation.Session

	mu       sync.Mutex
	last     generation.Session
	reported bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, done: make(chan generation.Session, 1)}
}

func (p *progressPrinter) observe(s generation.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Status == generation.StatusSubmitting {
		fmt.Fprintln(p.out, "Submitting...")
	}
	if s.Status == generation.StatusProcessing && p.last.Status != generation.StatusProcessing {
		fmt.Fprintf(p.out, "Generation %s accepted (%s)\n", s.ID, s.RemoteStatus)
	}
	if s.Progress != p.last.Progress || s.Stage != p.last.Stage {
		if s.Status == generation.StatusProcessing || s.Status == generation.StatusCompleted {
			fmt.Fprintf(p.out, "[%3d%%] %s\n", s.Progress, s.Stage)
		}
	}
	if s.Error != "" && s.Error != p.last.Error && s.Status == generation.StatusProcessing {
		fmt.Fprintf(p.out, "       warning: %s\n", s.Error)
	}
	p.last = s

	if s.Status.Terminal() && !p.reported {
		p.reported = true
		p.done <- s
	}
}
