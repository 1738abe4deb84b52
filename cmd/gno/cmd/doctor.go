package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnosis-index/gnosis/internal/lifecycle"
	"github.com/gnosis-index/gnosis/internal/output"
	"github.com/gnosis-index/gnosis/internal/preflight"
)

// doctorCheck is one diagnostic probe result.
type doctorCheck struct {
	Name   string `json:"name"`
	Ok     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type doctorReport struct {
	Checks  []doctorCheck `json:"checks"`
	Healthy bool          `json:"healthy"`
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run basic health checks against the store and configured model ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report := doctorReport{Healthy: true}
			addCheck := func(name string, ok bool, detail string) {
				report.Checks = append(report.Checks, doctorCheck{Name: name, Ok: ok, Detail: detail})
				if !ok {
					report.Healthy = false
				}
			}

			if _, err := a.Store.GetStatus(ctx, a.Embed.ModelName()); err != nil {
				addCheck("store", false, err.Error())
			} else {
				addCheck("store", true, "")
			}

			if a.Embed.Available(ctx) {
				addCheck("embedding port ("+a.Embed.ModelName()+")", true, "")
			} else {
				addCheck("embedding port ("+a.Embed.ModelName()+")", false, "unreachable")
			}

			if a.Gen != nil && a.Gen.Available(ctx) {
				addCheck("generation port", true, "")
			} else {
				addCheck("generation port", false, "unreachable; ask will return results without a grounded answer")
			}

			if a.Rerank != nil && a.Rerank.Available(ctx) {
				addCheck("rerank port", true, "")
			} else {
				addCheck("rerank port", false, "unreachable; hybrid search will skip reranking")
			}

			checker := preflight.New(preflight.WithOffline(offline))
			for _, r := range checker.RunAll(ctx, a.DataDir) {
				addCheck(r.Name, r.Status != preflight.StatusFail, r.Message)
			}

			if !offline {
				mgr := lifecycle.NewOllamaManager()
				if status, err := mgr.Status(ctx, a.Embed.ModelName()); err != nil {
					addCheck("ollama", false, err.Error())
				} else if !status.Installed {
					addCheck("ollama", false, "not installed; "+lifecycle.InstallInstructions())
				} else if !status.Running {
					addCheck("ollama", false, "installed but not running; try `ollama serve`")
				} else if !status.HasModel {
					addCheck("ollama", false, fmt.Sprintf("running, but model %q isn't pulled yet", status.TargetModel))
				} else {
					addCheck("ollama", true, "")
				}
			}

			return render(cmd, report, func() string { return doctorMarkdown(report) }, func() { doctorText(cmd, report) })
		},
	}
}

func doctorMarkdown(r doctorReport) string {
	var sb strings.Builder
	sb.WriteString("# Doctor report\n\n")
	for _, c := range r.Checks {
		status := "ok"
		if !c.Ok {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "- **%s**: %s", c.Name, status)
		if c.Detail != "" {
			fmt.Fprintf(&sb, " (%s)", c.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func doctorText(cmd *cobra.Command, r doctorReport) {
	w := output.New(cmd.OutOrStdout())
	for _, c := range r.Checks {
		if c.Ok {
			w.Success(c.Name)
		} else {
			w.Warningf("%s: %s", c.Name, c.Detail)
		}
	}
	if r.Healthy {
		w.Success("all checks passed")
	} else {
		w.Error("one or more checks failed")
	}
}
