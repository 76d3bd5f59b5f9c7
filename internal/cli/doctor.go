package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadre-oss/ctxmem/internal/config"
	ctxerrors "github.com/cadre-oss/ctxmem/internal/errors"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and service connectivity",
	Long:  "Validate that credentials and configuration are set up and that the context service is reachable.",
	RunE:  runDoctor,
}

// doctorProbeSession is searched to check reachability. It is never written.
const doctorProbeSession = "ctxmem-doctor-probe"

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "ctxmem doctor: checking your environment")
	fmt.Fprintln(out)
	allOK := true

	fail := func(label, detail, hint string) {
		fmt.Fprintf(out, "  %-11s %s ✗\n", label+":", detail)
		if hint != "" {
			fmt.Fprintf(out, "    → %s\n", hint)
		}
		allOK = false
	}
	pass := func(label, detail string) {
		fmt.Fprintf(out, "  %-11s %s ✓\n", label+":", detail)
	}

	pass("Go version", runtime.Version())
	pass("Platform", runtime.GOOS+"/"+runtime.GOARCH)

	cfg, err := loadConfig()
	if err != nil {
		fail("Config", "FAILED", err.Error())
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Some checks failed. See above for details.")
		return nil
	}
	if err := config.Validate(cfg); err != nil {
		fail("Config", "INVALID", ctxerrors.Suggestion(err))
	} else {
		pass("Config", cfg.Name)
	}

	if cfg.Service.APIKey == "" {
		fail("API key", "NOT SET", "Set "+config.EnvAPIKey+" or service.api_key in "+config.FileName)
	} else {
		pass("API key", "set ("+maskKey(cfg.Service.APIKey)+")")
	}

	if cfg.Session.ID == "" {
		fail("Session", "NOT SET", "Run 'ctxmem session new' and export "+config.EnvSession)
	} else {
		pass("Session", cfg.Session.ID)
	}

	pass("Org", cfg.Service.OrgID)

	if cfg.Service.APIKey != "" {
		if err := probeService(cmd); err != nil {
			detail := "UNREACHABLE"
			if hint := ctxerrors.Suggestion(err); hint != "" {
				fail("Service", detail, hint)
			} else {
				fail("Service", detail, err.Error())
			}
		} else {
			pass("Service", cfg.Service.BaseURL)
		}
	}

	fmt.Fprintln(out)
	if allOK {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		fmt.Fprintln(out, "Some checks failed. See above for details.")
	}

	return nil
}

// probeService runs one search against an unused session.
func probeService(cmd *cobra.Command) error {
	env, err := newAppEnv(cmd)
	if err != nil {
		return err
	}
	defer env.close("doctor")

	mem, err := env.openSession(doctorProbeSession)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	_, err = mem.SearchHistory(ctx, "ping")
	return err
}
