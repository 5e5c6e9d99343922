package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tensorplex-labs/cfo/internal/config"
	"github.com/tensorplex-labs/cfo/internal/session"
	"github.com/tensorplex-labs/cfo/internal/telemetry"
	"github.com/tensorplex-labs/cfo/pkg/apiclient"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi"
)

var errUsage = errors.New("usage")

var stdout io.Writer = os.Stdout

type meta struct {
	Source   apiclient.Source `json:"source"`
	Degraded bool             `json:"degraded"`
	Reason   apiclient.Reason `json:"reason,omitempty"`
	Attempts int              `json:"attempts"`
}

type output struct {
	Meta meta `json:"meta"`
	Data any  `json:"data"`
}

func emit[T any](res cfoapi.Response[T], err error) error {
	if err != nil {
		return err
	}
	return printJSON(output{
		Meta: meta{Source: res.Source, Degraded: res.Degraded, Reason: res.Reason, Attempts: res.Attempts},
		Data: res.Data,
	})
}

func printJSON(v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(b))
	return err
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	if a.prober != nil && cmd != "watch" && cmd != "logout" {
		a.prober.Probe(ctx)
	}

	switch cmd {
	case "financials":
		return emit(a.api.GetFinancials(ctx))
	case "risks":
		return emit(a.api.GetRisks(ctx))
	case "monitoring":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		status := fs.String("status", "", "filter metrics by status")
		period := fs.String("period", "", "reporting period")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		return emit(a.api.GetMonitoringData(ctx, filters("status", *status, "period", *period)))
	case "anomalies":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		severity := fs.String("severity", "", "filter by severity")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		return emit(a.api.GetAnomalies(ctx, filters("severity", *severity)))
	case "forecast":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		scenario := fs.String("scenario", cfoapi.DefaultScenario, "optimistic, realistic or pessimistic")
		months := fs.Int("months", cfoapi.DefaultMonths, "months to project")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		return emit(a.api.GetForecast(ctx, *scenario, *months))
	case "export":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		format := fs.String("format", cfoapi.DefaultExportFormat, "csv, xlsx or pdf")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		return emit(a.api.ExportData(ctx, *format))
	case "ask":
		if len(args) == 0 {
			return errUsage
		}
		return emit(a.api.AskQuestion(ctx, strings.Join(args, " ")))
	case "upload":
		if len(args) != 1 {
			return errUsage
		}
		return a.upload(ctx, args[0])
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		if err := a.api.Logout(ctx); err != nil {
			return err
		}
		log.Info().Msg("logged out")
		return nil
	case "status":
		return a.status(ctx)
	case "watch":
		return a.watch(ctx)
	}
	return errUsage
}

func filters(kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	return q
}

func (a *app) upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	progress := make(chan float64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			log.Info().Float64("percent", p).Msg("uploading")
		}
	}()

	res, err := a.api.UploadDocument(ctx, path, f, progress)
	<-done
	return emit(res, err)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "work email")
	password := fs.String("password", os.Getenv("CFO_PASSWORD"), "password (or CFO_PASSWORD)")
	title := fs.String("title", "", "job title")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	sess, err := a.api.Login(ctx, cfoapi.LoginInput{WorkEmail: *email, Password: *password, JobTitle: *title})
	if err != nil {
		return err
	}
	if sess.User.Demo {
		log.Warn().Msg("backend unreachable, logged in with a demo session")
	} else {
		log.Info().Str("email", sess.User.WorkEmail).Msg("logged in")
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "work email")
	password := fs.String("password", os.Getenv("CFO_PASSWORD"), "password (or CFO_PASSWORD)")
	title := fs.String("title", "", "job title")
	company := fs.String("company", "", "company name")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	res, err := a.api.Register(ctx, cfoapi.RegisterInput{
		FullName:    *name,
		WorkEmail:   *email,
		Password:    *password,
		JobTitle:    *title,
		CompanyName: *company,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

type statusReport struct {
	Online  bool          `json:"online"`
	BaseURL string        `json:"base_url"`
	Session *session.User `json:"session,omitempty"`
	Demo    bool          `json:"demo"`
}

func (a *app) status(ctx context.Context) error {
	report := statusReport{Online: a.api.IsOnline(), BaseURL: a.cfg.BaseURL}
	sess, err := a.api.CurrentSession(ctx)
	switch {
	case errors.Is(err, session.ErrNoSession):
	case err != nil:
		return err
	default:
		report.Session = &sess.User
		report.Demo = sess.Token == cfoapi.DemoToken
	}
	return printJSON(report)
}

// watch runs the prober, logs connectivity transitions and refreshes the
// financial summary until ctx is done.
func (a *app) watch(ctx context.Context) error {
	intervals := config.NewIntervalConfig(a.cfg.Environment)
	g, ctx := errgroup.WithContext(ctx)

	if a.prober != nil {
		g.Go(func() error {
			a.prober.Run(ctx)
			return nil
		})
	}

	events, cancel := a.state.Subscribe()
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				log.Info().Bool("online", ev.Online).Msg("connectivity changed")
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(intervals.RefreshInterval)
		defer ticker.Stop()
		for {
			res, err := a.api.GetFinancials(ctx)
			switch {
			case ctx.Err() != nil:
				return nil
			case err != nil:
				log.Error().Err(err).Msg("refresh failed")
			default:
				log.Info().
					Str("source", string(res.Source)).
					Bool("degraded", res.Degraded).
					Float64("revenue", res.Data.Data.Revenue).
					Float64("cash_runway", res.Data.Data.CashRunway).
					Msg("financials refreshed")
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	if addr := a.cfg.MetricsAddress; addr != "" {
		srv := &http.Server{Addr: addr, Handler: telemetry.Handler(a.registry), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info().Str("address", addr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
