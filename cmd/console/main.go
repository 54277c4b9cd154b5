// Command console drives one module of the operations console from a
// terminal as a demo session on the local backend.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/policy"
	"github.com/hotelops/console/internal/core/service"
	"github.com/hotelops/console/internal/infrastructure/config"
	"github.com/hotelops/console/internal/infrastructure/db/local"
	"github.com/hotelops/console/pkg/logger"
)

const usage = `commands:
  list                  show the records
  set <field> <value>   set a form field
  submit                create, or update the record being edited
  edit <id>             load a record into the form
  cancel                drop the selection and reset the form
  rm <id>               delete a record
  go <path>             navigate; the route guard may redirect
  help                  this text
  quit`

func main() {
	moduleKey := flag.String("module", "rooms", "module to open")
	role := flag.String("role", string(domain.RoleAdmin), "demo role of the session")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "console"})

	if err := run(ctx, cfg, *moduleKey, *role, os.Stdin, os.Stdout, log); err != nil {
		log.Fatal().Err(err).Msg("console exited")
	}
}

type printNavigator struct{ out io.Writer }

func (n printNavigator) Redirect(path string) {
	fmt.Fprintf(n.out, "-> redirected to %s\n", path)
}

func run(ctx context.Context, cfg *config.Config, moduleKey, role string, in io.Reader, out io.Writer, log zerolog.Logger) error {
	m, ok := domain.ModuleByKey(moduleKey)
	if !ok {
		return fmt.Errorf("module %q: %w", moduleKey, domain.ErrUnknownCollection)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	resolver := service.NewRoleResolver(domain.SessionContext{DemoRole: role}, nil, nil, log)
	resolver.Start(ctx)
	defer resolver.Close()
	state, err := resolver.WaitLoaded(ctx)
	if err != nil {
		return err
	}

	guard := service.NewRouteGuard(resolver, printNavigator{out: out}, log)
	home, _ := policy.Home(state.Role)
	guard.Start(home)
	defer guard.Stop()

	stores := service.NewStoreFactory(local.NewOpener(cfg.DataDir, log), nil, log)
	store, err := stores.ForModule(m, true)
	if err != nil {
		return err
	}

	ctrl := service.NewCrudController(m, store, log)
	if err := ctrl.Mount(ctx); err != nil {
		fmt.Fprintln(out, "load failed:", domain.UserMessage(err))
	}
	defer ctrl.Unmount()

	fmt.Fprintf(out, "%s as %q (%s backend)\n%s\n", m.Title, state.Role, store.Backend, usage)
	printRecords(out, m, ctrl.View())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, usage)
		case "list":
			err = ctrl.LoadAll(ctx)
			printRecords(out, m, ctrl.View())
		case "set":
			field, value, _ := strings.Cut(arg, " ")
			err = ctrl.SetField(field, value)
		case "submit":
			action := domain.ActionCreate
			if ctrl.View().EditingID != "" {
				action = domain.ActionUpdate
			}
			if err = permit(state.Role, action, m); err == nil {
				err = ctrl.Submit(ctx)
			}
		case "edit":
			err = ctrl.EditByID(arg)
		case "cancel":
			ctrl.CancelEdit()
		case "rm":
			if err = permit(state.Role, domain.ActionDelete, m); err == nil {
				err = ctrl.Remove(ctx, arg)
			}
		case "go":
			guard.Navigate(arg)
			fmt.Fprintln(out, "at", guard.Path())
		default:
			fmt.Fprintf(out, "unknown command %q\n", cmd)
		}
		if err != nil {
			fmt.Fprintln(out, "error:", domain.UserMessage(err))
			continue
		}
		if v := ctrl.View(); cmd != "list" && cmd != "go" && cmd != "help" {
			printForm(out, v)
		}
	}
}

func permit(role domain.Role, action domain.Action, m domain.Module) error {
	if !policy.Can(role, action, m.Resource) {
		return fmt.Errorf("%s %s: %w", action, m.Resource, domain.ErrPermissionDenied)
	}
	return nil
}

func printRecords(out io.Writer, m domain.Module, v service.View) {
	if v.Status == service.StatusError {
		fmt.Fprintln(out, "error:", v.Error)
		return
	}
	if len(v.Records) == 0 {
		fmt.Fprintln(out, "(no records)")
		return
	}
	for _, r := range v.Records {
		parts := make([]string, 0, len(m.Columns))
		for _, col := range m.Columns {
			parts = append(parts, fmt.Sprintf("%s=%v", col.Name, r[col.Name]))
		}
		fmt.Fprintf(out, "%s  %s\n", r.ID(), strings.Join(parts, "  "))
	}
}

func printForm(out io.Writer, v service.View) {
	keys := v.Form.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v.Form[k]))
	}
	prefix := "form"
	if v.EditingID != "" {
		prefix = "editing " + v.EditingID
	}
	fmt.Fprintf(out, "%s: %s\n", prefix, strings.Join(parts, " "))
	if v.MutationError != "" {
		fmt.Fprintln(out, "last error:", v.MutationError)
	}
}
