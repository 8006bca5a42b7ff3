package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-farmform/pkg/apispec"
	"github.com/goliatone/go-farmform/pkg/model"
	"github.com/goliatone/go-farmform/pkg/offline"
)

const timeLayout = "2006-01-02 15:04"

func loginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			s, err := a.screens()
			if err != nil {
				return err
			}
			current, err := s.Login(ctx, a.sessions)
			if err != nil {
				return err
			}
			printLine(a.out, okStyle.Render("Signed in as "+current.Username)+" "+mutedStyle.Render("<"+current.Email+">"))
			return nil
		}),
	}
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			if err := a.sessions.Clear(ctx); err != nil {
				return err
			}
			if err := a.store.Cache().Clear(ctx); err != nil {
				return err
			}
			printLine(a.out, okStyle.Render("Signed out"))
			return nil
		}),
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			current, ok, err := a.sessions.Load(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errNotSignedIn
			}
			verified := "no"
			if current.Verified {
				verified = "yes"
			}
			printLine(a.out, keyValues("Session", [][2]string{
				{"User", current.Username},
				{"Email", current.Email},
				{"ID", current.UserID},
				{"Role", current.Role},
				{"Verified", verified},
			}))
			return nil
		}),
	}
}

func registerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			s, err := a.screens()
			if err != nil {
				return err
			}
			return s.Register(ctx)
		}),
	}
}

func fieldsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "fields", Short: "Manage fields"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your fields",
			Args:  cobra.NoArgs,
			RunE: a.connected(func(ctx context.Context, _ []string) error {
				userID, err := a.userID(ctx)
				if err != nil {
					return err
				}
				fields, err := a.client.ListFields(ctx, userID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(fields))
				for _, f := range fields {
					rows = append(rows, []string{f.ID, f.Name, f.Location, strconv.Itoa(f.NumberOfAnimals)})
				}
				printLine(a.out, renderTable([]string{"ID", "NAME", "LOCATION", "ANIMALS"}, rows))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "create",
			Short: "Create a field interactively",
			Args:  cobra.NoArgs,
			RunE: a.connected(func(ctx context.Context, _ []string) error {
				s, err := a.screens()
				if err != nil {
					return err
				}
				field, err := s.CreateField(ctx)
				if err != nil {
					return err
				}
				printLine(a.out, okStyle.Render("Created field "+field.Name)+" "+mutedStyle.Render(field.ID))
				return nil
			}),
		},
	)
	return cmd
}

func fieldFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "field", "", "field id")
	_ = cmd.MarkFlagRequired("field")
}

func pensCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "pens", Short: "Manage the pens of a field"}

	var listField string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the pens of a field",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			pens, err := a.client.ListPens(ctx, listField)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pens))
			for _, p := range pens {
				names := make([]string, 0, len(p.TypeOfObjects))
				for _, obj := range p.TypeOfObjects {
					names = append(names, obj.Name)
				}
				rows = append(rows, []string{strconv.Itoa(p.ID), p.Name, strings.Join(names, ", ")})
			}
			printLine(a.out, renderTable([]string{"ID", "NAME", "TYPES OF OBJECT"}, rows))
			return nil
		}),
	}
	fieldFlag(list, &listField)

	var createField string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a pen interactively",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			s, err := a.screens()
			if err != nil {
				return err
			}
			pen, err := s.CreatePen(ctx, createField)
			if err != nil {
				return err
			}
			printLine(a.out, okStyle.Render(fmt.Sprintf("Created pen %s (%d)", pen.Name, pen.ID)))
			return nil
		}),
	}
	fieldFlag(create, &createField)

	cmd.AddCommand(list, create)
	return cmd
}

// describeValue summarises a variable default for tables.
func describeValue(v model.FormValue) string {
	switch {
	case v.Numeric != nil:
		n := v.Numeric
		return fmt.Sprintf("%g..%g optimal %g..%g step %g", n.Min, n.Max, n.OptimalMin, n.OptimalMax, n.Granularity)
	case v.Categorical != nil:
		out := strings.Join(v.Categorical.Categories, ", ")
		if len(v.Categorical.OptimalValues) > 0 {
			out += " optimal " + strings.Join(v.Categorical.OptimalValues, ", ")
		}
		return out
	default:
		return ""
	}
}

func variablesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "variables", Short: "Manage measurable variables"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your variables",
			Args:  cobra.NoArgs,
			RunE: a.connected(func(ctx context.Context, _ []string) error {
				userID, err := a.userID(ctx)
				if err != nil {
					return err
				}
				variables, err := a.client.ListVariables(ctx, userID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(variables))
				for _, v := range variables {
					rows = append(rows, []string{strconv.Itoa(v.ID), v.Name, string(v.Type), describeValue(v.DefaultValue)})
				}
				printLine(a.out, renderTable([]string{"ID", "NAME", "TYPE", "DEFAULT"}, rows))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "create",
			Short: "Create a variable interactively",
			Args:  cobra.NoArgs,
			RunE: a.connected(func(ctx context.Context, _ []string) error {
				s, err := a.screens()
				if err != nil {
					return err
				}
				v, err := s.CreateVariable(ctx)
				if err != nil {
					return err
				}
				printLine(a.out, okStyle.Render(fmt.Sprintf("Created variable %s (%d)", v.Name, v.ID)))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "edit <id>",
			Short: "Edit a variable interactively",
			Args:  cobra.ExactArgs(1),
			RunE: a.connected(func(ctx context.Context, args []string) error {
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("farmctl: variable id %q is not a number", args[0])
				}
				s, err := a.screens()
				if err != nil {
					return err
				}
				v, err := s.EditVariable(ctx, id)
				if err != nil {
					return err
				}
				printLine(a.out, okStyle.Render(fmt.Sprintf("Saved variable %s (%d)", v.Name, v.ID)))
				return nil
			}),
		},
	)
	return cmd
}

func measureCmd(a *app) *cobra.Command {
	var fieldID string
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Run a measurement round on a field",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			s, err := a.screens()
			if err != nil {
				return err
			}
			res, err := s.Measure(ctx, fieldID)
			if err != nil {
				return err
			}
			if res.Queued {
				printLine(a.out, mutedStyle.Render("Round stored offline, run farmctl sync when connected"))
				return nil
			}
			printLine(a.out, okStyle.Render(fmt.Sprintf("Report %s (%d) with %d measurements", res.Report.Name, res.Report.ID, len(res.Measurements))))
			return nil
		}),
	}
	fieldFlag(cmd, &fieldID)
	return cmd
}

func reportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "reports", Short: "Browse measurement reports"}
	var fieldID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the reports of a field",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			reports, err := a.client.ListReports(ctx, fieldID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(reports))
			for _, r := range reports {
				created := ""
				if !r.CreatedAt.IsZero() {
					created = r.CreatedAt.Local().Format(timeLayout)
				}
				rows = append(rows, []string{strconv.Itoa(r.ID), r.Name, created, strconv.Itoa(len(r.Measurements))})
			}
			printLine(a.out, renderTable([]string{"ID", "NAME", "CREATED", "MEASUREMENTS"}, rows))
			return nil
		}),
	}
	fieldFlag(list, &fieldID)
	cmd.AddCommand(list)
	return cmd
}

func analyticsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "analytics", Short: "Platform analytics (admin)"}
	cmd.AddCommand(&cobra.Command{
		Use:   "overview",
		Short: "Show the platform totals",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			o, err := a.client.AnalyticsOverview(ctx)
			if err != nil {
				return err
			}
			b, g, u := o.BasicStats, o.MonthlyGrowth, o.UsageEvaluation
			printLine(a.out, keyValues("Overview", [][2]string{
				{"Users", fmt.Sprintf("%d (%d verified, %d active)", b.TotalUsers, b.VerifiedUsers, b.ActiveUsers)},
				{"Fields", strconv.Itoa(b.TotalFields)},
				{"Pens", strconv.Itoa(b.TotalPens)},
				{"Reports", strconv.Itoa(b.TotalReports)},
				{"Measurements", strconv.Itoa(b.TotalMeasurements)},
				{"This month", fmt.Sprintf("+%d users, +%d fields, +%d reports", g.NewUsersMonth, g.NewFieldsMonth, g.NewReportsMonth)},
				{"Usage", fmt.Sprintf("%s (adoption %.0f%%)", u.UsageLevel, u.AdoptionRate)},
			}))
			return nil
		}),
	})
	return cmd
}

func syncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send the changes recorded offline",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			syncer := offline.New(a.store.Queue(), a.client, offline.WithLogger(a.logger))
			res, err := syncer.Sync(ctx)
			if err != nil {
				return err
			}
			if res.Empty() {
				printLine(a.out, mutedStyle.Render("Nothing to sync"))
				return nil
			}
			text, err := a.notices.Sync(res)
			if err != nil {
				return err
			}
			printLine(a.out, text)
			if res.Failed > 0 {
				return fmt.Errorf("farmctl: %d queued changes failed", res.Failed)
			}
			return nil
		}),
	}
}

func queueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "queue", Short: "Inspect the changes waiting for a sync"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the queued changes",
			Args:  cobra.NoArgs,
			RunE: a.connected(func(ctx context.Context, _ []string) error {
				pending, err := a.store.Queue().Pending(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					printLine(a.out, mutedStyle.Render("Queue is empty"))
					return nil
				}
				rows := make([][]string, 0, len(pending))
				for _, e := range pending {
					rows = append(rows, []string{
						e.ID,
						e.Method + " " + e.Path,
						e.CreatedAt.Local().Format(timeLayout),
						strconv.Itoa(e.Attempts),
						e.LastError,
					})
				}
				printLine(a.out, renderTable([]string{"ID", "REQUEST", "QUEUED", "ATTEMPTS", "LAST ERROR"}, rows))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "discard <id>",
			Short: "Drop a queued change the server keeps rejecting",
			Args:  cobra.ExactArgs(1),
			RunE: a.connected(func(ctx context.Context, args []string) error {
				n, err := a.store.Queue().Discard(ctx, args[0])
				if err != nil {
					return err
				}
				printLine(a.out, okStyle.Render(fmt.Sprintf("Discarded %d queued changes", n)))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Drop every queued change and the cached lists",
			Args:  cobra.NoArgs,
			RunE: a.connected(func(ctx context.Context, _ []string) error {
				if err := a.store.Queue().Clear(ctx); err != nil {
					return err
				}
				if err := a.store.Cache().Clear(ctx); err != nil {
					return err
				}
				printLine(a.out, okStyle.Render("Queue and cache cleared"))
				return nil
			}),
		},
	)
	return cmd
}

func warmupCmd(a *app) *cobra.Command {
	var fieldID string
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Prefetch lists for offline use",
		Args:  cobra.NoArgs,
		RunE: a.connected(func(ctx context.Context, _ []string) error {
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			if err := a.client.Warmup(ctx, userID, fieldID); err != nil {
				return err
			}
			printLine(a.out, okStyle.Render("Cache ready"))
			return nil
		}),
	}
	cmd.Flags().StringVar(&fieldID, "field", "", "also prefetch the pens and reports of this field")
	return cmd
}

func apiCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "api", Short: "Inspect the backend API description"}
	cmd.AddCommand(&cobra.Command{
		Use:   "routes",
		Short: "List the documented routes",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			spec, err := apispec.Default()
			if err != nil {
				return err
			}
			ops := spec.Operations()
			if len(ops) == 0 {
				return errors.New("farmctl: API description has no operations")
			}
			rows := make([][]string, 0, len(ops))
			for _, op := range ops {
				access := "auth"
				if op.Public {
					access = "public"
				}
				rows = append(rows, []string{op.Method, op.Path, op.ID, access})
			}
			printLine(a.out, headerStyle.Render(spec.Title()))
			printLine(a.out, renderTable([]string{"METHOD", "PATH", "OPERATION", "ACCESS"}, rows))
			return nil
		}),
	})
	return cmd
}
