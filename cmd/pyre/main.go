// Command pyre is a thin CLI wrapper around the core compiler
// packages: it loads files from disk, calls into typecheck/sqlgen/diff/
// format, and prints results. It contains no compiler logic of its own
// (§4.9).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pyreql/ast"
	"pyreql/diff"
	"pyreql/format"
	"pyreql/internal/project"
	"pyreql/parser"
	"pyreql/sqlgen"
	"pyreql/typecheck"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pyre",
		Short: "Schema-and-query compiler for the Pyre data language",
	}

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(diffCmd())
	rootCmd.AddCommand(formatCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <dir>",
		Short: "Parse and typecheck every schema and query file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, _, errs := loadAndCheck(args[0])
			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(os.Stderr, e.Error())
				}
				return fmt.Errorf("check: %d error(s)", len(errs))
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func compileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <query-file> <query-name>",
		Short: "Print the Prepared statement sequence for one query",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCompile(args[0], args[1])
		},
	}
}

func runCompile(queryFile, queryName string) error {
	dir := filepath.Dir(queryFile)
	ctx, queries, errs := loadAndCheck(dir)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return fmt.Errorf("compile: %d error(s)", len(errs))
	}

	q, qlPath := findQuery(queries, queryFile, queryName)
	if q == nil {
		return fmt.Errorf("compile: query %q not found in %q", queryName, queryFile)
	}

	qi, qerrs := typecheck.CheckQuery(ctx, q, qlPath)
	if len(qerrs) > 0 {
		for _, e := range qerrs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return fmt.Errorf("compile: %d error(s)", len(qerrs))
	}

	for _, stmt := range sqlgen.Compile(ctx, q, qi) {
		fmt.Printf("-- include=%v\n%s;\n", stmt.Include, stmt.SQL)
	}
	return nil
}

func findQuery(queries []*ast.QueryList, path, name string) (*ast.Query, string) {
	abs, _ := filepath.Abs(path)
	for _, ql := range queries {
		qlAbs, _ := filepath.Abs(ql.Path)
		if qlAbs != abs && ql.Path != path {
			continue
		}
		for _, q := range ql.Queries {
			if q.Name == name {
				return q, ql.Path
			}
		}
	}
	return nil, ""
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <declared-dir> <introspected-dir>",
		Short: "Compare two schema trees and print the resulting DDL",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			d, declaredCtx, err := computeDiff(args[0], args[1])
			if err != nil {
				return err
			}
			for _, stmt := range diff.ToSQL(d, declaredCtx) {
				fmt.Println(stmt.SQL + ";")
			}
			return nil
		},
	}
}

func computeDiff(declaredDir, introspectedDir string) (diff.Diff, *typecheck.Context, error) {
	declaredCtx, _, errs := loadAndCheck(declaredDir)
	if len(errs) > 0 {
		return diff.Diff{}, nil, fmt.Errorf("diff: %d error(s) in %q", len(errs), declaredDir)
	}
	introspectedCtx, _, errs := loadAndCheck(introspectedDir)
	if len(errs) > 0 {
		return diff.Diff{}, nil, fmt.Errorf("diff: %d error(s) in %q", len(errs), introspectedDir)
	}
	return diff.Compute(declaredCtx, introspectedCtx), declaredCtx, nil
}

func formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <file>",
		Short: "Print a schema or query file's canonical formatted source",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runFormat(args[0])
		},
	}
}

func runFormat(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ns := "default"
	if filepath.Base(path) == "schema.pyre" {
		s, err := parser.ParseSchema(path, ns, string(src))
		if err != nil {
			return err
		}
		fmt.Print(format.Schema(s))
		return nil
	}
	ql, err := parser.ParseQuery(path, ns, string(src))
	if err != nil {
		return err
	}
	fmt.Print(format.Queries(ql))
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Migration-plan generation"}
	cmd.AddCommand(migratePlanCmd())
	return cmd
}

func migratePlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <declared-dir> <introspected-dir> <name>",
		Short: "Write a timestamped migration directory combining diff and DDL",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return runMigratePlan(args[0], args[1], args[2])
		},
	}
}

func runMigratePlan(declaredDir, introspectedDir, name string) error {
	d, declaredCtx, err := computeDiff(declaredDir, introspectedDir)
	if err != nil {
		return err
	}

	stamp := time.Now().UTC().Format("200601021504")
	outDir := fmt.Sprintf("%s_%s", stamp, name)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("migrate plan: %w", err)
	}

	var sql strings.Builder
	for _, stmt := range diff.ToSQL(d, declaredCtx) {
		sql.WriteString(stmt.SQL)
		sql.WriteString(";\n")
	}
	if err := os.WriteFile(filepath.Join(outDir, "migration.sql"), []byte(sql.String()), 0o644); err != nil {
		return fmt.Errorf("migrate plan: %w", err)
	}

	diffJSON, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("migrate plan: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "schema.diff"), diffJSON, 0o644); err != nil {
		return fmt.Errorf("migrate plan: %w", err)
	}

	fmt.Printf("wrote %s\n", outDir)
	return nil
}

// loadAndCheck loads every schema/query file under dir, runs
// populate/resolve, and (if the schema stage is clean) typechecks
// every query, returning the accumulated errors of whichever stage
// failed (schema errors abort query checking per §7).
func loadAndCheck(dir string) (*typecheck.Context, []*ast.QueryList, typecheck.ErrorList) {
	schemas, queries, err := project.Load(dir)
	if err != nil {
		return nil, nil, typecheck.ErrorList{}
	}

	ctx, errs := typecheck.Populate(schemas)
	errs = append(errs, typecheck.Resolve(ctx)...)
	if len(errs) > 0 {
		return ctx, queries, errs
	}

	for _, ql := range queries {
		for _, q := range ql.Queries {
			_, qerrs := typecheck.CheckQuery(ctx, q, ql.Path)
			errs = append(errs, qerrs...)
		}
	}
	return ctx, queries, errs
}
