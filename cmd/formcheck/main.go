// Command formcheck validates already-decoded WebAssembly function bodies
// against a module described by a JSON fixture. It does not decode the
// WebAssembly binary format itself; see formcheck.Fixture for the input
// shape it expects.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wasmkit/formcheck/formcheck"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "formcheck",
		Short: "Validate WebAssembly function bodies against a module fixture",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log rejected instructions")

	root.AddCommand(newValidateCommand(&verbose))
	return root
}

func newValidateCommand(verbose *bool) *cobra.Command {
	var allFeatures bool

	cmd := &cobra.Command{
		Use:   "validate <fixture.json>",
		Short: "Type-check every function body in a fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0], *verbose, allFeatures)
		},
	}
	cmd.Flags().BoolVar(&allFeatures, "all-features", false, "enable every post-MVP proposal this package understands")
	return cmd
}

func runValidate(path string, verbose, allFeatures bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	fixture, err := formcheck.DecodeFixture(data)
	if err != nil {
		return err
	}

	ctx, err := fixture.BuildContext()
	if err != nil {
		return fmt.Errorf("build module context: %w", err)
	}

	cfg := formcheck.NewConfig()
	if allFeatures {
		cfg = cfg.WithFeatures(formcheck.FeaturesAll)
	}
	if verbose {
		l, zerr := zap.NewDevelopment()
		if zerr != nil {
			return fmt.Errorf("build logger: %w", zerr)
		}
		defer l.Sync()
		cfg = cfg.WithLogger(formcheck.NewZapLogger(l))
	}

	checker := formcheck.NewChecker(ctx, cfg)

	failures := 0
	for _, body := range fixture.Bodies {
		params, perr := formcheck.ParseValTypes(body.Params)
		locals, lerr := formcheck.ParseValTypes(body.Locals)
		results, rerr := formcheck.ParseValTypes(body.Results)
		if perr != nil || lerr != nil || rerr != nil {
			return fmt.Errorf("function %d: malformed signature", body.FuncIndex)
		}
		instrs, err := body.Instructions()
		if err != nil {
			return fmt.Errorf("function %d: %w", body.FuncIndex, err)
		}
		if err := checker.Validate(instrs, params, locals, results); err != nil {
			fmt.Fprintf(os.Stderr, "function %d: %s\n", body.FuncIndex, err)
			failures++
			continue
		}
		fmt.Printf("function %d: ok\n", body.FuncIndex)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d function bodies failed validation", failures, len(fixture.Bodies))
	}
	return nil
}
