package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/blackcoderx/postbox/pkg/core"
	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/blackcoderx/postbox/pkg/vars"
	"github.com/spf13/cobra"
)

// envFlags select the variables a request is resolved against.
type envFlags struct {
	name  string
	pairs []string
}

func (f *envFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "env", "e", "", "stored environment to resolve variables from")
	cmd.Flags().StringArrayVar(&f.pairs, "var", nil, "variable as key=value, taking precedence over --env (repeatable)")
}

// selection returns the environment selection for the flags. With --var and
// --env both set, the inline pairs are placed ahead of the stored values so
// they win the substitution.
func (f *envFlags) selection(a *app) (core.EnvironmentSelection, error) {
	if len(f.pairs) == 0 {
		return core.Named(f.name), nil
	}
	values, err := parseAssignments(f.pairs)
	if err != nil {
		return core.EnvironmentSelection{}, err
	}
	if f.name == "" {
		return core.Inline(values), nil
	}
	env, err := a.environments.Load(f.name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return core.EnvironmentSelection{}, err
	default:
		values = append(values, env.Values...)
	}
	sel := core.Inline(values)
	sel.Name = f.name
	return sel, nil
}

func newRunCmd() *cobra.Command {
	var (
		req    requestFlags
		env    envFlags
		copyTo bool
		raw    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run [collection endpoint]",
		Short: "Resolve and send a stored or ad-hoc request",
		Example: `  postbox run users "List users" -e dev
  postbox run --url "{{baseUrl}}/health" --var baseUrl=http://localhost:8080`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("%w: expected either no arguments or <collection> <endpoint>", storage.ErrValidation)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			spec, err := req.spec()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				spec.CollectionName, spec.EndpointName = args[0], args[1]
			} else if spec.URL.Raw == "" {
				return fmt.Errorf("%w: --url is required for ad-hoc requests", storage.ErrValidation)
			}

			sel, err := env.selection(a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				resolved, err := a.resolver.Resolve(spec, sel)
				if err != nil {
					return err
				}
				warnUnresolved(cmd.ErrOrStderr(), resolved.DialURL(), resolved.Headers, resolved.Body)
				return renderResolved(out, resolved)
			}

			result, err := a.runner.Run(cmd.Context(), core.RunRequest{RequestSpec: spec, Environment: sel})
			if err != nil {
				return err
			}
			warnUnresolved(cmd.ErrOrStderr(), result.Request.URL, result.Request.Headers, result.Request.Body)

			if copyTo {
				if err := clipboard.WriteAll(result.Response.Body); err != nil {
					warn(cmd.ErrOrStderr(), "failed to copy response: %v", err)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("response body copied to clipboard"))
				}
			}

			switch {
			case raw:
				_, err = io.WriteString(out, result.Response.Body)
				return err
			case outputFormat != outputText:
				return writeStructured(out, outputFormat, result)
			default:
				renderResponse(out, result)
				return nil
			}
		},
	}

	req.register(cmd)
	env.register(cmd)
	cmd.Flags().BoolVar(&copyTo, "copy", false, "copy the response body to the clipboard")
	cmd.Flags().BoolVar(&raw, "raw", false, "print only the response body")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve the request and print it without sending")
	return cmd
}

func renderResolved(w io.Writer, resolved *core.ResolvedRequest) error {
	if outputFormat != outputText {
		return writeStructured(w, outputFormat, resolved)
	}
	fmt.Fprintf(w, "%s %s\n", methodStyle.Render(resolved.Method), resolved.DialURL())
	for _, h := range resolved.Headers {
		line := fmt.Sprintf("%s: %s", h.Key, h.Value)
		if h.Disabled {
			line = dimStyle.Render(line + " (disabled)")
		}
		fmt.Fprintln(w, line)
	}
	if resolved.Body != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, resolved.Body)
	}
	return nil
}

// warnUnresolved reports {{tokens}} that no variable matched.
func warnUnresolved(w io.Writer, url string, headers []storage.KeyValue, body string) {
	texts := []string{url, body}
	for _, h := range headers {
		texts = append(texts, h.Value)
	}
	names := vars.Placeholders(strings.Join(texts, "\n"))
	if len(names) == 0 {
		return
	}
	warn(w, "unresolved variables: %s", strings.Join(names, ", "))
}
