package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	apihttp "github.com/GriffinCanCode/motionbridge/internal/api/http"
	"github.com/GriffinCanCode/motionbridge/internal/api/ws"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/scene"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "show flush and registry state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newClient().Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printField(out, "status", h.Status)
			printField(out, "flushes", strconv.FormatUint(h.Stage.Seq, 10))
			printField(out, "pending", strconv.Itoa(h.Stage.Pending))
			printField(out, "handles", strconv.Itoa(h.Stage.Handles))
			printExports(out, h.Stage.Exports)
			return nil
		},
	}
}

func newTreeCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "print the page as of the last flush",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := newClient().Tree(cmd.Context(), live)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("seq %d, %d pending", t.Seq, len(t.Pending))))
			fmt.Fprintln(out, t.HTML)
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "include writes not yet flushed")
	return cmd
}

func newPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page [file|-]",
		Short: "replace the page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := newClient().LoadPage(cmd.Context(), html); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("page loaded"))
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "run a script on the privileged loop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := expr
			if source == "" {
				if len(args) == 0 {
					return fmt.Errorf("a script file or -e is required")
				}
				var err error
				if source, err = readInput(cmd, args[0]); err != nil {
					return err
				}
			}
			res, err := newClient().RunScript(cmd.Context(), source)
			if res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&expr, "eval", "e", "", "script source")
	return cmd
}

func newConsoleCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "print retained console output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := newClient().Console(cmd.Context(), runID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				printLogEntry(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "only entries of this run")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "drop script globals and timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().ResetRuntime(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("runtime reset"))
			return nil
		},
	}
}

func newLogLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log-level [level]",
		Short: "show or change the server log level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			var (
				level string
				err   error
			)
			if len(args) == 1 {
				level, err = c.SetLogLevel(cmd.Context(), args[0])
			} else {
				level, err = c.LogLevel(cmd.Context())
			}
			if err != nil {
				return err
			}
			printField(cmd.OutOrStdout(), "level", level)
			return nil
		},
	}
}

func newQueryCmd() *cobra.Command {
	var xpath bool
	cmd := &cobra.Command{
		Use:   "query [selector]",
		Short: "describe matching nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := apihttp.QueryRequest{Selector: args[0]}
			if xpath {
				q = apihttp.QueryRequest{XPath: args[0]}
			}
			nodes, err := newClient().Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range nodes {
				printNode(out, n)
			}
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d match(es)", len(nodes))))
			return nil
		},
	}
	cmd.Flags().BoolVar(&xpath, "xpath", false, "treat the argument as XPath")
	return cmd
}

func newInvokeCmd() *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:   "invoke [selector] [method]",
		Short: "call a native UI method",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p map[string]any
			if params != "" {
				if err := sonic.UnmarshalString(params, &p); err != nil {
					return fmt.Errorf("invalid --params: %w", err)
				}
			}
			data, err := newClient().Invoke(cmd.Context(), args[0], args[1], p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "method parameters as a JSON object")
	return cmd
}

func newAnimateCmd() *cobra.Command {
	var (
		keyframes string
		opts      apihttp.AnimationOptions
		wait      bool
	)
	cmd := &cobra.Command{
		Use:   "animate [selector]",
		Short: "animate matching elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kf, err := parseKeyframes(keyframes)
			if err != nil {
				return err
			}
			a, err := newClient().Animate(cmd.Context(), apihttp.AnimateRequest{
				Selector:  args[0],
				Keyframes: kf,
				Options:   opts,
				Wait:      wait,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printField(out, "started", strconv.Itoa(a.Count))
			handles := make([]string, len(a.Handles))
			for i, h := range a.Handles {
				handles[i] = strconv.FormatUint(uint64(h), 10)
			}
			printField(out, "handles", strings.Join(handles, " "))
			if a.Finished {
				fmt.Fprintln(out, okStyle.Render("finished"))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&keyframes, "keyframes", "k", "", `keyframes as JSON, or prop=v1,v2 pairs separated by ";"`)
	f.Float64Var(&opts.Duration, "duration", 0, "duration in seconds")
	f.Float64Var(&opts.Delay, "delay", 0, "delay in seconds")
	f.Float64Var(&opts.Repeat, "repeat", 0, "repeat count, negative for infinite")
	f.Float64Var(&opts.RepeatDelay, "repeat-delay", 0, "delay between repeats in seconds")
	f.StringVar(&opts.Type, "type", "", "tween or spring")
	f.StringVar(&opts.Ease, "ease", "", "easing name")
	f.Float64Var(&opts.Stiffness, "stiffness", 0, "spring stiffness")
	f.Float64Var(&opts.Damping, "damping", 0, "spring damping")
	f.Float64Var(&opts.Mass, "mass", 0, "spring mass")
	f.Float64SliceVar(&opts.Times, "times", nil, "keyframe offsets")
	f.Float64Var(&opts.Stagger, "stagger", 0, "per-element delay in seconds")
	f.BoolVar(&wait, "wait", false, "wait until every animation has finished")
	_ = cmd.MarkFlagRequired("keyframes")
	return cmd
}

// parseKeyframes accepts a JSON object or "opacity=0,1;x=0,100".
func parseKeyframes(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		var kf map[string]any
		if err := sonic.UnmarshalString(s, &kf); err != nil {
			return nil, fmt.Errorf("invalid keyframes: %w", err)
		}
		return kf, nil
	}

	kf := make(map[string]any)
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		prop, values, ok := strings.Cut(pair, "=")
		if !ok || prop == "" || values == "" {
			return nil, fmt.Errorf("invalid keyframe %q", pair)
		}
		var list []any
		for _, v := range strings.Split(values, ",") {
			v = strings.TrimSpace(v)
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				list = append(list, n)
			} else {
				list = append(list, v)
			}
		}
		kf[strings.TrimSpace(prop)] = list
	}
	if len(kf) == 0 {
		return nil, fmt.Errorf("no keyframes")
	}
	return kf, nil
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [handle]",
		Short: "stop a running animation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid handle %q", args[0])
			}
			if err := newClient().StopAnimation(cmd.Context(), registry.Handle(id)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("stopped "+args[0]))
			return nil
		},
	}
}

func newRegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "show registered handles and easings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newClient().Registry(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printField(out, "handles", strconv.Itoa(r.Handles))
			printExports(out, r.Exports)
			printField(out, "easings", strings.Join(r.Easings, " "))
			return nil
		},
	}
}

func newSceneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scene [file|url]",
		Short: "play a scene file, or have the server fetch one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sceneRequest(args[0])
			if err != nil {
				return err
			}
			res, err := newClient().PlayScene(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printField(out, "scene", res.Scene)
			for _, r := range res.Scripts {
				printResult(out, r)
			}
			return nil
		},
	}
}

// sceneRequest sends URLs to the server and inlines local files, script
// files included.
func sceneRequest(arg string) (apihttp.SceneRequest, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return apihttp.SceneRequest{URL: arg}, nil
	}
	sc, err := scene.Load(arg)
	if err != nil {
		return apihttp.SceneRequest{}, err
	}
	for i := range sc.Scripts {
		sc.Scripts[i].File = ""
	}
	return apihttp.SceneRequest{Scene: sc}, nil
}

func newWatchCmd() *cobra.Command {
	var html bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "follow flushed native operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return newClient().Watch(cmd.Context(), html, func(msg ws.Message) error {
				printMessage(out, msg)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&html, "html", false, "include the rendered page with each flush")
	return cmd
}

func readInput(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
