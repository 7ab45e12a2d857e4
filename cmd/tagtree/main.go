package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/tagtree/internal/collector"
	tagmcp "github.com/kokistudios/tagtree/internal/mcp"
	"github.com/kokistudios/tagtree/internal/panel"
	"github.com/kokistudios/tagtree/internal/render"
	"github.com/kokistudios/tagtree/internal/search"
	"github.com/kokistudios/tagtree/internal/store"
	"github.com/kokistudios/tagtree/internal/structure"
	"github.com/kokistudios/tagtree/internal/tagtree"
	"github.com/kokistudios/tagtree/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

var (
	// vaultFlag overrides vault.path from config.yaml for one invocation.
	vaultFlag string
	verbose   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "tagtree",
		Short: "tagtree: arrange the tags of a markdown vault into a hierarchy",
		Long: "tagtree collects the #tags of a folder of markdown notes and keeps them in a user-defined " +
			"hierarchy stored as JSON next to the notes. Browse and rearrange it in a terminal panel, " +
			"search notes by tag, or expose it to agents over MCP.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor, verbose)
			cmd.SetContext(ui.WithLogger(cmd.Context(), ui.Logger))
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "Vault directory (overrides vault.path)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "tags", Title: "Tag Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{initCmd(), panelCmd(), doctorCmd()} {
		c.GroupID = "core"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{tagsCmd(), treeCmd(), moveCmd(), unnestCmd(), searchCmd()} {
		c.GroupID = "tags"
		rootCmd.AddCommand(c)
	}
	configC := configCmd()
	configC.GroupID = "config"
	rootCmd.AddCommand(configC)
	rootCmd.AddCommand(completionCmd())
	rootCmd.AddCommand(mcpServeCmd())

	return rootCmd
}

func initCmd() *cobra.Command {
	var force, yes bool
	cmd := &cobra.Command{
		Use:     "init [vault-dir]",
		Short:   "Initialize TAGTREE_HOME and pick the default vault",
		Long:    "Create the TAGTREE_HOME directory (~/.tagtree by default) with config.yaml. The optional argument becomes the default vault.",
		Example: "  tagtree init ~/notes\n  tagtree init --force",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			vaultDir := vaultFlag
			if len(args) == 1 {
				vaultDir = args[0]
			}
			if _, err := os.Stat(home); err == nil && force && !yes {
				proceed, err := ui.Confirm(fmt.Sprintf("Overwrite %s with default settings?", filepath.Join(home, "config.yaml")))
				if err != nil {
					return err
				}
				if !proceed {
					ui.Info("Cancelled.")
					return nil
				}
			}
			if err := store.Init(home, vaultDir, force); err != nil {
				return err
			}
			ui.Success("tagtree initialized")
			ui.Detail("Home:", ui.Dim(home))
			if vaultDir != "" {
				abs, _ := filepath.Abs(vaultDir)
				ui.Detail("Vault:", ui.Bold(abs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if TAGTREE_HOME already exists")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before overwriting config.yaml")
	return cmd
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tags used in the vault with their note counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorkspace(ctx)
			if err != nil {
				return err
			}

			counts := make(map[string]int)
			for _, path := range w.vault.Files() {
				meta, ok := w.vault.Metadata(path)
				if !ok {
					continue
				}
				seen := make(map[string]bool)
				for _, t := range collector.NoteTags(meta, w.store.Config.Vault.ExtraField) {
					if !seen[t] {
						seen[t] = true
						counts[t]++
					}
				}
			}
			if len(counts) == 0 {
				ui.EmptyState("No tags found in " + w.vault.Root)
				return nil
			}

			set := make(map[string]struct{}, len(counts))
			for t := range counts {
				set[t] = struct{}{}
			}
			var rows [][]string
			for _, t := range collector.Sorted(set) {
				rows = append(rows, []string{ui.Tag(t), ui.Dim(strconv.Itoa(counts[t]))})
			}
			ui.Table([]string{"TAG", "NOTES"}, rows)
			return nil
		},
	}
}

func treeCmd() *cobra.Command {
	var format, sortMode, output string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Reconcile and print the tag hierarchy",
		Long: "Load the tag hierarchy, add tags that appeared in the vault, drop tags that vanished, save it, and print it.\n" +
			"Formats: text, json, markdown, dot, svg.",
		Example: "  tagtree tree\n  tagtree tree --format markdown --sort asc\n  tagtree tree --format svg -o tags.svg",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			tree, err := w.structure.Load(ctx)
			if tree == nil {
				return err
			}
			if errors.Is(err, structure.ErrNotSaved) {
				ui.Warning(err.Error())
			}

			switch sortMode {
			case "":
			case "asc":
				tree = tree.Sorted(false)
			case "desc":
				tree = tree.Sorted(true)
			default:
				return fmt.Errorf("unknown sort %q (use asc or desc)", sortMode)
			}

			var out []byte
			switch format {
			case "text":
				if tree.Len() == 0 {
					ui.EmptyState("No tags found.")
					return nil
				}
				out = []byte(render.Text(tree))
			case "json":
				data, err := tagtree.Encode(tree)
				if err != nil {
					return err
				}
				out = append(data, '\n')
			case "markdown":
				if output == "" {
					ui.RenderMarkdown(ui.Stdout, render.Markdown(tree))
					return nil
				}
				out = []byte(render.Markdown(tree))
			case "dot":
				out = []byte(render.ToDOT(tree, render.DOTOptions{}))
			case "svg":
				out, err = render.RenderSVG(ctx, render.ToDOT(tree, render.DOTOptions{}))
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (use text, json, markdown, dot or svg)", format)
			}

			if output == "" {
				_, err := ui.Stdout.Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			ui.Success(fmt.Sprintf("Wrote %s", output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, markdown, dot, svg")
	cmd.Flags().StringVar(&sortMode, "sort", "", "Display order: asc or desc (stored order is kept)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "move <tag> <target>",
		Short:   "Nest a tag and its subtree under another tag",
		Example: "  tagtree move meetings work",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			tag, target := normalizeArg(args[0]), normalizeArg(args[1])
			res, _, err := w.structure.Move(ctx, tag, target)
			if err != nil {
				return err
			}
			if !res.Applied() {
				ui.Warning(fmt.Sprintf("%s not moved: %s", ui.Tag(tag), res))
				return nil
			}
			ui.Success(fmt.Sprintf("%s is now under %s", ui.Tag(tag), ui.Tag(target)))
			return nil
		},
	}
}

func unnestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unnest <tag>",
		Short: "Move a tag and its subtree to the top level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			tag := normalizeArg(args[0])
			ok, _, err := w.structure.Unnest(ctx, tag)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("tag not found: %s", tag)
			}
			ui.Success(fmt.Sprintf("%s moved to the top level", ui.Tag(tag)))
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "search <tag>...",
		Short:   "List the notes carrying every given tag",
		Example: "  tagtree search work meetings",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			var tags []string
			for _, a := range args {
				if t := normalizeArg(a); t != "" {
					tags = append(tags, t)
				}
			}
			surface := search.NewSurface(w.vault, w.store.Config.Vault.ExtraField)
			query := search.BuildQuery(tags)
			results, err := surface.SetQuery(ctx, query)
			if err != nil {
				return err
			}
			ui.Info(fmt.Sprintf("query: %s", query))
			if len(results) == 0 {
				ui.EmptyState("No matching notes.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintln(ui.Stdout, r)
			}
			return nil
		},
	}
}

func panelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "panel",
		Short: "Open the interactive tag panel",
		Long: "Browse the tag hierarchy, select tags to search notes, expand and collapse branches, " +
			"and drag tags onto each other to rearrange them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			st, err := w.openState(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			ctrl := panel.NewController(panel.Options{
				Structure:  w.structure,
				State:      st,
				Index:      w.vault,
				ExtraField: w.store.Config.Vault.ExtraField,
				Logger:     w.logger,
			})
			if err := panel.Run(ctx, ctrl); err != nil {
				ui.SanitizeTerminal()
				return err
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit tagtree configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(ui.Stdout, string(data))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a tagtree configuration value. Valid keys: vault.path, vault.structure_file, vault.extra_field, tree.prune_orphans, state.backend, state.key, state.redis_addr, state.redis_prefix, log.level.",
		Example: `  tagtree config set vault.extra_field topics
  tagtree config set tree.prune_orphans discard
  tagtree config set state.backend redis`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix, yes bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of TAGTREE_HOME, the vault and its tag structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := store.Home()

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				if !yes {
					proceed, err := ui.Confirm("Recreate missing config and rewrite the tag structure?")
					if err != nil {
						return err
					}
					if !proceed {
						ui.Info("Cancelled.")
						return nil
					}
				}
				fixed := store.FixIssues(home)
				if w, err := openWorkspace(ctx); err == nil {
					if _, err := w.structure.Load(ctx); err == nil {
						fixed = append(fixed, fmt.Sprintf("reconciled %s", w.structure.Path()))
					}
				}
				ui.SectionHeader("Repairs")
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("%s %s", ui.Green("[FIXED]"), f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			var errs, warns int
			report := func(section string, issues []store.Issue) {
				ui.SectionHeader(section)
				if len(issues) == 0 {
					ui.Detail("status:", ui.Green("ok"))
					return
				}
				for _, issue := range issues {
					if issue.Severity == "error" {
						ui.Error(fmt.Sprintf("%s %s", ui.Red("[ERR]"), issue.Message))
						errs++
					} else {
						ui.Warning(fmt.Sprintf("%s %s", ui.Yellow("[WARN]"), issue.Message))
						warns++
					}
				}
			}

			report("TAGTREE_HOME", store.CheckHealth(home))
			if s, err := store.Load(home); err == nil {
				if root, err := s.VaultPath(vaultFlag); err == nil {
					ui.Detail("vault:", ui.Dim(root))
					report("Tag structure", s.CheckStructure(root))
				}
				var stateIssues []store.Issue
				if st, err := openState(ctx, s, ui.Logger); err != nil {
					stateIssues = append(stateIssues, store.Issue{Severity: "error", Message: fmt.Sprintf("visibility state: %v", err)})
				} else {
					st.Close()
				}
				report("Visibility state ("+s.Config.State.Backend+")", stateIssues)
			}

			fmt.Fprintln(os.Stderr)
			switch {
			case errs > 0:
				ui.Error(fmt.Sprintf("%s, %s", ui.Red(fmt.Sprintf("%d error(s)", errs)), ui.Yellow(fmt.Sprintf("%d warning(s)", warns))))
				os.Exit(2)
			case warns > 0:
				ui.Warning(ui.Yellow(fmt.Sprintf("%d warning(s)", warns)))
				os.Exit(1)
			}
			ui.Success(ui.Bold("Everything looks good"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate missing config and reconcile the tag structure")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before repairing")
	return cmd
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  tagtree completion bash > ~/.bashrc.d/tagtree\n  tagtree completion zsh > ~/.zfunc/_tagtree\n  tagtree completion fish > ~/.config/fish/completions/tagtree.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}

func mcpServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run tagtree as an MCP server",
		Long:   "Start tagtree as a Model Context Protocol (MCP) server over stdio so agents can read and rearrange the tag hierarchy.",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorkspace(ctx)
			if err != nil {
				return err
			}
			server := tagmcp.NewServer(tagmcp.Deps{
				Structure:  w.structure,
				Source:     w.collector,
				Index:      w.vault,
				ExtraField: w.store.Config.Vault.ExtraField,
				Logger:     w.logger,
			}, version)
			err = server.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
