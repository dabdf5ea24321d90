package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"gradlecp/pkg/cache"
	"gradlecp/pkg/classpath"
	"gradlecp/pkg/config"
	"gradlecp/pkg/decode"
	"gradlecp/pkg/gradle"
	"gradlecp/pkg/graph"
	"gradlecp/pkg/imports"
	"gradlecp/pkg/report"
	"gradlecp/pkg/resolve"
	"gradlecp/pkg/scan"
	"gradlecp/pkg/watch"
)

const version = "0.3.0"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version information"`
	Verbose  bool             `help:"Enable debug logging"`
	Parallel int              `short:"j" help:"Number of parallel workers (0 uses the configured value)" default:"0"`

	Resolve ResolveCmd `cmd:"" help:"Write the classpath of every module"`
	Order   OrderCmd   `cmd:"" help:"Print the compilation order of the modules"`
	Scan    ScanCmd    `cmd:"" help:"Index classes of build outputs and the Gradle cache"`
	Imports ImportsCmd `cmd:"" help:"Resolve the imports of a source file to classpath entries"`
	Decode  DecodeCmd  `cmd:"" help:"Decode a cache path into its coordinates"`
	Watch   WatchCmd   `cmd:"" help:"Regenerate classpaths when build files change"`
}

type ResolveCmd struct {
	Directory string `arg:"" optional:"" help:"Project directory (defaults to current directory)"`
	Module    string `short:"m" help:"Only write the classpath of this module"`
	Strategy  string `help:"Resolution strategy: pom or metadata"`
	Output    string `short:"o" help:"Directory receiving the classpath files"`
}

type OrderCmd struct {
	Directory string `arg:"" optional:"" help:"Project directory (defaults to current directory)"`
}

type ScanCmd struct {
	Directory string `arg:"" optional:"" help:"Project directory (defaults to current directory)"`
}

type ImportsCmd struct {
	File      string `arg:"" help:"Java or Kotlin source file"`
	Directory string `short:"C" help:"Project directory (defaults to current directory)"`
}

type DecodeCmd struct {
	Path string `arg:"" help:"Transformed archive, cached POM or descriptor.bin path"`
}

type WatchCmd struct {
	Directory string `arg:"" optional:"" help:"Project directory (defaults to current directory)"`
	Strategy  string `help:"Resolution strategy: pom or metadata"`
	Output    string `short:"o" help:"Directory receiving the classpath files"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("gradlecp"),
		kong.Description("Compute Gradle module classpaths from the local build cache."),
		kong.Vars{"version": "gradlecp version " + version},
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := report.New(os.Stderr, "gradlecp", cli.Verbose)

	switch kctx.Command() {
	case "resolve <directory>", "resolve":
		err = runResolve(ctx, cli, logger)
	case "order <directory>", "order":
		err = runOrder(cli.Order, logger)
	case "scan <directory>", "scan":
		err = runScan(ctx, cli, logger)
	case "imports <file>":
		err = runImports(ctx, cli, logger)
	case "decode <path>":
		err = runDecode(cli.Decode)
	case "watch <directory>", "watch":
		err = runWatch(ctx, cli, logger)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// settings is the project root together with its validated configuration
type settings struct {
	root   string
	config *config.Config
}

func loadSettings(directory string, apply func(*config.Config)) (*settings, error) {
	if directory == "" {
		var err error
		directory, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	root, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	cfg, err := config.LoadConfiguration(root)
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &settings{root: root, config: cfg}, nil
}

func (s *settings) loadProject(r report.Reporter) (*gradle.Project, error) {
	return gradle.LoadProject(s.root, gradle.LoadOptions{
		PropertiesFile: s.config.PropertiesFile,
		SettingsFile:   s.config.SettingsFile,
		IgnoredModules: s.config.IgnoredModules,
		IgnoredLibs:    s.config.IgnoredLibs,
		MappedModules:  s.config.MappedModules,
	}, r)
}

func (s *settings) outputDir() string {
	if filepath.IsAbs(s.config.OutputDir) {
		return s.config.OutputDir
	}
	return filepath.Join(s.root, s.config.OutputDir)
}

func resolveOverrides(cli CLI, strategy, output string) func(*config.Config) {
	return func(cfg *config.Config) {
		if strategy != "" {
			cfg.Strategy = strategy
		}
		if output != "" {
			cfg.OutputDir = output
		}
		if cli.Parallel > 0 {
			cfg.Parallel = cli.Parallel
		}
	}
}

// generator writes module classpaths for one snapshot of the project and cache
type generator struct {
	project   *gradle.Project
	assembler *classpath.Assembler
	writer    *classpath.Writer
	workers   int
	reporter  *log.Logger
}

func newGenerator(ctx context.Context, s *settings, logger *log.Logger) (*generator, error) {
	cfg := s.config

	layout, err := cache.Discover(cfg.GradleHome)
	if err != nil {
		return nil, err
	}
	lister, err := cache.NewLister(cfg.Lister)
	if err != nil {
		return nil, err
	}
	compare, err := resolve.NewComparator(cfg.VersionOrder)
	if err != nil {
		return nil, err
	}

	transformed, err := scan.NewTransformedScanner(layout.Transforms, scan.Options{
		Lister:   lister,
		Workers:  cfg.Parallel,
		Reporter: logger,
	}).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transformed cache: %w", err)
	}

	gaps := report.NewOnce(logger)
	strategy, err := resolve.NewStrategy(cfg.Strategy, resolve.Options{
		Layout:      layout,
		Lister:      lister,
		Compare:     compare,
		Transformed: transformed,
		Reporter:    logger,
		Gaps:        gaps,
	})
	if err != nil {
		return nil, err
	}

	project, err := s.loadProject(logger)
	if err != nil {
		return nil, err
	}

	alias, err := classpath.NewAlias(cfg.AliasMode, s.root, cfg.AliasDir, layout)
	if err != nil {
		return nil, err
	}

	return &generator{
		project:   project,
		assembler: classpath.NewAssembler(project, strategy, cfg.AndroidSDK, alias, logger, gaps),
		writer:    classpath.NewWriter(s.outputDir()),
		workers:   cfg.Parallel,
		reporter:  logger,
	}, nil
}

func (g *generator) writeModule(ctx context.Context, module string) error {
	cp, err := g.assembler.Assemble(ctx, module)
	if err != nil {
		return err
	}
	written, err := g.writer.Write(cp)
	if err != nil {
		return err
	}
	if cp.LowConfidence {
		g.reporter.Warn("Classpath relies on heuristic metadata edges", "module", cp.Module)
	}
	g.reporter.Info("Classpath", "module", cp.Module, "entries", len(cp.Entries), "written", written)
	return nil
}

func (g *generator) run(ctx context.Context, module string) error {
	if module != "" {
		return g.writeModule(ctx, module)
	}

	deps, err := g.project.ModuleGraph()
	if err != nil {
		return err
	}
	moduleGraph, err := graph.FromMap(deps)
	if err != nil {
		return err
	}
	levels, err := moduleGraph.Levels()
	if err != nil {
		return fmt.Errorf("failed to order modules: %w", err)
	}

	progress := func(module, status string, finished bool) {
		g.reporter.Debug("Module", "module", module, "status", status)
	}
	_, err = graph.NewRunner(g.workers).ExecuteWithProgress(ctx, levels, g.writeModule, progress)
	return err
}

func runResolve(ctx context.Context, cli CLI, logger *log.Logger) error {
	cmd := cli.Resolve
	s, err := loadSettings(cmd.Directory, resolveOverrides(cli, cmd.Strategy, cmd.Output))
	if err != nil {
		return err
	}
	gen, err := newGenerator(ctx, s, logger)
	if err != nil {
		return err
	}
	return gen.run(ctx, cmd.Module)
}

func runOrder(cmd OrderCmd, logger *log.Logger) error {
	s, err := loadSettings(cmd.Directory, nil)
	if err != nil {
		return err
	}
	project, err := s.loadProject(logger)
	if err != nil {
		return err
	}
	deps, err := project.ModuleGraph()
	if err != nil {
		return err
	}
	moduleGraph, err := graph.FromMap(deps)
	if err != nil {
		return err
	}
	order, err := moduleGraph.Order()
	if err != nil {
		return fmt.Errorf("failed to order modules: %w", err)
	}

	names := slices.Clone(moduleGraph.Modules())
	sort.Slice(names, func(i, j int) bool {
		if order[names[i]] != order[names[j]] {
			return order[names[i]] < order[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Printf("%s %d\n", name, order[name])
	}
	return nil
}

// repositories are the indexes searched for imports, in lookup order
type repositories struct {
	classes     *scan.Repository
	transformed *scan.TransformedIndex
	support     *scan.Repository
	skipped     int // build script lines no dependency shape matched
}

func scanAll(ctx context.Context, s *settings, workers int, logger *log.Logger) (*repositories, error) {
	project, err := s.loadProject(logger)
	if err != nil {
		return nil, err
	}
	layout, err := cache.Discover(s.config.GradleHome)
	if err != nil {
		return nil, err
	}
	lister, err := cache.NewLister(s.config.Lister)
	if err != nil {
		return nil, err
	}
	opts := scan.Options{Lister: lister, Workers: workers, Reporter: logger}

	repos := &repositories{}
	var modules []string
	for _, module := range project.Modules {
		modules = append(modules, module.Path)
		repos.skipped += len(project.Skipped[module.Path])
	}

	if repos.classes, err = scan.NewClassScanner(s.root, modules, opts).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to scan build outputs: %w", err)
	}
	if repos.transformed, err = scan.NewTransformedScanner(layout.Transforms, opts).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to scan transformed cache: %w", err)
	}
	if repos.support, err = scan.NewSupportScanner(layout.Files, opts).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to scan support libraries: %w", err)
	}
	return repos, nil
}

func runScan(ctx context.Context, cli CLI, logger *log.Logger) error {
	s, err := loadSettings(cli.Scan.Directory, resolveOverrides(cli, "", ""))
	if err != nil {
		return err
	}
	repos, err := scanAll(ctx, s, s.config.Parallel, logger)
	if err != nil {
		return err
	}
	fmt.Printf("classes %d\n", repos.classes.Size())
	fmt.Printf("transformed %d\n", repos.transformed.Size())
	fmt.Printf("support %d\n", repos.support.Size())
	fmt.Printf("skipped %d\n", repos.skipped)
	return nil
}

func runImports(ctx context.Context, cli CLI, logger *log.Logger) error {
	cmd := cli.Imports
	found, err := imports.ReadImports(cmd.File)
	if err != nil {
		return err
	}
	s, err := loadSettings(cmd.Directory, resolveOverrides(cli, "", ""))
	if err != nil {
		return err
	}
	repos, err := scanAll(ctx, s, s.config.Parallel, logger)
	if err != nil {
		return err
	}

	result := imports.NewResolver(repos.classes, repos.transformed.Repository, repos.support).Resolve(found)
	for _, match := range result.Resolved {
		fmt.Printf("%s %s\n", match.Import, match.Repository)
	}
	for _, imp := range result.Unresolved {
		fmt.Printf("%s unresolved\n", imp)
	}
	for _, entry := range result.Entries() {
		fmt.Printf("entry %s\n", entry)
	}
	return nil
}

func runDecode(cmd DecodeCmd) error {
	path := filepath.ToSlash(cmd.Path)
	switch {
	case strings.HasSuffix(path, ".pom"):
		descriptor, err := decode.DecodePomPath(path)
		if err != nil {
			return err
		}
		fmt.Println(descriptor)

	case filepath.Base(path) == "descriptor.bin":
		artifacts, err := decode.ReadMetadataDescriptor(cmd.Path)
		if err != nil {
			return err
		}
		for _, artifact := range artifacts {
			if artifact.Transitive {
				fmt.Printf("%s transitive\n", artifact)
			} else {
				fmt.Println(artifact)
			}
		}

	default:
		entry, err := decode.DecodeTransformedCacheEntry(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", entry.ArtifactID, entry.Version)
	}
	return nil
}

func runWatch(ctx context.Context, cli CLI, logger *log.Logger) error {
	cmd := cli.Watch
	s, err := loadSettings(cmd.Directory, resolveOverrides(cli, cmd.Strategy, cmd.Output))
	if err != nil {
		return err
	}

	regenerate := func(ctx context.Context) error {
		gen, err := newGenerator(ctx, s, logger)
		if err != nil {
			return err
		}
		return gen.run(ctx, "")
	}
	if err := regenerate(ctx); err != nil {
		logger.Error("Initial generation failed", "err", err)
	}

	project, err := s.loadProject(report.Nop())
	if err != nil {
		return err
	}
	var dirs []string
	for _, module := range project.Modules {
		dirs = append(dirs, module.Path)
	}
	files := []string{
		filepath.Base(s.config.PropertiesFile),
		filepath.Base(s.config.SettingsFile),
		gradle.BuildFileName,
	}
	return watch.New(s.root, dirs, files, logger).Run(ctx, regenerate)
}
