package subaru

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/color"
)

// printHelp prints the commands table
func printHelp() {
	colSuccess.Println("Usage: subaru [command] [arguments]")
	colSuccess.Println("Running without a command opens the interactive console")
	fmt.Println()
	color.Info.Println("Available Commands:")

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"console", "", "Open the interactive package console (default)"},
		{"list, ls", "[query]", "List installed packages, optionally filter by name"},
		{"search, f", "<query>", "Search the package index"},
		{"sync, s", "", "Sync the repository index from the mirror"},
		{"depends, d", "[--reverse] <pkg>", "Show package dependencies or reverse dependencies"},
		{"changes", "", "Show what a full upgrade would change"},
		{"upgrade, u", "[-y]", "Mark all upgrades and commit them"},
		{"version, --version", "", "Version information"},
		{"help", "", "Show this help"},
	}

	maxLen := 0
	for _, c := range cmds {
		length := len(c.Cmd) + len(c.Args)
		if c.Args != "" {
			length++
		}
		if length > maxLen {
			maxLen = length
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		var usageString string
		if c.Args != "" {
			usageString = fmt.Sprintf("  %s %s", c.Cmd, c.Args)
		} else {
			usageString = fmt.Sprintf("  %s", c.Cmd)
		}

		fmt.Print("  ")
		color.Bold.Print(c.Cmd)
		if c.Args != "" {
			fmt.Print(" ")
			color.Cyan.Print(c.Args)
		}

		pad := columnWidth - len(usageString)
		if pad < 1 {
			pad = 1
		}
		fmt.Print(strings.Repeat(" ", pad))
		color.Info.Println(c.Desc)
	}
	fmt.Println()
}

func printVersion() {
	fmt.Printf("subaru %s (%s, built %s)\n", version, arch, buildDate)
}

// Main is the CLI entrypoint.
func Main() {
	configPath := ConfigFile
	if root := os.Getenv("SUBARU_ROOT"); root != "" {
		configPath = filepath.Join(root, "etc", "subaru.conf")
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to read %s: %v\n", configPath, err)
		cfg = &Config{Values: map[string]string{}}
	}
	mergeEnvOverrides(cfg)
	initConfig(cfg)

	cmd := "console"
	args := []string{}
	if len(os.Args) > 1 {
		cmd = os.Args[1]
		args = os.Args[2:]
	}

	var exitCode int
	switch cmd {
	case "console":
		exitCode = cmdConsole(cfg)
	case "list", "ls":
		exitCode = cmdList(args)
	case "search", "f", "find":
		exitCode = cmdSearch(args)
	case "sync", "s":
		exitCode = cmdSync(cfg)
	case "depends", "d":
		exitCode = cmdDepends(args)
	case "changes":
		exitCode = cmdChanges()
	case "upgrade", "u":
		exitCode = cmdUpgrade(cfg, args)
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printHelp()
	default:
		colError.Printf("Unknown command: %s\n", cmd)
		printHelp()
		exitCode = 1
	}
	os.Exit(exitCode)
}

// newSession builds the engine stack over the current universe.
func newSession() (*Engine, *Universe, error) {
	u, err := LoadUniverse()
	if err != nil {
		return nil, nil, err
	}
	store := NewIntentStore(u.Records())
	return NewEngine(store, NewOracle(u)), u, nil
}

func cmdConsole(cfg *Config) int {
	engine, u, err := newSession()
	if err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	if len(engine.Store().Records()) == 0 {
		colWarn.Println("No packages known. Run 'subaru sync' first.")
		return 1
	}
	if err := RunConsole(cfg, engine, u); err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdList(args []string) int {
	engine, _, err := newSession()
	if err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	query := strings.Join(args, " ")
	var installed []PackageRecord
	for _, r := range engine.Store().Records() {
		if r.Base == StateNotInstalled {
			continue
		}
		installed = append(installed, r)
	}
	for _, r := range FilterRecords(installed, query) {
		line := fmt.Sprintf("%-30s %s", r.Name, r.InstalledVersion)
		if r.Base == StateUpgradable {
			line += color.Yellow.Sprintf("  (%s available)", r.CandidateVersion)
		}
		fmt.Println(line)
	}
	return 0
}

func cmdSearch(args []string) int {
	if len(args) == 0 {
		colError.Println("Usage: subaru search <query>")
		return 1
	}
	engine, _, err := newSession()
	if err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	query := strings.Join(args, " ")
	matches := FilterRecords(engine.Store().Records(), query)
	if len(matches) == 0 {
		colWarn.Printf("No packages match %q\n", query)
		return 1
	}
	for _, r := range matches {
		status := " "
		switch r.Base {
		case StateInstalled:
			status = "i"
		case StateUpgradable:
			status = "u"
		}
		fmt.Printf("[%s] %-30s %-12s %s\n", status, r.Name, r.CandidateVersion, r.Description)
	}
	return 0
}

func cmdSync(cfg *Config) int {
	if _, err := SyncIndex(cfg); err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdDepends(args []string) int {
	reverse := false
	var pkgs []string
	for _, a := range args {
		if a == "--reverse" || a == "-r" {
			reverse = true
			continue
		}
		pkgs = append(pkgs, a)
	}
	if len(pkgs) != 1 {
		colError.Println("Usage: subaru depends [--reverse] <pkg>")
		return 1
	}
	engine, u, err := newSession()
	if err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	id := PackageID(pkgs[0])
	if !engine.Store().Has(id) {
		colError.Printf("Error: %v: %s\n", errPackageNotFound, pkgs[0])
		return 1
	}
	if reverse {
		for _, q := range NewOracle(u).InstalledRequiring(id, nil) {
			fmt.Println(q)
		}
		return 0
	}
	deps, ok := u.CandidateDeps(id)
	if !ok {
		deps = u.InstalledDeps(id)
	}
	for _, d := range deps {
		fmt.Println(d.String())
	}
	return 0
}

// cmdUpgrade marks every upgradable package, shows the grouped preview
// and commits it after confirmation.
func cmdUpgrade(cfg *Config, args []string) int {
	yes := false
	for _, a := range args {
		if a == "-y" || a == "--yes" {
			yes = true
		}
	}
	engine, u, err := newSession()
	if err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	marked, skipped := engine.MarkAllUpgrades()
	for _, id := range skipped {
		colWarn.Printf("Skipping %s: no satisfiable change set\n", id)
	}
	if marked == 0 {
		colSuccess.Println("Everything is up to date.")
		return 0
	}
	g := engine.Changes()
	colArrow.Print("-> ")
	colSuccess.Printf("%d upgrades, %d extra packages, download size %s\n",
		len(g.Upgrade), len(g.AutoInstall)+len(g.AutoUpgrade), humanSize(g.DownloadSize))
	if !yes && !askForConfirmation("Apply these changes?") {
		colWarn.Println("Aborted.")
		return 1
	}
	if _, err := Commit(cfg, engine, u, false); err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	return 0
}

// cmdChanges marks every upgradable package and prints the grouped
// preview, without committing anything.
func cmdChanges() int {
	engine, _, err := newSession()
	if err != nil {
		colError.Printf("Error: %v\n", err)
		return 1
	}
	marked, skipped := engine.MarkAllUpgrades()
	g := engine.Changes()
	if g.Empty() {
		colSuccess.Println("Everything is up to date.")
		return 0
	}
	printGrouped := func(label string, recs []PackageRecord) {
		if len(recs) == 0 {
			return
		}
		colArrow.Print("-> ")
		colSuccess.Printf("%s (%d):\n", label, len(recs))
		for _, r := range recs {
			fmt.Printf("   %s %s", r.Name, r.CandidateVersion)
			if r.InstalledVersion != "" {
				fmt.Printf(" (from %s)", r.InstalledVersion)
			}
			fmt.Println()
		}
	}
	printGrouped("Upgrade", g.Upgrade)
	printGrouped("Install (dependencies)", g.AutoInstall)
	printGrouped("Upgrade (dependencies)", g.AutoUpgrade)
	if len(skipped) > 0 {
		colWarn.Printf("Skipped (unsatisfiable): %d\n", len(skipped))
		for _, id := range skipped {
			fmt.Printf("   %s\n", id)
		}
	}
	colArrow.Print("-> ")
	colSuccess.Printf("%d upgrades, download size %s\n", marked, humanSize(g.DownloadSize))
	return 0
}
