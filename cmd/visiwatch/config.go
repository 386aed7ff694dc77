package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/visiwatch/internal/config"
)

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  visiwatch config validate [--path PATH]")
	fmt.Fprintln(w, "  visiwatch config print [--path PATH] [--defaults]")
	fmt.Fprintln(w, "  visiwatch config init [--path PATH] [--force]")
	fmt.Fprintln(w, "  visiwatch config explain [--path PATH] <yaml.path>")
}

func runConfig(args []string) int {
	if len(args) == 0 {
		printConfigUsage(os.Stderr)
		return 2
	}

	sub := map[string]func([]string) int{
		"validate": runConfigValidate,
		"print":    runConfigPrint,
		"init":     runConfigInit,
		"explain":  runConfigExplain,
	}
	switch run, ok := sub[args[0]]; {
	case ok:
		return run(args[1:])
	case args[0] == "help" || args[0] == "-h" || args[0] == "--help":
		printConfigUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n\n", args[0])
		printConfigUsage(os.Stderr)
		return 2
	}
}

func configFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("config "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/visiwatch/config.yaml)")
	return fs, path
}

func runConfigValidate(args []string) int {
	fs, path := configFlagSet("validate")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(res.Files) == 0 {
		fmt.Println("config: ok (no file, using defaults)")
		return 0
	}
	fmt.Println("config: ok")
	return 0
}

func runConfigPrint(args []string) int {
	fs, path := configFlagSet("print")
	defaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg := config.DefaultConfig()
	if !*defaults {
		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		cfg = res.Config
	}
	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("# bucket: %s\n# server: %s\n%s", cfg.BucketID(), cfg.ServerURL(), data)
	return 0
}

func runConfigInit(args []string) int {
	fs, path := configFlagSet("init")
	force := fs.Bool("force", false, "Overwrite an existing file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	target := *path
	if target == "" {
		var err error
		if target, err = config.DefaultConfigPath(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	if err := config.WriteDefault(target, *force); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("wrote %s\n", target)
	return 0
}

func runConfigExplain(args []string) int {
	fs, path := configFlagSet("explain")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
		return 2
	}
	query := fs.Arg(0)

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	value, src, err := config.Explain(res, query)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	out, err := yaml.Marshal(value)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("path: %s\nsource: %s\nvalue:\n%s", query, config.FormatSource(src), out)
	return 0
}
