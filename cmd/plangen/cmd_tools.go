package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/plangen/internal/auth"
	"gopkg.in/yaml.v3"
)

// runToken prints a signed access token for scripts and MCP clients. The
// account does not have to exist; the token only carries its claims.
func runToken(args []string) {
	fset := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fset.String("config", "", "path to configuration file")
	username := fset.String("user", "cli", "username placed in the token")
	name := fset.String("name", "", "display name placed in the token")
	role := fset.String("role", string(auth.RoleTeacher), "role: teacher or admin")
	_ = fset.Parse(args)

	cfg, _ := loadConfig(*configPath)
	if !cfg.Auth.Enabled() {
		fmt.Fprintln(os.Stderr, "auth.jwt_secret is not configured; the server accepts unauthenticated requests")
		os.Exit(1)
	}
	r, err := auth.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	token, err := tokens.IssueAccessToken(&auth.User{
		ID:       "cli:" + *username,
		Username: *username,
		Name:     *name,
		Role:     r,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func runTemplates(args []string) {
	fset := flag.NewFlagSet("templates", flag.ExitOnError)
	configPath := fset.String("config", "", "path to configuration file")
	_ = fset.Parse(args)

	cfg, _ := loadConfig(*configPath)
	templates := templateStore(cfg.Prompt)

	names, err := templates.Names()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list templates: %v\n", err)
		os.Exit(1)
	}
	for _, n := range names {
		t, err := templates.Load(n)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", n, err)
			continue
		}
		vars := make([]string, len(t.Variables))
		for i, v := range t.Variables {
			vars[i] = v.Name
		}
		fmt.Printf("%-12s  %s\n", n, strings.Join(vars, ", "))
	}
}

// runRender renders a template with variables from a YAML file and any
// -set key=value overrides, then prints both prompts.
func runRender(args []string) {
	fset := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fset.String("config", "", "path to configuration file")
	varsPath := fset.String("vars", "", "YAML file with template variables")
	var sets stringList
	fset.Var(&sets, "set", "template variable as key=value (repeatable)")
	_ = fset.Parse(args)

	if fset.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: plangen render [-vars file.yaml] [-set key=value] <template>")
		os.Exit(2)
	}

	vars := map[string]any{}
	if *varsPath != "" {
		data, err := os.ReadFile(*varsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read vars: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &vars); err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse vars: %v\n", err)
			os.Exit(1)
		}
	}
	for _, kv := range sets {
		k, val, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid -set %q, want key=value\n", kv)
			os.Exit(2)
		}
		vars[k] = val
	}

	cfg, _ := loadConfig(*configPath)
	rendered, err := templateStore(cfg.Prompt).Get(fset.Arg(0), vars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("--- system ---\n%s\n--- user ---\n%s\n", rendered.System, rendered.User)
	if len(rendered.Fields) > 0 {
		fmt.Printf("--- fields ---\n%s\n", strings.Join(rendered.Fields, ", "))
	}
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
