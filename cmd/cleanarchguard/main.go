package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"gopkg.in/yaml.v3"
)

type config struct {
	Version           int      `yaml:"version"`
	Root              string   `yaml:"root"`
	IgnoreTests       bool     `yaml:"ignore_tests"`
	IgnorePackages    []string `yaml:"ignore_packages"`
	SharedModules     []string `yaml:"shared_modules"`
	AllowedViolations []string `yaml:"allow_violations"`
	Aliases           struct {
		Domain         []string `yaml:"domain"`
		Application    []string `yaml:"application"`
		Interfaces     []string `yaml:"interfaces"`
		Infrastructure []string `yaml:"infrastructure"`
	} `yaml:"aliases"`
}

// Layer directory names used under modules/<name>/.
var (
	defaultDomainAliases         = []string{"domain", "aggregates", "entities"}
	defaultApplicationAliases    = []string{"services"}
	defaultInterfacesAliases     = []string{"presentation", "controllers"}
	defaultInfrastructureAliases = []string{"infrastructure", "persistence"}
)

func main() {
	var (
		configPath = flag.String("config", ".gocleanarch.yml", "config file path")
		debug      = flag.Bool("debug", false, "enable go-cleanarch debug output")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("read config: %v\n", err)
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		log.Fatalf("resolve root: %v\n", err)
	}
	if *debug {
		cleanarch.Log.SetOutput(os.Stderr)
	}

	violations, err := check(root, cfg)
	if err != nil {
		log.Fatalf("go-cleanarch: %v\n", err)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			log.Println(v)
		}
		log.Printf("%d layer violation(s)\n", len(violations))
		os.Exit(1)
	}
	log.Println("layers ok")
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Version != 0 && cfg.Version != 1 {
		return nil, errors.New("unsupported config version")
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

func layerAliases(cfg *config) map[string]cleanarch.Layer {
	aliases := map[string]cleanarch.Layer{}
	add := func(custom, defaults []string, layer cleanarch.Layer) {
		names := defaults
		if len(custom) > 0 {
			names = custom
		}
		for _, name := range names {
			if name != "" {
				aliases[name] = layer
			}
		}
	}
	add(cfg.Aliases.Domain, defaultDomainAliases, cleanarch.LayerDomain)
	add(cfg.Aliases.Application, defaultApplicationAliases, cleanarch.LayerApplication)
	add(cfg.Aliases.Interfaces, defaultInterfacesAliases, cleanarch.LayerInterfaces)
	add(cfg.Aliases.Infrastructure, defaultInfrastructureAliases, cleanarch.LayerInfrastructure)
	return aliases
}

func check(root string, cfg *config) ([]string, error) {
	validator := cleanarch.NewValidator(layerAliases(cfg))
	ok, errs, err := validator.Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return filterViolations(msgs, cfg), nil
}

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

// filterViolations drops imports that touch a shared module and messages
// matching an allow_violations entry.
func filterViolations(msgs []string, cfg *config) []string {
	shared := make(map[string]bool, len(cfg.SharedModules))
	for _, m := range cfg.SharedModules {
		if m = strings.TrimSpace(m); m != "" {
			shared[m] = true
		}
	}

	var out []string
	for _, msg := range msgs {
		if m := crossModulePattern.FindStringSubmatch(msg); len(m) == 3 && (shared[m[1]] || shared[m[2]]) {
			continue
		}
		if allowed(msg, cfg.AllowedViolations) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func allowed(msg string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
