// Command registry-check validates the registered plugins for consistency:
// every semantic type must be bound to a registered format, transformer
// endpoints that are format types must belong to registered formats, and
// plugin package identifiers must not collide.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/xpingli/qiime2/pkg/format"
	"github.com/xpingli/qiime2/pkg/plugin"
	"github.com/xpingli/qiime2/plugins/dummy"
	"github.com/xpingli/qiime2/sdk"
)

var exitFunc = os.Exit

func main() {
	// Bundled plugins register before validation so a bare invocation
	// checks the shipped registry.
	dummy.Register()
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("registry-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var only string
	fs.StringVar(&only, "plugin", "", "restrict validation to one plugin name")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	findings, err := run(sdk.Manager(), only)
	if err != nil {
		fmt.Fprintf(stderr, "Registry validation failed: %v\n", err)
		return 1
	}
	if len(findings) > 0 {
		for _, finding := range findings {
			fmt.Fprintln(stderr, finding)
		}
		fmt.Fprintf(stderr, "Registry validation failed: %d finding(s)\n", len(findings))
		return 1
	}
	fmt.Fprintln(stdout, "Registry validation passed.")
	return 0
}

func run(manager *sdk.PluginManager, only string) ([]string, error) {
	var plugins []*plugin.Plugin
	if only != "" {
		p, ok := manager.Plugin(only)
		if !ok {
			return nil, fmt.Errorf("plugin %s is not registered", only)
		}
		plugins = []*plugin.Plugin{p}
	} else {
		for _, name := range manager.Names() {
			p, _ := manager.Plugin(name)
			plugins = append(plugins, p)
		}
	}
	if len(plugins) == 0 {
		return nil, fmt.Errorf("no plugins registered")
	}

	var findings []string
	packageOwners := map[string]string{}
	for _, p := range plugins {
		findings = append(findings, checkIdentity(p, packageOwners)...)
		findings = append(findings, checkTypeBindings(p)...)
		findings = append(findings, checkTransformerEndpoints(p)...)
	}
	sort.Strings(findings)
	return findings, nil
}

func checkIdentity(p *plugin.Plugin, packageOwners map[string]string) []string {
	var findings []string
	if p.Package() == "" {
		findings = append(findings, fmt.Sprintf("plugin %s: missing package identifier", p.Name()))
		return findings
	}
	segment := firstSegment(p.Package())
	if owner, taken := packageOwners[segment]; taken {
		findings = append(findings, fmt.Sprintf("plugin %s: package segment %q already claimed by plugin %s", p.Name(), segment, owner))
	} else {
		packageOwners[segment] = p.Name()
	}
	if p.Version() == "" {
		findings = append(findings, fmt.Sprintf("plugin %s: missing version", p.Name()))
	}
	return findings
}

func checkTypeBindings(p *plugin.Plugin) []string {
	bound := map[string]bool{}
	for _, rec := range p.TypeFormats() {
		bound[rec.TypeExpression.Name()] = true
	}
	var findings []string
	for name := range p.Types() {
		if !bound[name] {
			findings = append(findings, fmt.Sprintf("plugin %s: semantic type %s has no format binding", p.Name(), name))
		}
	}
	return findings
}

func checkTransformerEndpoints(p *plugin.Plugin) []string {
	var findings []string
	for _, rec := range p.Transformers() {
		for _, endpoint := range []reflect.Type{rec.From, rec.To} {
			if !format.IsFormatType(endpoint) {
				continue
			}
			if _, ok := p.FormatForType(endpoint); !ok {
				findings = append(findings, fmt.Sprintf("plugin %s: transformer endpoint %s is not a registered format", p.Name(), endpoint))
			}
		}
	}
	return findings
}

// firstSegment returns the leading segment of an import-path-style
// package identifier, matching the harness's plugin resolution.
func firstSegment(pkg string) string {
	if idx := strings.IndexAny(pkg, "/."); idx >= 0 {
		return pkg[:idx]
	}
	return pkg
}
