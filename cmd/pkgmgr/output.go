package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	hostColor    = color.New(color.Bold)
	successColor = color.New(color.FgGreen)
	noticeColor  = color.New(color.FgYellow)
)

// printer serializes per-host lines written from concurrent host actions.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) line(hostname string, c *color.Color, format string, a ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hostColor.Fprintf(p.out, "%s: ", hostname)
	c.Fprintf(p.out, format, a...)
	fmt.Fprintln(p.out)
}

type versionReport struct {
	Host     string `json:"host" yaml:"host"`
	Package  string `json:"package" yaml:"package"`
	Version  string `json:"version" yaml:"version"`
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
	InRange  *bool  `json:"in_range,omitempty" yaml:"in_range,omitempty"`
}

// versionCollector gathers reports from concurrent host actions.
type versionCollector struct {
	mu      sync.Mutex
	reports []versionReport
}

func (c *versionCollector) add(r versionReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
}

var outputFormats = map[string]bool{"text": true, "json": true, "yaml": true}

func validateOutputFormat(format string) error {
	if !outputFormats[format] {
		return fmt.Errorf("unsupported output format %q, use text, json or yaml", format)
	}
	return nil
}

func writeVersions(out io.Writer, format string, reports []versionReport) error {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Host != reports[j].Host {
			return reports[i].Host < reports[j].Host
		}
		return reports[i].Package < reports[j].Package
	})

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(reports)
	}

	p := newPrinter(out)
	for _, r := range reports {
		if r.Version == "" {
			p.line(r.Host, noticeColor, "%s not installed", r.Package)
			continue
		}
		version := r.Version
		if r.Revision != "" {
			version += ",REV=" + r.Revision
		}
		switch {
		case r.InRange == nil:
			p.line(r.Host, successColor, "%s %s", r.Package, version)
		case *r.InRange:
			p.line(r.Host, successColor, "%s %s (in range)", r.Package, version)
		default:
			p.line(r.Host, noticeColor, "%s %s (out of range)", r.Package, version)
		}
	}
	return nil
}
