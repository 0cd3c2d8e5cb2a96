package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"contribs/internal/core/errors"
	"contribs/internal/data/store"
	"contribs/internal/engine/resolver"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

// fileLoci is the per-file output record of the resolve command.
type fileLoci struct {
	Path string           `json:"path" yaml:"path"`
	Loci []resolver.Locus `json:"loci" yaml:"loci"`
}

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatYAML, formatText:
		return nil
	default:
		return errors.New(errors.CodeNotSupported, fmt.Sprintf("invalid format %q: must be json, yaml or text", format))
	}
}

func writeLoci(w io.Writer, format string, results []fileLoci) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, r := range results {
			for _, l := range r.Loci {
				fmt.Fprintf(tw, "%s:%d\t%s\n", r.Path, l.Line, l.Ident)
			}
		}
		return tw.Flush()
	default:
		return validateFormat(format)
	}
}

func renderLoci(format string, results []fileLoci) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeLoci(&buf, format, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// identPage is the output record of the show command.
type identPage struct {
	Ident    string         `json:"ident" yaml:"ident"`
	Page     int            `json:"page" yaml:"page"`
	PerPage  int            `json:"per_page" yaml:"per_page"`
	Total    int            `json:"total" yaml:"total"`
	Contribs []identContrib `json:"contribs" yaml:"contribs"`
}

type identContrib struct {
	Repo  string `json:"repo" yaml:"repo"`
	Path  string `json:"path" yaml:"path"`
	Lines []int  `json:"lines" yaml:"lines"`
}

func newIdentPage(ident string, p store.ContribPage) identPage {
	out := identPage{Ident: ident, Page: p.Page, PerPage: p.PerPage, Total: p.Total, Contribs: []identContrib{}}
	for _, c := range p.Contribs {
		ic := identContrib{Repo: c.RepoOwner + "/" + c.RepoName, Path: c.RelPath(), Lines: []int{}}
		for _, l := range c.Loci {
			if l.Ident == ident {
				ic.Lines = append(ic.Lines, l.Line)
			}
		}
		out.Contribs = append(out.Contribs, ic)
	}
	return out
}

func writeIdentPage(w io.Writer, format string, page identPage) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(page); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, c := range page.Contribs {
			lines := make([]string, 0, len(c.Lines))
			for _, l := range c.Lines {
				lines = append(lines, strconv.Itoa(l))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Repo, c.Path, strings.Join(lines, ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		pages := (page.Total + page.PerPage - 1) / page.PerPage
		_, err := fmt.Fprintf(w, "%s: page %d of %d (%d contributions)\n", page.Ident, page.Page, max(pages, 1), page.Total)
		return err
	default:
		return validateFormat(format)
	}
}
