// Copyright (C) 2024 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command computebench drives a synthetic in-memory index through a
// sliced scan + grouping-aggregate pipeline and prints the merged
// result. It exists to exercise runner.RunSlices end to end outside of
// a test binary, the way a hand-run perf harness would.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"sigs.k8s.io/yaml"

	compute "github.com/sneller-search/compute-core"
	"github.com/sneller-search/compute-core/runner"
	"github.com/sneller-search/compute-core/source"
	"github.com/sneller-search/compute-core/source/memindex"
)

// config is the run's shape: how many synthetic docs and leaves to
// generate, how many slices to scan them with, and whether to dump the
// final aggregated block with spew before printing the sums.
type config struct {
	Docs    int  `json:"docs"`
	Leaves  int  `json:"leaves"`
	Slices  int  `json:"slices"`
	PageLog bool `json:"pageLog"`
}

func defaultConfig() config {
	return config{Docs: 10_000, Leaves: 4, Slices: 4}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("computebench: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("computebench: parsing config: %w", err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML run config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		color.Red("computebench: %v", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		color.Red("computebench: %v", err)
		os.Exit(1)
	}
}

// run builds a synthetic index of cfg.Docs docs spread across
// cfg.Leaves leaves, scans it in cfg.Slices document slices, and sums
// every doc id grouped by (doc id mod 3) using a partial->final
// grouping-sum aggregator fed by runner.RunSlices.
func run(cfg config) error {
	docsPerLeaf := cfg.Docs / cfg.Leaves
	leaves := make([]*memindex.Leaf, cfg.Leaves)
	for i := range leaves {
		leaves[i] = memindex.NewLeaf(i, docsPerLeaf)
	}
	reader := memindex.NewReader(leaves...)

	src := source.NewOperator(reader, 0, memindex.MatchAllQuery{})
	slices, err := src.DocSlice(cfg.Slices)
	if err != nil {
		return fmt.Errorf("slicing: %w", err)
	}

	final := compute.NewGroupingSumAggregator(compute.PartialToFinal, 1)
	stats := &runner.Stats{}

	build := func(slice *source.Operator) (*compute.Driver, error) {
		agg := groupingSumStage{agg: compute.NewGroupingSumAggregator(compute.RawToPartial, 1)}
		return compute.NewDriver(slice, &agg), nil
	}
	combine := func(p *compute.Page) error {
		groupIDs := p.GetBlock(0)
		return final.ProcessPage(groupIDs, p)
	}

	if err := runner.RunSlices(context.Background(), slices, build, combine, stats); err != nil {
		return fmt.Errorf("running slices: %w", err)
	}

	out, err := final.Evaluate()
	if err != nil {
		return err
	}
	if cfg.PageLog {
		spew.Dump(out)
	}

	color.Green("scanned %d docs across %d slices (%d groups)", stats.RowsScanned(), len(slices), final.GroupCount())
	for i := 0; i < out.PositionCount(); i++ {
		fmt.Printf("group %d: sum=%v\n", i, out.GetDouble(i))
	}
	return nil
}

// groupingSumStage adapts a GroupingAggregator into a compute.Operator
// that groups every incoming row by (doc id mod 3), reading the doc id
// from the source page's channel 0, into a single emitted
// partial-state page on Finish.
type groupingSumStage struct {
	agg      *compute.GroupingAggregator[compute.DoubleState]
	finished bool
	pending  *compute.Page
}

func (g *groupingSumStage) NeedsInput() bool { return !g.finished && g.pending == nil }

func (g *groupingSumStage) AddInput(p *compute.Page) error {
	docIDs := p.GetBlock(0)
	n := docIDs.PositionCount()
	groupIDs := make([]int64, n)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		doc := docIDs.GetInt(i)
		groupIDs[i] = int64(doc) % 3
		vals[i] = float64(doc)
	}
	page, err := compute.NewPage(compute.NewLongBlock(groupIDs), compute.NewDoubleBlock(vals))
	if err != nil {
		return err
	}
	return g.agg.ProcessPage(page.GetBlock(0), page)
}

func (g *groupingSumStage) Finish() error {
	out, err := g.agg.Evaluate()
	if err != nil {
		return err
	}
	groupIDs := make([]int64, out.PositionCount())
	for i := range groupIDs {
		groupIDs[i] = int64(i)
	}
	page, err := compute.NewPage(compute.NewLongBlock(groupIDs), out)
	if err != nil {
		return err
	}
	g.pending = page
	g.finished = true
	return nil
}

func (g *groupingSumStage) IsFinished() bool { return g.finished && g.pending == nil }

func (g *groupingSumStage) GetOutput() (*compute.Page, error) {
	p := g.pending
	g.pending = nil
	return p, nil
}

func (g *groupingSumStage) Close() error { return nil }
