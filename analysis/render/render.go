// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package render builds the flow graph of analyzed functions, with the states computed by the feature analysis, and
// renders it in the GraphViz format.
package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/featureflow/analysis"
	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/awslabs/featureflow/analysis/ssacfg"
	"golang.org/x/tools/go/ssa"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// attributes is a list of DOT attributes
type attributes []encoding.Attribute

// Attributes implements encoding.Attributer
func (a attributes) Attributes() []encoding.Attribute {
	return a
}

// Node is an instruction of the flow graph
type Node struct {
	id    int64
	Instr ssa.Instruction
	In    featureflow.AnalysisState
}

// ID implements graph.Node
func (n *Node) ID() int64 {
	return n.id
}

// DOTID implements dot.Node
func (n *Node) DOTID() string {
	return fmt.Sprintf("i%d", n.id)
}

// Attributes implements encoding.Attributer. Nodes are labelled with their instruction and the state before it,
// and colored by path condition.
func (n *Node) Attributes() []encoding.Attribute {
	attrs := attributes{
		{Key: "label", Value: ssacfg.InstrString(n.Instr) + "\n" + n.In.String()},
	}
	if _, isIf := n.Instr.(*ssa.If); isIf {
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "diamond"})
	}
	if color := stateColor(n.In.PathCondition()); color != "" {
		attrs = append(attrs,
			encoding.Attribute{Key: "style", Value: "filled"},
			encoding.Attribute{Key: "fillcolor", Value: color})
	}
	return attrs
}

func stateColor(x featureflow.FeatureState) string {
	switch x {
	case featureflow.Feature:
		return "palegreen"
	case featureflow.NotFeature:
		return "lightpink"
	default:
		return ""
	}
}

// Edge is a fall-through or branch-taken edge of the flow graph
type Edge struct {
	from, to *Node
	// Fall is set if the edge is a fall-through edge
	Fall bool
	// Branch is set if the edge is a branch-taken edge
	Branch bool
}

// From implements graph.Edge
func (e *Edge) From() graph.Node { return e.from }

// To implements graph.Edge
func (e *Edge) To() graph.Node { return e.to }

// ReversedEdge implements graph.Edge
func (e *Edge) ReversedEdge() graph.Edge {
	return &Edge{from: e.to, to: e.from, Fall: e.Fall, Branch: e.Branch}
}

// Attributes implements encoding.Attributer
func (e *Edge) Attributes() []encoding.Attribute {
	var labels []string
	if e.Fall {
		labels = append(labels, "fall")
	}
	if e.Branch {
		labels = append(labels, "branch")
	}
	attrs := attributes{{Key: "label", Value: strings.Join(labels, "/")}}
	if e.Branch && !e.Fall {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	}
	return attrs
}

// Graph is the flow graph of one function
type Graph struct {
	*simple.DirectedGraph
	// Name is the name of the function
	Name string
	// nodes maps instructions to nodes
	nodes map[ssa.Instruction]*Node
}

// DOTAttributers implements dot.Attributers
func (g *Graph) DOTAttributers() (graphAttrs, nodeAttrs, edgeAttrs encoding.Attributer) {
	return attributes{{Key: "label", Value: g.Name}},
		attributes{{Key: "shape", Value: "box"}, {Key: "fontname", Value: "monospace"}},
		attributes{{Key: "fontname", Value: "monospace"}}
}

// NodeOf returns the node of instruction instr
func (g *Graph) NodeOf(instr ssa.Instruction) (*Node, bool) {
	n, ok := g.nodes[instr]
	return n, ok
}

// FunctionGraph builds the flow graph of an analyzed function. Edges from an instruction to itself are omitted.
func FunctionGraph(f *analysis.FunctionResult) (*Graph, error) {
	if f.Graph == nil {
		return nil, fmt.Errorf("no flow graph for %s: %v", f.Function, f.Err)
	}
	g := &Graph{
		DirectedGraph: simple.NewDirectedGraph(),
		Name:          f.Function.String(),
		nodes:         map[ssa.Instruction]*Node{},
	}
	for i, instr := range f.Graph.Nodes() {
		n := &Node{id: int64(i), Instr: instr, In: f.States.In(instr)}
		g.nodes[instr] = n
		g.AddNode(n)
	}
	for _, instr := range f.Graph.Nodes() {
		for _, succ := range f.Graph.FallSuccs(instr) {
			g.addEdge(instr, succ, false)
		}
		for _, succ := range f.Graph.BranchSuccs(instr) {
			g.addEdge(instr, succ, true)
		}
	}
	return g, nil
}

func (g *Graph) addEdge(from, to ssa.Instruction, branch bool) {
	if from == to {
		return
	}
	src, dst := g.nodes[from], g.nodes[to]
	if src == nil || dst == nil {
		return
	}
	e, ok := g.Edge(src.ID(), dst.ID()).(*Edge)
	if !ok {
		e = &Edge{from: src, to: dst}
		g.SetEdge(e)
	}
	if branch {
		e.Branch = true
	} else {
		e.Fall = true
	}
}

// WriteDot writes the DOT representation of g to w
func WriteDot(w io.Writer, g *Graph) error {
	b, err := dot.Marshal(g, g.Name, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal graph of %s: %w", g.Name, err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("error while writing graph: %w", err)
	}
	return nil
}

// DotFilename returns a file name for the graph of the function named name
func DotFilename(name string) string {
	r := strings.NewReplacer("/", "_", "*", "", "(", "", ")", "", " ", "_", "$", "_", ":", "_")
	return r.Replace(name) + ".dot"
}

// GraphvizToFile writes the DOT representation of g in the file filename
func GraphvizToFile(g *Graph, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	return WriteDot(w, g)
}

// WriteProgram writes one DOT file per analyzed function of res in dir. It returns the names of the files written.
func WriteProgram(res analysis.ProgramResults, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create directory %s: %w", dir, err)
	}
	var files []string
	for _, f := range res.Functions {
		if f.Graph == nil {
			continue
		}
		g, err := FunctionGraph(f)
		if err != nil {
			return files, err
		}
		filename := filepath.Join(dir, DotFilename(g.Name))
		if err := GraphvizToFile(g, filename); err != nil {
			return files, err
		}
		files = append(files, filename)
	}
	return files, nil
}
